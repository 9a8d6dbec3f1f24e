// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
# interface table, fed from the snmp ifTable
table ifTable {
  query snmp.ifTable
  item_id @
  item_name @

  field ifIndex {
    source ifIndex
    input_type Integer
    expr @
  }
  field ifDescr {
    source ifDescr
    input_type UnicodeString
    expr @
  }
  field ifInOctets {
    source ifInOctets
    input_type Quantity(Bandwidth)
    display_unit B/s
    expr @
    threshold high warning @ > 1000 critical @ > 2000
  }
}

check interfaces {
  tables ifTable
}

mp network {
  tag net
  tables ifTable
  checks interfaces
}
`

func TestLoadPackageParsesTablesChecksAndMPs(t *testing.T) {
	pkg, err := LoadPackage(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	ts, ok := pkg.Tables["ifTable"]
	require.True(t, ok)
	assert.Equal(t, "snmp", string(ts.Query.Protocol))
	assert.Equal(t, "ifTable", string(ts.Query.DataTable))
	assert.Len(t, ts.Fields, 3)

	fd, ok := ts.FieldByID("ifInOctets")
	require.True(t, ok)
	assert.Len(t, fd.Thresholds, 1)
	assert.Equal(t, "high", fd.Thresholds[0].Label)

	chk, ok := pkg.Checks["interfaces"]
	require.True(t, ok)
	assert.Equal(t, []string{"ifTable"}, chk.Tables)

	mp, ok := pkg.MPs["network"]
	require.True(t, ok)
	assert.Equal(t, "net", mp.Tag)
	assert.ElementsMatch(t, []string{"ifTable"}, mp.Tables)
}

func TestLoadPackageRejectsUnknownKeyword(t *testing.T) {
	_, err := LoadPackage(strings.NewReader("table x {\n  bogus y\n}\n"))
	require.Error(t, err)
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
}

func TestParseTypeHandlesCompositeForms(t *testing.T) {
	tests := []string{
		"Integer", "Quantity(Bandwidth)", "Enum(ok,warn,crit)",
		"Option(Integer)", "List(UnicodeString)", "Map(UnicodeString,Integer)",
		"Result(Integer,UnicodeString)",
	}
	for _, s := range tests {
		_, err := parseType(s)
		assert.NoError(t, err, s)
	}
}

func TestParseTypeRejectsUnknown(t *testing.T) {
	_, err := parseType("NotAType")
	assert.Error(t, err)
}
