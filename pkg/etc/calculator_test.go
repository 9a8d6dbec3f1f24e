// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/expr"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

func mustParseExpr(t *testing.T, src string) expr.Expr {
	t.Helper()
	e, err := expr.Parse(src)
	require.NoError(t, err)
	return e
}

func TestCalculateFoldsProtocolRowsIntoItems(t *testing.T) {
	ts := TableSpec{
		ID:    "ifTable",
		Query: QueryRef{Protocol: "snmp", DataTable: "ifTable"},
		Fields: []FieldSpec{
			{ID: "ifDescr", Source: "ifDescr", Expr: mustParseExpr(t, "@")},
			{ID: "ifInOctets", Source: "ifInOctets", Expr: mustParseExpr(t, "@")},
		},
	}
	pkg := NewPackage()
	pkg.Tables["ifTable"] = ts

	row := value.Row{
		"ifDescr":    value.DataOk(value.NewUnicodeString("eth0")),
		"ifInOctets": value.DataOk(value.NewInteger(42)),
	}
	data := plugin.DataMap{
		"ifTable": value.AnnotatedOk[plugin.RowSet](plugin.RowSet{row}),
	}

	results, warnings := Calculate(pkg, []string{"ifTable"}, data)
	assert.Empty(t, warnings)
	require.Len(t, results["ifTable"], 1)

	item := results["ifTable"][0]
	descr, ok := item.Fields["ifDescr"].Value()
	require.True(t, ok)
	s, _ := descr.AsString()
	assert.Equal(t, "eth0", s)

	octets, ok := item.Fields["ifInOctets"].Value()
	require.True(t, ok)
	n, _ := octets.AsInteger()
	assert.Equal(t, int64(42), n)
}

func TestCalculateSkipsTableMissingFromDataMap(t *testing.T) {
	ts := TableSpec{ID: "t", Query: QueryRef{Protocol: "snmp", DataTable: "missing"}}
	pkg := NewPackage()
	pkg.Tables["t"] = ts

	results, _ := Calculate(pkg, []string{"t"}, plugin.DataMap{})
	assert.Nil(t, results["t"])
}

func TestCalculatePropagatesAnnotatedWarnings(t *testing.T) {
	ts := TableSpec{ID: "t", Query: QueryRef{Protocol: "snmp", DataTable: "t"}}
	pkg := NewPackage()
	pkg.Tables["t"] = ts

	data := plugin.DataMap{
		"t": value.AnnotatedOk[plugin.RowSet](plugin.RowSet{}, agenterror.NewWarning(agenterror.KindMissing, "probe")),
	}
	_, warnings := Calculate(pkg, []string{"t"}, data)
	require.Len(t, warnings, 1)
}

func TestCalculateDerivedFieldReferencesEarlierSibling(t *testing.T) {
	ts := TableSpec{
		ID:    "t",
		Query: QueryRef{Protocol: "snmp", DataTable: "t"},
		Fields: []FieldSpec{
			{ID: "raw", Source: "raw", Expr: mustParseExpr(t, "@")},
			{ID: "doubled", Expr: mustParseExpr(t, "raw * 2")},
		},
	}
	pkg := NewPackage()
	pkg.Tables["t"] = ts

	row := value.Row{"raw": value.DataOk(value.NewInteger(21))}
	data := plugin.DataMap{"t": value.AnnotatedOk[plugin.RowSet](plugin.RowSet{row})}

	results, _ := Calculate(pkg, []string{"t"}, data)
	require.Len(t, results["t"], 1)
	doubled, ok := results["t"][0].Fields["doubled"].Value()
	require.True(t, ok)
	n, _ := doubled.AsInteger()
	assert.Equal(t, int64(42), n)
}
