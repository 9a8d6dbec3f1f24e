// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/plugin"
)

func TestQueriesForBuildsPerProtocolPlan(t *testing.T) {
	pkg := NewPackage()
	pkg.Tables["ifTable"] = TableSpec{
		ID:    "ifTable",
		Query: QueryRef{Protocol: "snmp", DataTable: "ifTable"},
		Fields: []FieldSpec{
			{ID: "ifDescr", Source: "ifDescr"},
			{ID: "ifInOctets", Source: "ifInOctets"},
		},
	}
	pkg.Tables["cpu"] = TableSpec{
		ID:    "cpu",
		Query: QueryRef{Protocol: "wmi", DataTable: "Win32_Processor"},
		Fields: []FieldSpec{
			{ID: "load"},
		},
	}

	plan := pkg.QueriesFor([]string{"ifTable", "cpu"})
	require.Contains(t, plan, plugin.Protocol("snmp"))
	require.Contains(t, plan, plugin.Protocol("wmi"))

	snmpFields := plan["snmp"]["ifTable"]
	assert.True(t, snmpFields.Has("ifDescr"))
	assert.True(t, snmpFields.Has("ifInOctets"))

	wmiFields := plan["wmi"]["Win32_Processor"]
	assert.True(t, wmiFields.Has("load"))
}

func TestQueriesForSkipsUnknownTable(t *testing.T) {
	pkg := NewPackage()
	plan := pkg.QueriesFor([]string{"nonexistent"})
	assert.Empty(t, plan)
}
