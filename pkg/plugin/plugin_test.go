// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smartagent/agent/pkg/agenterror"
)

func TestQueryPlanRequestBuildsNestedSets(t *testing.T) {
	plan := make(QueryPlan)
	plan.Request("snmp", "ifTable", "ifInOctets")
	plan.Request("snmp", "ifTable", "ifOutOctets")
	plan.Request("snmp", "sysTable", "sysUpTime")

	assert.True(t, plan["snmp"]["ifTable"].Has("ifInOctets"))
	assert.True(t, plan["snmp"]["ifTable"].Has("ifOutOctets"))
	assert.Len(t, plan["snmp"]["ifTable"], 2)
	assert.True(t, plan["snmp"]["sysTable"].Has("sysUpTime"))
}

func TestNewInvocationIDIsUniquePerCall(t *testing.T) {
	a := NewInvocationID()
	b := NewInvocationID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestFatalForAllTablesCoversEveryRequestedTable(t *testing.T) {
	plan := TableQuery{
		"a": NewFieldSet("x"),
		"b": NewFieldSet("y"),
	}
	fatal := agenterror.NewFatal(agenterror.KindConnection, "plugin", nil)
	dm := FatalForAllTables(plan, fatal)

	require := assert.New(t)
	require.Len(dm, 2)
	for _, tableID := range []DataTableId{"a", "b"} {
		ar, ok := dm[tableID]
		require.True(ok)
		require.False(ar.IsOk())
		require.Equal(fatal, ar.Error())
	}
}
