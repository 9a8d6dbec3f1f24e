// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package wmiplugin

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

func TestFieldTypeMapsCounterToValueType(t *testing.T) {
	assert.Equal(t, value.UnicodeString(), fieldType(CounterText))
	assert.Equal(t, value.Float(), fieldType(CounterRawFraction))
	assert.Equal(t, value.Integer(), fieldType(CounterRawcount))
}

func TestPropertiesListsEachFieldsBoundProperty(t *testing.T) {
	table := TableWMI{
		Fields: map[plugin.DataFieldId]FieldWMI{
			"a": {Property: "PercentProcessorTime"},
			"b": {Property: "Name"},
		},
	}
	got := properties(table)
	assert.ElementsMatch(t, []string{"PercentProcessorTime", "Name"}, got)
}

func TestInstanceRowBuildsCompositeKeyAndEvaluatesFields(t *testing.T) {
	p := &Plugin{Store: newStore(t)}
	table := TableWMI{
		KeyProp: "Name",
		Fields: map[plugin.DataFieldId]FieldWMI{
			"name":  {Property: "Name", IsKey: true},
			"value": {Property: "Used", Counter: CounterRawcount},
		},
	}
	inst := map[string]string{"Name": "disk0", "Used": "42"}

	var warnings []agenterror.Warning
	row := p.instanceRow("disks", table, inst, time.Now(), &warnings)

	assert.Empty(t, warnings)
	name, ok := row["name"].Value()
	require.True(t, ok)
	assert.Equal(t, "disk0", name.String())

	val, ok := row["value"].Value()
	require.True(t, ok)
	assert.Equal(t, "42", val.String())
}

func TestInstanceRowWarnsWhenEvaluateFails(t *testing.T) {
	p := &Plugin{Store: newStore(t)}
	table := TableWMI{
		Fields: map[plugin.DataFieldId]FieldWMI{
			"value": {Property: "Missing", Counter: CounterRawcount},
		},
	}

	var warnings []agenterror.Warning
	row := p.instanceRow("disks", table, map[string]string{}, time.Now(), &warnings)

	assert.NotEmpty(t, warnings)
	assert.False(t, row["value"].IsOk())
}

func TestRunQueriesEvaluatesEveryRequestedTable(t *testing.T) {
	catalog := Catalog{Tables: map[plugin.DataTableId]TableWMI{
		"disks": {
			Class:   "Win32_PerfRawData_PerfDisk_PhysicalDisk",
			Query:   "SELECT * FROM Win32_PerfRawData_PerfDisk_PhysicalDisk",
			KeyProp: "Name",
			Fields: map[plugin.DataFieldId]FieldWMI{
				"name": {Property: "Name", IsKey: true},
				"used": {Property: "Used", Counter: CounterRawcount},
			},
		},
	}}

	p := &Plugin{
		Catalog: catalog,
		Store:   newStore(t),
		Query: func(ctx context.Context, cfg ProtoConfig, wql string) ([]map[string]string, error) {
			return []map[string]string{{"Name": "disk0", "Used": "7"}}, nil
		},
	}

	tq := plugin.TableQuery{"disks": plugin.NewFieldSet("name", "used")}
	out, err := p.RunQueries(context.Background(), plugin.Input{}, json.RawMessage(nil), tq)
	require.NoError(t, err)

	rowSet, ok := out["disks"].Value()
	require.True(t, ok)
	require.Len(t, rowSet, 1)

	used, ok := rowSet[0]["used"].Value()
	require.True(t, ok)
	assert.Equal(t, "7", used.String())
}

func TestRunQueriesReturnsFatalOnQueryError(t *testing.T) {
	catalog := Catalog{Tables: map[plugin.DataTableId]TableWMI{
		"disks": {Fields: map[plugin.DataFieldId]FieldWMI{"name": {Property: "Name", IsKey: true}}},
	}}
	p := &Plugin{
		Catalog: catalog,
		Store:   newStore(t),
		Query: func(ctx context.Context, cfg ProtoConfig, wql string) ([]map[string]string, error) {
			return nil, assert.AnError
		},
	}

	tq := plugin.TableQuery{"disks": plugin.NewFieldSet("name")}
	out, err := p.RunQueries(context.Background(), plugin.Input{}, json.RawMessage(nil), tq)
	require.NoError(t, err)
	assert.False(t, out["disks"].IsOk())
}
