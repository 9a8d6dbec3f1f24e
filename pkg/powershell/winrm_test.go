// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertySelectEmptyWhenNoAttributes(t *testing.T) {
	assert.Equal(t, "", propertySelect(nil))
}

func TestPropertySelectJoinsAttributes(t *testing.T) {
	assert.Equal(t, "| Select-Object Name,Used", propertySelect([]string{"Name", "Used"}))
}

func TestWmiObjectScriptIncludesClassNamespaceAndSelect(t *testing.T) {
	got := wmiObjectScript("Win32_LogicalDisk", `root\cimv2`, []string{"Name"})
	assert.Contains(t, got, "Get-WmiObject -Class Win32_LogicalDisk")
	assert.Contains(t, got, `-Namespace root\cimv2`)
	assert.Contains(t, got, "Select-Object Name")
	assert.Contains(t, got, "ConvertTo-Json -Compress")
}

func TestCimInstanceScriptUsesGetCimInstance(t *testing.T) {
	got := cimInstanceScript("Win32_Process", `root\cimv2`, nil)
	assert.Contains(t, got, "Get-CimInstance -ClassName Win32_Process")
}

func TestParseJSONRowsHandlesArrayOutput(t *testing.T) {
	rows, err := parseJSONRows(`[{"Name":"disk0","Used":"42"},{"Name":"disk1","Used":null}]`)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "disk0", rows[0]["Name"])
	assert.Equal(t, "", rows[1]["Used"])
}

func TestParseJSONRowsHandlesSingleObjectOutput(t *testing.T) {
	rows, err := parseJSONRows(`{"Name":"disk0","Used":"42"}`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "disk0", rows[0]["Name"])
}

func TestParseJSONRowsEmptyStringReturnsNil(t *testing.T) {
	rows, err := parseJSONRows("")
	require.NoError(t, err)
	assert.Nil(t, rows)
}

func TestParseJSONRowsFlattensNonStringValues(t *testing.T) {
	rows, err := parseJSONRows(`{"Count":42,"Name":"disk0"}`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "42", rows[0]["Count"])
}

func TestParseJSONRowsRejectsInvalidJSON(t *testing.T) {
	_, err := parseJSONRows("not json")
	assert.Error(t, err)
}
