// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
)

func newEntry(dn string, attrs map[string]string) *ldap.Entry {
	var list []*ldap.EntryAttribute
	for name, v := range attrs {
		list = append(list, &ldap.EntryAttribute{Name: name, Values: []string{v}})
	}
	return &ldap.Entry{DN: dn, Attributes: list}
}

func TestReplicationStatusRegexExtractsCodeAndText(t *testing.T) {
	m := replicationUpdateStatusRegex.FindStringSubmatch("Error (0) Replica update succeeded")
	require.NotNil(t, m)
	assert.Equal(t, "0", m[1])
	assert.Equal(t, "Replica update succeeded", m[2])

	assert.Nil(t, replicationUpdateStatusRegex.FindStringSubmatch("all good"))
}

func TestReplicationRowDecodesJSONStatus(t *testing.T) {
	entry := newEntry("cn=agmt1,cn=config", map[string]string{
		"nsds5replicaLastUpdateStatusJSON": `{"state":"green","ldap_rc":"0","repl_rc":"0","message":"ok","date":"2026-07-31T00:00:00Z"}`,
		"nsds5replicaLastUpdateStatus":     "Error (0) Replica update succeeded",
	})

	var warnings []agenterror.Warning
	row := replicationRow(entry, &warnings)

	assert.Empty(t, warnings)

	state, ok := row["state"].Value()
	require.True(t, ok)
	assert.Equal(t, "green", state.String())

	code, ok := row["status_code"].Value()
	require.True(t, ok)
	assert.Equal(t, "0", code.String())

	text, ok := row["status_text"].Value()
	require.True(t, ok)
	assert.Equal(t, "Replica update succeeded", text.String())
}

func TestReplicationRowWarnsOnMissingAttributes(t *testing.T) {
	entry := newEntry("cn=agmt2,cn=config", nil)

	var warnings []agenterror.Warning
	row := replicationRow(entry, &warnings)

	assert.NotEmpty(t, warnings)
	assert.False(t, row["state"].IsOk())
	assert.False(t, row["status_code"].IsOk())
}

func TestReplicationRowWarnsOnMalformedStatusLine(t *testing.T) {
	entry := newEntry("cn=agmt3,cn=config", map[string]string{
		"nsds5replicaLastUpdateStatus": "not a recognizable status line",
	})

	var warnings []agenterror.Warning
	row := replicationRow(entry, &warnings)

	assert.NotEmpty(t, warnings)
	assert.False(t, row["status_code"].IsOk())
	assert.False(t, row["status_text"].IsOk())
}
