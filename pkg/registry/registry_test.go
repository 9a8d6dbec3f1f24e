// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/plugin"
)

func TestBuildRegistersOnePluginPerProtocol(t *testing.T) {
	plugins, err := Build(t.TempDir())
	require.NoError(t, err)

	want := []string{"snmp", "sql", "wmi", "azure", "vmware", "unity", "proxmox", "elastic", "ldap"}
	assert.Len(t, plugins, len(want))
	for _, proto := range want {
		p, ok := plugins[plugin.Protocol(proto)]
		require.Truef(t, ok, "missing plugin for protocol %q", proto)
		assert.Equal(t, proto, string(p.ProtocolID()))
	}
}
