// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartagent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDecodesHostAndProtocols(t *testing.T) {
	path := writeTempConfig(t, `
host_name: web01
host_addr: 10.0.0.5
tags: [prod, web]
checks: [cpu, disk]
protocols:
  snmp:
    community: public
    version: "2c"
agent:
  use_password_vault: keepass
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "web01", cfg.HostName)
	assert.Equal(t, "10.0.0.5", cfg.HostAddr)
	assert.True(t, cfg.HasTag("prod"))
	assert.False(t, cfg.HasTag("staging"))
	assert.True(t, cfg.EnabledChecks("cpu"))
	assert.False(t, cfg.EnabledChecks("memory"))
	assert.Equal(t, VaultKeePass, cfg.Agent.UsePasswordVault)

	raw, err := cfg.ProtocolConfig("snmp")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "public")
}

func TestLoadDefaultsVaultToNoneAndEmptyChecksAllowAll(t *testing.T) {
	path := writeTempConfig(t, "host_name: h\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, VaultNone, cfg.Agent.UsePasswordVault)
	assert.True(t, cfg.EnabledChecks("anything"))
}

func TestLoadRejectsInvalidHostAddr(t *testing.T) {
	path := writeTempConfig(t, "host_addr: not-an-ip\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestInputAdaptsHostAddr(t *testing.T) {
	path := writeTempConfig(t, "host_name: h\nhost_addr: 127.0.0.1\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	input := cfg.Input()
	assert.Equal(t, "h", input.HostName)
	assert.Equal(t, "127.0.0.1", input.HostAddr.String())
}

func TestProtocolConfigMissingReturnsNil(t *testing.T) {
	path := writeTempConfig(t, "host_name: h\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	raw, err := cfg.ProtocolConfig("azure")
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestMergeOverrideOverridesKeys(t *testing.T) {
	base := map[string]interface{}{"user": "default", "timeout": 30}
	override := map[string]interface{}{"user": "vault-user"}

	merged, err := MergeOverride(base, override)
	require.NoError(t, err)
	assert.Equal(t, "vault-user", merged["user"])
	assert.Equal(t, 30, merged["timeout"])
}
