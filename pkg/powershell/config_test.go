// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinrmConfigPortDefaultsByScheme(t *testing.T) {
	assert.Equal(t, 5985, WinrmConfig{}.port())
	assert.Equal(t, 5986, WinrmConfig{HTTPS: true}.port())
	assert.Equal(t, 15985, WinrmConfig{Port: 15985}.port())
}

func TestWinrmConfigTimeoutDefaultsToTenSeconds(t *testing.T) {
	assert.Equal(t, 10, WinrmConfig{}.timeout())
	assert.Equal(t, 30, WinrmConfig{TimeoutSeconds: 30}.timeout())
}

func TestWindowsAgentConfigPortDefaultsTo8099(t *testing.T) {
	assert.Equal(t, 8099, WindowsAgentConfig{}.port())
	assert.Equal(t, 9000, WindowsAgentConfig{Port: 9000}.port())
}

func TestWindowsAgentConfigTimeoutDefaultsToTenSeconds(t *testing.T) {
	assert.Equal(t, 10, WindowsAgentConfig{}.timeout())
	assert.Equal(t, 60, WindowsAgentConfig{ConnectionTimeoutSec: 60}.timeout())
}

func TestWinrmConfigCredentialsAcceptsBasicAndNtlm(t *testing.T) {
	cfg := WinrmConfig{Credentials: &Credentials{Kind: CredBasic, Username: "u", Password: "p"}}
	user, pass, err := cfg.credentials()
	require.NoError(t, err)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)

	cfg.Credentials.Kind = CredNtlm
	user, pass, err = cfg.credentials()
	require.NoError(t, err)
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)
}

func TestWinrmConfigCredentialsRejectsKerberosAndCertificate(t *testing.T) {
	cfg := WinrmConfig{Credentials: &Credentials{Kind: CredKerberos}}
	_, _, err := cfg.credentials()
	assert.Error(t, err)

	cfg.Credentials.Kind = CredCertificate
	_, _, err = cfg.credentials()
	assert.Error(t, err)
}

func TestWinrmConfigCredentialsRequiresCredentials(t *testing.T) {
	_, _, err := WinrmConfig{}.credentials()
	assert.Error(t, err)
}

func TestConfigNewSessionRequiresAConnection(t *testing.T) {
	_, err := Config{}.NewSession(nil)
	assert.Error(t, err)
}

func TestUnmarshalConfigEmptyInputReturnsZeroValue(t *testing.T) {
	cfg, err := UnmarshalConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestUnmarshalConfigDecodesWinrmBlock(t *testing.T) {
	raw := []byte(`{"connection":{"winrm":{"hostname":"host1","https":true}}}`)
	cfg, err := UnmarshalConfig(raw)
	require.NoError(t, err)
	require.NotNil(t, cfg.Connection.WinRM)
	assert.Equal(t, "host1", cfg.Connection.WinRM.Hostname)
	assert.True(t, cfg.Connection.WinRM.HTTPS)
}
