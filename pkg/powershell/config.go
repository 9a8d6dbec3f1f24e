// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package powershell implements the PowerShell/WMI protocol plugin's dual
// transport: a WinRM session
// (masterzen/winrm) and a custom mTLS "Windows agent" session, selected
// per host by ConnectionConfig.
package powershell

import (
	"context"
	"encoding/json"
	"fmt"
)

// Config is one host's PowerShell protocol-config block.
type Config struct {
	Connection    ConnectionConfig  `json:"connection"`
	ScriptContext map[string]string `json:"script_context,omitempty"`
}

// ConnectionConfig selects and parameterizes one transport
// (WinRM or WindowsAgent; exactly one must be set).
type ConnectionConfig struct {
	WinRM        *WinrmConfig        `json:"winrm,omitempty"`
	WindowsAgent *WindowsAgentConfig `json:"windows_agent,omitempty"`
}

// WinrmConfig parameterizes the native WinRM transport.
type WinrmConfig struct {
	Hostname                       string       `json:"hostname"`
	IPAddress                      string       `json:"ip_address,omitempty"`
	Credentials                    *Credentials `json:"credentials,omitempty"`
	HTTPS                          bool         `json:"https"`
	Port                           int          `json:"port,omitempty"`
	TimeoutSeconds                 int          `json:"timeout,omitempty"`
	CertificatePath                string       `json:"certificate,omitempty"`
	DisableHostnameVerification    bool         `json:"disable_hostname_verification,omitempty"`
	DisableCertificateVerification bool         `json:"disable_certificate_verification,omitempty"`
}

func (c WinrmConfig) port() int {
	if c.Port != 0 {
		return c.Port
	}
	if c.HTTPS {
		return 5986
	}
	return 5985
}

func (c WinrmConfig) timeout() int {
	if c.TimeoutSeconds != 0 {
		return c.TimeoutSeconds
	}
	return 10
}

// WindowsAgentConfig parameterizes the custom mTLS agent transport,
// authenticated by client certificate, default port 8099.
type WindowsAgentConfig struct {
	Hostname             string       `json:"hostname"`
	Port                 int          `json:"port,omitempty"`
	ServerRootCert       string       `json:"server_root_cert"`
	Credentials          *Credentials `json:"credentials,omitempty"`
	ConnectionTimeoutSec int          `json:"connection_timeout,omitempty"`
}

func (c WindowsAgentConfig) port() int {
	if c.Port != 0 {
		return c.Port
	}
	return 8099
}

func (c WindowsAgentConfig) timeout() int {
	if c.ConnectionTimeoutSec != 0 {
		return c.ConnectionTimeoutSec
	}
	return 10
}

// CredentialKind names one supported credential mechanism.
type CredentialKind string

const (
	CredBasic       CredentialKind = "basic"
	CredNtlm        CredentialKind = "ntlm"
	CredKerberos    CredentialKind = "kerberos"
	CredCertificate CredentialKind = "certificate"
)

// Credentials is the tagged union of auth material a session may need.
type Credentials struct {
	Kind CredentialKind `json:"kind"`

	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Domain   string `json:"domain,omitempty"`

	KerberosHostname string `json:"kerberos_hostname,omitempty"`
	Realm            string `json:"realm,omitempty"`
	CcacheName       string `json:"ccache_name,omitempty"`

	PrivateKeyPath string `json:"private_key,omitempty"`
	PublicCertPath string `json:"public_cert,omitempty"`
}

// NewSession dials the configured transport.
func (c Config) NewSession(ctx context.Context) (Session, error) {
	switch {
	case c.Connection.WinRM != nil:
		return dialWinrm(*c.Connection.WinRM)
	case c.Connection.WindowsAgent != nil:
		return dialWindowsAgent(ctx, *c.Connection.WindowsAgent)
	default:
		return nil, fmt.Errorf("powershell: no connection configured")
	}
}

// UnmarshalConfig decodes the protocol's opaque config blob into Config.
func UnmarshalConfig(raw []byte) (Config, error) {
	var cfg Config
	if len(raw) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(raw, &cfg)
	return cfg, err
}
