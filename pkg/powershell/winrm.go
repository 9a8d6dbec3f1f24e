// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/masterzen/winrm"

	"github.com/smartagent/agent/pkg/agenterror"
)

// winrmSession implements Session over masterzen/winrm: shell-per-call,
// scripts run as PowerShell, WMI/CIM fetched by running a PowerShell
// query and parsing its JSON output.
type winrmSession struct {
	client *winrm.Client
}

func dialWinrm(cfg WinrmConfig) (Session, error) {
	endpoint := winrm.NewEndpoint(
		cfg.Hostname, cfg.port(), cfg.HTTPS,
		cfg.DisableCertificateVerification, nil, nil, nil,
		time.Duration(cfg.timeout())*time.Second,
	)
	user, password, err := cfg.credentials()
	if err != nil {
		return nil, err
	}
	client, err := winrm.NewClient(endpoint, user, password)
	if err != nil {
		return nil, err
	}
	return &winrmSession{client: client}, nil
}

// credentials resolves a WinrmConfig's auth material; masterzen/winrm
// natively speaks HTTP Basic, so Ntlm is sent as Basic over the
// transport-level TLS channel, and Kerberos/Certificate are refused for
// WinRM (Kerberos additionally has no Go client in this module's
// dependency set).
func (c WinrmConfig) credentials() (user, password string, err error) {
	if c.Credentials == nil {
		return "", "", agenterror.New(agenterror.KindAuthentication)
	}
	switch c.Credentials.Kind {
	case CredBasic, CredNtlm:
		return c.Credentials.Username, c.Credentials.Password, nil
	default:
		return "", "", fmt.Errorf("powershell: credential kind %q unsupported over winrm", c.Credentials.Kind)
	}
}

func (s *winrmSession) RunPS(ctx context.Context, script string) (CommandOutput, error) {
	var stdout, stderr bytes.Buffer
	exitCode, err := s.client.RunWithContextWithInput(ctx, winrm.Powershell(script), &stdout, &stderr, nil)
	if err != nil {
		return CommandOutput{}, err
	}
	return CommandOutput{ExitCode: exitCode, Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

// GetWMIObject runs Get-WmiObject filtered to namespace/class/attributes
// and parses its ConvertTo-Json output.
func (s *winrmSession) GetWMIObject(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	return s.queryAndParse(ctx, wmiObjectScript(class, namespace, attributes))
}

func (s *winrmSession) GetCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	return s.queryAndParse(ctx, cimInstanceScript(class, namespace, attributes))
}

// EnumerateCimInstance and GetCimInstance reduce to the same
// Get-CimInstance invocation over WinRM.
func (s *winrmSession) EnumerateCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	return s.GetCimInstance(ctx, class, namespace, attributes)
}

func (s *winrmSession) queryAndParse(ctx context.Context, script string) ([]map[string]string, error) {
	out, err := s.RunPS(ctx, script)
	if err != nil {
		return nil, err
	}
	if err := out.IntoResult(); err != nil {
		return nil, err
	}
	return parseJSONRows(out.Stdout)
}

func (s *winrmSession) Close() error { return nil }

func wmiObjectScript(class, namespace string, attributes []string) string {
	return fmt.Sprintf(
		"Get-WmiObject -Class %s -Namespace %s %s | ConvertTo-Json -Compress",
		class, namespace, propertySelect(attributes))
}

func cimInstanceScript(class, namespace string, attributes []string) string {
	return fmt.Sprintf(
		"Get-CimInstance -ClassName %s -Namespace %s %s | ConvertTo-Json -Compress",
		class, namespace, propertySelect(attributes))
}

func propertySelect(attributes []string) string {
	if len(attributes) == 0 {
		return ""
	}
	return "| Select-Object " + strings.Join(attributes, ",")
}

// parseJSONRows decodes PowerShell's ConvertTo-Json output, which emits a
// single object (not an array) when exactly one row matched.
func parseJSONRows(raw string) ([]map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		var single map[string]interface{}
		if err2 := json.Unmarshal([]byte(raw), &single); err2 != nil {
			return nil, err
		}
		rows = []map[string]interface{}{single}
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		flat := make(map[string]string, len(row))
		for k, v := range row {
			if v == nil {
				flat[k] = ""
				continue
			}
			if s, ok := v.(string); ok {
				flat[k] = s
				continue
			}
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
		out = append(out, flat)
	}
	return out, nil
}
