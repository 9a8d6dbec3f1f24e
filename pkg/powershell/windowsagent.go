// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package powershell

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
)

// windowsAgentSession implements Session over the custom mTLS framed-RPC
// Windows agent transport, authenticated by client certificate against
// the agent's root CA. Each call opens a framed request/response
// round-trip over a fresh TLS connection: a 4-byte big-endian length
// prefix followed by a JSON payload, mirrored back by the server.
type windowsAgentSession struct {
	addr      string
	tlsConfig *tls.Config
	timeout   time.Duration
}

// agentCommand is the framed request body: a PowerShell script or a WMI
// class query.
type agentCommand struct {
	Kind      string   `json:"kind"` // "powershell" | "wmi"
	Script    string   `json:"script,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Class     string   `json:"class,omitempty"`
	Attrs     []string `json:"attributes,omitempty"`
}

type agentResponse struct {
	Stdout string `json:"stdout"`
	Error  string `json:"error,omitempty"`
}

func dialWindowsAgent(ctx context.Context, cfg WindowsAgentConfig) (Session, error) {
	if cfg.Credentials == nil || cfg.Credentials.Kind != CredCertificate {
		return nil, agenterror.New(agenterror.KindAuthentication)
	}
	cert, err := tls.LoadX509KeyPair(cfg.Credentials.PublicCertPath, cfg.Credentials.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	caPEM, err := os.ReadFile(cfg.ServerRootCert)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", nil)
	}
	return &windowsAgentSession{
		addr:      fmt.Sprintf("%s:%d", cfg.Hostname, cfg.port()),
		tlsConfig: &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, ServerName: cfg.Hostname},
		timeout:   time.Duration(cfg.timeout()) * time.Second,
	}, nil
}

func (s *windowsAgentSession) RunPS(ctx context.Context, script string) (CommandOutput, error) {
	resp, err := s.request(ctx, agentCommand{Kind: "powershell", Script: script})
	if err != nil {
		return CommandOutput{}, err
	}
	if resp.Error != "" {
		return CommandOutput{ExitCode: 1, Stderr: resp.Error}, nil
	}
	return CommandOutput{Stdout: resp.Stdout}, nil
}

func (s *windowsAgentSession) GetWMIObject(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	resp, err := s.request(ctx, agentCommand{Kind: "wmi", Class: class, Namespace: namespace, Attrs: attributes})
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("powershell: windows agent: %s", resp.Error)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(resp.Stdout), &rows); err != nil {
		return nil, err
	}
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		flat := make(map[string]string, len(row))
		for k, v := range row {
			if v == nil {
				continue
			}
			if str, ok := v.(string); ok {
				flat[k] = str
				continue
			}
			b, _ := json.Marshal(v)
			flat[k] = string(b)
		}
		out = append(out, flat)
	}
	return out, nil
}

// GetCimInstance and EnumerateCimInstance reduce to the same WMI command
// over this transport.
func (s *windowsAgentSession) GetCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	return s.GetWMIObject(ctx, class, namespace, attributes)
}

func (s *windowsAgentSession) EnumerateCimInstance(ctx context.Context, class, namespace string, attributes []string) ([]map[string]string, error) {
	return s.GetWMIObject(ctx, class, namespace, attributes)
}

func (s *windowsAgentSession) Close() error { return nil }

func (s *windowsAgentSession) request(ctx context.Context, cmd agentCommand) (agentResponse, error) {
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", s.addr, s.tlsConfig)
	if err != nil {
		return agentResponse{}, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return agentResponse{}, err
	}
	if err := writeFrame(conn, payload); err != nil {
		return agentResponse{}, err
	}
	frame, err := readFrame(conn)
	if err != nil {
		return agentResponse{}, err
	}
	var resp agentResponse
	if err := json.Unmarshal(frame, &resp); err != nil {
		return agentResponse{}, err
	}
	return resp, nil
}

func writeFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
