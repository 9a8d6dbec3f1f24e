// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package proxmox implements the Proxmox VE protocol plugin:
// a `/cluster/resources` fetch plus a per-node status fetch. Per-node
// resource lists are not fetched.
package proxmox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/apiplugin"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

const (
	tableResources plugin.DataTableId = "resources"
	tableNodes     plugin.DataTableId = "nodes"
)

// ProtoConfig is the Proxmox protocol-config block.
type ProtoConfig struct {
	BaseURL     string `json:"base_url"`
	TokenID     string `json:"token_id"`
	TokenSecret string `json:"token_secret"`
	Insecure    bool   `json:"insecure"`
	Parallelism int    `json:"parallelism"`
}

// clusterResource mirrors one entry of GET /cluster/resources.
type clusterResource struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	Node    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  float64 `json:"maxcpu"`
	Mem     float64 `json:"mem"`
	MaxMem  float64 `json:"maxmem"`
	Disk    float64 `json:"disk"`
	MaxDisk float64 `json:"maxdisk"`
}

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// Plugin implements plugin.Plugin for protocol "proxmox".
type Plugin struct {
	Client *http.Client
}

// New builds the Proxmox plugin with the shared TLS-aware HTTP client.
func New(tls apiplugin.TLSConfig) (*Plugin, error) {
	client, err := apiplugin.NewHTTPClient(tls, 0)
	if err != nil {
		return nil, err
	}
	return &Plugin{Client: client}, nil
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "proxmox" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	return map[plugin.DataTableId]plugin.TableSpec{
		tableResources: {
			Name: "resources", Keys: []plugin.DataFieldId{"id"},
			Fields: []plugin.DataFieldId{"id", "type", "node", "status", "cpu", "maxcpu", "mem", "maxmem"},
		},
		tableNodes: {
			Name: "nodes", Keys: []plugin.DataFieldId{"node"},
			Fields: []plugin.DataFieldId{"node", "status"},
		},
	}, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	str := value.UnicodeString()
	return map[plugin.DataFieldId]plugin.FieldSpec{
		"id": {Name: "id", Type: str}, "type": {Name: "type", Type: str},
		"node": {Name: "node", Type: str}, "status": {Name: "status", Type: str},
		"cpu": {Name: "cpu", Type: value.Float()}, "maxcpu": {Name: "maxcpu", Type: value.Float()},
		"mem": {Name: "mem", Type: value.Float()}, "maxmem": {Name: "maxmem", Type: value.Float()},
	}, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	return "GET /api2/json/cluster/resources (+ per-node status for tableNodes)", nil
}

// RunQueries fetches /cluster/resources once, then (if requested) the
// per-node status endpoint for each distinct node found there, reporting
// "online" when the node's uptime is positive and "unknown" otherwise
// (discovery query first, then per-unit fan-out).
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}

	resources, err := p.fetchResources(ctx, cfg)
	if err != nil {
		return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindConnection, "plugin", err)), nil
	}

	out := plugin.DataMap{}
	if _, ok := tq[tableResources]; ok {
		rows := make([]value.Row, 0, len(resources))
		for _, r := range resources {
			rows = append(rows, value.Row{
				"id": value.DataOk(value.NewUnicodeString(r.ID)), "type": value.DataOk(value.NewUnicodeString(r.Type)),
				"node": value.DataOk(value.NewUnicodeString(r.Node)), "status": value.DataOk(value.NewUnicodeString(r.Status)),
				"cpu": value.DataOk(value.NewFloat(r.CPU)), "maxcpu": value.DataOk(value.NewFloat(r.MaxCPU)),
				"mem": value.DataOk(value.NewFloat(r.Mem)), "maxmem": value.DataOk(value.NewFloat(r.MaxMem)),
			})
		}
		out[tableResources] = value.AnnotatedOk[plugin.RowSet](rows)
	}
	if _, ok := tq[tableNodes]; ok {
		nodes := distinctNodes(resources)
		var mu sync.Mutex
		var rows []value.Row
		var warnings []agenterror.Warning
		err := apiplugin.RunBounded(ctx, apiplugin.Parallelism(cfg.Parallelism), len(nodes), func(ctx context.Context, i int) error {
			status, err := p.fetchNodeStatus(ctx, cfg, nodes[i])
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				warnings = append(warnings, agenterror.NewWarning(agenterror.KindConnection, nodes[i]))
				return nil
			}
			rows = append(rows, value.Row{
				"node":   value.DataOk(value.NewUnicodeString(nodes[i])),
				"status": value.DataOk(value.NewUnicodeString(status)),
			})
			return nil
		})
		if err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindTimeout, "plugin", err)), nil
		}
		out[tableNodes] = value.AnnotatedOk[plugin.RowSet](rows, warnings...)
	}
	return out, nil
}

func (p *Plugin) fetchResources(ctx context.Context, cfg ProtoConfig) ([]clusterResource, error) {
	var envelope apiEnvelope
	if err := p.get(ctx, cfg, "/api2/json/cluster/resources", &envelope); err != nil {
		return nil, err
	}
	var resources []clusterResource
	if err := json.Unmarshal(envelope.Data, &resources); err != nil {
		return nil, err
	}
	return resources, nil
}

func (p *Plugin) fetchNodeStatus(ctx context.Context, cfg ProtoConfig, node string) (string, error) {
	var envelope apiEnvelope
	if err := p.get(ctx, cfg, fmt.Sprintf("/api2/json/nodes/%s/status", node), &envelope); err != nil {
		return "", err
	}
	var status struct {
		Uptime int64 `json:"uptime"`
	}
	if err := json.Unmarshal(envelope.Data, &status); err != nil {
		return "", err
	}
	if status.Uptime > 0 {
		return "online", nil
	}
	return "unknown", nil
}

func (p *Plugin) get(ctx context.Context, cfg ProtoConfig, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", cfg.TokenID, cfg.TokenSecret))
	resp, err := apiplugin.DoRetry(p.Client, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(out)
}

func distinctNodes(resources []clusterResource) []string {
	seen := map[string]struct{}{}
	var nodes []string
	for _, r := range resources {
		if r.Node == "" {
			continue
		}
		if _, ok := seen[r.Node]; ok {
			continue
		}
		seen[r.Node] = struct{}{}
		nodes = append(nodes, r.Node)
	}
	return nodes
}
