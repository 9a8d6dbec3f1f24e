// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package elastic implements the Elasticsearch protocol plugin:
// node/cluster-root traversal of the `_nodes/stats` and
// `_cluster/stats` trees with `~`-parent annotation.
package elastic

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

const (
	tableNodeStats    plugin.DataTableId = "node_stats"
	tableClusterStats plugin.DataTableId = "cluster_stats"
)

// ProtoConfig is the Elasticsearch protocol-config block.
type ProtoConfig struct {
	Addresses []string `json:"addresses"`
	Username  string   `json:"username"`
	Password  string   `json:"password"`
	APIKey    string   `json:"api_key"`
}

// Plugin implements plugin.Plugin for protocol "elastic".
type Plugin struct {
	NewClient func(cfg ProtoConfig) (*elasticsearch.Client, error)
}

// New builds the Elasticsearch plugin.
func New() *Plugin { return &Plugin{NewClient: defaultClient} }

func defaultClient(cfg ProtoConfig) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses, Username: cfg.Username, Password: cfg.Password, APIKey: cfg.APIKey,
	})
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "elastic" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	return map[plugin.DataTableId]plugin.TableSpec{
		tableNodeStats:    {Name: "node_stats", Keys: []plugin.DataFieldId{"path"}, Fields: []plugin.DataFieldId{"path", "parent", "grandparent", "value"}},
		tableClusterStats: {Name: "cluster_stats", Keys: []plugin.DataFieldId{"path"}, Fields: []plugin.DataFieldId{"path", "parent", "grandparent", "value"}},
	}, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	str := value.UnicodeString()
	return map[plugin.DataFieldId]plugin.FieldSpec{
		"path": {Name: "path", Type: str}, "parent": {Name: "parent", Type: str},
		"grandparent": {Name: "grandparent", Type: str}, "value": {Name: "value", Type: value.JSON()},
	}, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	return "GET _nodes/stats, GET _cluster/stats (leaf values annotated with ~/~~ parent keys)", nil
}

// RunQueries fetches _nodes/stats and/or _cluster/stats, annotates every
// nested object with its parent/grandparent key, and flattens leaves into
// rows keyed by their dotted path.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}
	client, err := p.NewClient(cfg)
	if err != nil {
		return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindConnection, "plugin", err)), nil
	}

	out := plugin.DataMap{}
	if _, ok := tq[tableNodeStats]; ok {
		rows, err := p.fetchTree(ctx, client, esapi.NodesStatsRequest{})
		if err != nil {
			out[tableNodeStats] = value.AnnotatedErr[plugin.RowSet](agenterror.NewFatal(agenterror.KindQuery, "table", err))
		} else {
			out[tableNodeStats] = value.AnnotatedOk[plugin.RowSet](rows)
		}
	}
	if _, ok := tq[tableClusterStats]; ok {
		rows, err := p.fetchTree(ctx, client, esapi.ClusterStatsRequest{})
		if err != nil {
			out[tableClusterStats] = value.AnnotatedErr[plugin.RowSet](agenterror.NewFatal(agenterror.KindQuery, "table", err))
		} else {
			out[tableClusterStats] = value.AnnotatedOk[plugin.RowSet](rows)
		}
	}
	return out, nil
}

type doer interface {
	Do(ctx context.Context, transport esapi.Transport) (*esapi.Response, error)
}

func (p *Plugin) fetchTree(ctx context.Context, client *elasticsearch.Client, req doer) ([]value.Row, error) {
	resp, err := req.Do(ctx, client)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var tree interface{}
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		return nil, err
	}
	addParents(tree, "", "")
	var rows []value.Row
	flatten(tree, nil, &rows)
	return rows, nil
}

// addParents injects "~" (the immediate parent key) and "~~" (the
// grandparent key) into every nested object, skipping the injected keys
// themselves on recursion.
func addParents(node interface{}, parent, grandparent string) {
	switch v := node.(type) {
	case []interface{}:
		for _, item := range v {
			addParents(item, "", parent)
		}
	case map[string]interface{}:
		if parent != "" {
			v["~"] = parent
		}
		if grandparent != "" {
			v["~~"] = grandparent
		}
		for key, val := range v {
			if key == "~" || key == "~~" {
				continue
			}
			addParents(val, key, parent)
		}
	}
}

// flatten walks the annotated tree, emitting one row per scalar leaf with
// its dotted path and the parent/grandparent annotations found on its
// enclosing object.
func flatten(node interface{}, path []string, rows *[]value.Row) {
	switch v := node.(type) {
	case map[string]interface{}:
		parent, _ := v["~"].(string)
		grandparent, _ := v["~~"].(string)
		for key, val := range v {
			if key == "~" || key == "~~" {
				continue
			}
			if scalarLeaf(val) {
				raw, _ := json.Marshal(val)
				*rows = append(*rows, value.Row{
					"path":        value.DataOk(value.NewUnicodeString(strings.Join(append(path, key), "."))),
					"parent":      value.DataOk(value.NewUnicodeString(parent)),
					"grandparent": value.DataOk(value.NewUnicodeString(grandparent)),
					"value":       jsonData(raw),
				})
				continue
			}
			flatten(val, append(path, key), rows)
		}
	case []interface{}:
		for i, item := range v {
			flatten(item, append(path, strconv.Itoa(i)), rows)
		}
	}
}

func scalarLeaf(v interface{}) bool {
	switch v.(type) {
	case float64, string, bool, nil:
		return true
	default:
		return false
	}
}

func jsonData(raw []byte) value.Data {
	var anyVal interface{}
	if err := json.Unmarshal(raw, &anyVal); err != nil {
		return value.DataErr(agenterror.New(agenterror.KindValueError))
	}
	return value.DataOk(value.NewJSON(anyVal))
}
