// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package unity implements the Dell EMC Unity protocol plugin:
// a HAL (`_links`) paginated REST client over the Unisphere API, with a
// MetricType model of the metric-type codes (sum/counter/average/rate/fact).
// The "average" aggregation is an unweighted mean, `sum / #samples`, with no
// time-weighting across uneven sample gaps. RunQueries reduces every metric
// path with that average; it does not read a metric's type code.
package unity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/apiplugin"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

const tableMetrics plugin.DataTableId = "metrics"

// MetricType selects how samples for one metric path combine into a
// single value.
type MetricType int

const (
	MetricSum MetricType = iota
	MetricCounter
	MetricAverage
	MetricRate
	MetricFact
)

// Aggregate reduces a metric's samples per its MetricType. Rate and Fact
// both reduce as an unweighted mean.
func (mt MetricType) Aggregate(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	switch mt {
	case MetricSum:
		var sum float64
		for _, s := range samples {
			sum += s
		}
		return sum
	case MetricCounter:
		return samples[len(samples)-1]
	default: // MetricAverage, MetricRate, MetricFact
		var sum float64
		for _, s := range samples {
			sum += s
		}
		return sum / float64(len(samples))
	}
}

// ProtoConfig is the Unity protocol-config block.
type ProtoConfig struct {
	BaseURL     string   `json:"base_url"`
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	Insecure    bool     `json:"insecure"`
	MetricPaths []string `json:"metric_paths"`
}

// HALResponse is the generic HAL envelope every Unisphere list endpoint
// returns.
type HALResponse struct {
	Entries []struct {
		Content json.RawMessage `json:"content"`
	} `json:"entries"`
	Links []struct {
		Rel  string `json:"rel"`
		Href string `json:"href"`
	} `json:"links"`
}

func (r HALResponse) nextHref() (string, bool) {
	for _, l := range r.Links {
		if l.Rel == "next" {
			return l.Href, true
		}
	}
	return "", false
}

// Plugin implements plugin.Plugin for protocol "unity".
type Plugin struct {
	Client *http.Client
}

// New builds the Unity plugin with the shared TLS-aware HTTP client.
func New(tls apiplugin.TLSConfig) (*Plugin, error) {
	client, err := apiplugin.NewHTTPClient(tls, 0)
	if err != nil {
		return nil, err
	}
	return &Plugin{Client: client}, nil
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "unity" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	return map[plugin.DataTableId]plugin.TableSpec{
		tableMetrics: {
			Name: "metrics", Keys: []plugin.DataFieldId{"path", "id"},
			Fields: []plugin.DataFieldId{"path", "id", "value"},
		},
	}, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	return map[plugin.DataFieldId]plugin.FieldSpec{
		"path":  {Name: "path", Type: value.UnicodeString()},
		"id":    {Name: "id", Type: value.UnicodeString()},
		"value": {Name: "value", Type: value.Float()},
	}, nil
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	return "GET /api/types/metricValue/instances paginated per metric path", nil
}

// RunQueries pages through each configured metric path's historical
// values, following HAL `next` links, and reduces each metric's samples to
// their unweighted mean (MetricAverage); the metric's type code is not
// consulted.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	if _, ok := tq[tableMetrics]; !ok {
		return plugin.DataMap{}, nil
	}
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}

	var rows []value.Row
	var warnings []agenterror.Warning
	for _, path := range cfg.MetricPaths {
		samples, err := p.fetchAll(ctx, cfg, path)
		if err != nil {
			warnings = append(warnings, agenterror.NewWarning(agenterror.KindConnection, path))
			continue
		}
		v := MetricAverage.Aggregate(samples)
		rows = append(rows, value.Row{
			"path":  value.DataOk(value.NewUnicodeString(path)),
			"id":    value.DataOk(value.NewUnicodeString(path)),
			"value": value.DataOk(value.NewFloat(v)),
		})
	}
	return plugin.DataMap{tableMetrics: value.AnnotatedOk[plugin.RowSet](rows, warnings...)}, nil
}

// fetchAll pages per_page=15 through a metric path's historical values,
// following `next` links until exhausted.
func (p *Plugin) fetchAll(ctx context.Context, cfg ProtoConfig, path string) ([]float64, error) {
	url := fmt.Sprintf("%s/api/types/metricValue/instances?filter=path eq \"%s\"&per_page=15", cfg.BaseURL, path)
	var samples []float64
	for url != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(cfg.Username, cfg.Password)
		req.Header.Set("X-EMC-REST-CLIENT", "true")
		resp, err := apiplugin.DoRetry(p.Client, req)
		if err != nil {
			return nil, err
		}
		var page HALResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, decodeErr
		}
		for _, e := range page.Entries {
			var content struct {
				Value float64 `json:"value"`
			}
			if json.Unmarshal(e.Content, &content) == nil {
				samples = append(samples, content.Value)
			}
		}
		next, ok := page.nextHref()
		if !ok {
			break
		}
		url = cfg.BaseURL + next
	}
	return samples, nil
}
