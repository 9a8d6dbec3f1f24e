// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package wmiplugin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/powershell"
	"github.com/smartagent/agent/pkg/value"
)

// FieldWMI binds one requested field to a PERF_* property and its
// counter-type formula.
type FieldWMI struct {
	Property string
	Counter  CounterType
	IsKey    bool
}

// TableWMI names one class's WQL query and field/counter bindings.
type TableWMI struct {
	Class   string
	Query   string
	Fields  map[plugin.DataFieldId]FieldWMI
	KeyProp string
}

// Catalog maps this plugin's data tables to their WMI source.
type Catalog struct {
	Tables map[plugin.DataTableId]TableWMI
}

// ProtoConfig is the WMI protocol-config block. Namespace
// defaults to root\cimv2; a non-empty Hostname/Username/Password triggers
// a remote DCOM connection instead of a local one. Remote, when set,
// routes every query through the PowerShell/WinRM session abstraction
// instead of native DCOM.
type ProtoConfig struct {
	Namespace string             `json:"namespace,omitempty"`
	Hostname  string             `json:"hostname,omitempty"`
	Username  string             `json:"username,omitempty"`
	Password  string             `json:"password,omitempty"`
	Remote    *powershell.Config `json:"remote,omitempty"`
}

// Plugin implements plugin.Plugin for protocol "wmi".
type Plugin struct {
	Catalog Catalog
	Store   *counterstore.Store

	// Query runs one WQL query against cfg and returns each instance as a
	// property->string map (WMI's native types flattened to strings); the
	// real implementation (wmi_windows.go) shells out to yusufpapurcu/wmi
	// behind a Windows build tag. Tests substitute a fake.
	Query func(ctx context.Context, cfg ProtoConfig, wql string) ([]map[string]string, error)

	// NewSession opens a PowerShell/WinRM session for ProtoConfig.Remote;
	// defaults to powershell.Config.NewSession. Tests substitute a fake.
	NewSession func(ctx context.Context, cfg powershell.Config) (powershell.Session, error)
}

// New builds the WMI plugin over catalog, with a counter store loaded
// from storePath for the stateful rate/delta counter types.
func New(catalog Catalog, storePath string) (*Plugin, error) {
	store := counterstore.New(storePath)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return &Plugin{Catalog: catalog, Store: store, Query: RunQuery, NewSession: defaultNewSession}, nil
}

func defaultNewSession(ctx context.Context, cfg powershell.Config) (powershell.Session, error) {
	return cfg.NewSession(ctx)
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "wmi" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	out := make(map[plugin.DataTableId]plugin.TableSpec, len(p.Catalog.Tables))
	for id, t := range p.Catalog.Tables {
		ts := plugin.TableSpec{Name: string(id)}
		for fid, f := range t.Fields {
			ts.Fields = append(ts.Fields, fid)
			if f.IsKey {
				ts.Keys = append(ts.Keys, fid)
			}
		}
		out[id] = ts
	}
	return out, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	out := make(map[plugin.DataFieldId]plugin.FieldSpec)
	for _, t := range p.Catalog.Tables {
		for fid := range t.Fields {
			out[fid] = plugin.FieldSpec{Name: string(fid), Type: fieldType(t.Fields[fid].Counter)}
		}
	}
	return out, nil
}

// fieldType reports the Value type a counter formula ultimately produces,
// so DescribeFields can answer without running a query.
func fieldType(ct CounterType) value.Type {
	switch ct {
	case CounterText:
		return value.UnicodeString()
	case CounterRawFraction, CounterLargeRawFraction, CounterSampleFraction,
		CounterElapsedTime, CounterAverageBulk, CounterSampleCounter,
		CounterCounterCounter, CounterBulkCount, CounterPrecisionSystemTimer,
		CounterPrecision100nsTimer, CounterPrecisionObjectTimer,
		CounterQueuelenType, CounterLargeQueuelenType, Counter100nsQueuelenType,
		CounterObjTimeQueuelenType, CounterTimer, CounterTimerInv,
		CounterAverageTimer, Counter100secTimer, Counter100secTimerInv,
		CounterMultiTimer, Counter100nsecMultiTimer, CounterObjTimeTimer:
		return value.Float()
	default:
		return value.Integer()
	}
}

func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	var q string
	for tableID := range tq {
		t, ok := p.Catalog.Tables[tableID]
		if !ok {
			continue
		}
		q += t.Query + "\n"
	}
	return q, nil
}

// RunQueries issues each requested table's WQL query, then evaluates every
// bound field's counter-type formula over the returned instance property
// map.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)), nil
		}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = `root\cimv2`
	}

	var session powershell.Session
	if cfg.Remote != nil {
		sess, err := p.NewSession(ctx, *cfg.Remote)
		if err != nil {
			return plugin.FatalForAllTables(tq, agenterror.NewFatal(agenterror.KindConnection, "plugin", err)), nil
		}
		defer sess.Close()
		session = sess
	}

	now := time.Now()
	out := make(plugin.DataMap, len(tq))
	for tableID := range tq {
		t, ok := p.Catalog.Tables[tableID]
		if !ok {
			continue
		}
		instances, err := p.fetchTable(ctx, cfg, t, session)
		if err != nil {
			out[tableID] = value.AnnotatedErr[plugin.RowSet](agenterror.NewFatal(agenterror.KindQuery, string(tableID), err))
			continue
		}
		var rows []value.Row
		var warnings []agenterror.Warning
		for _, inst := range instances {
			rows = append(rows, p.instanceRow(string(tableID), t, inst, now, &warnings))
		}
		out[tableID] = value.AnnotatedOk[plugin.RowSet](rows, warnings...)
	}
	if err := p.Store.Flush(); err != nil {
		return out, err
	}
	return out, nil
}

// fetchTable runs t's query over whichever transport cfg selects: the
// native DCOM path (p.Query) or, when cfg.Remote is set, the PowerShell/
// WinRM session's GetWMIObject.
func (p *Plugin) fetchTable(ctx context.Context, cfg ProtoConfig, t TableWMI, session powershell.Session) ([]map[string]string, error) {
	if session != nil {
		return session.GetWMIObject(ctx, t.Class, cfg.Namespace, properties(t))
	}
	return p.Query(ctx, cfg, t.Query)
}

func properties(t TableWMI) []string {
	props := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		props = append(props, f.Property)
	}
	return props
}

func (p *Plugin) instanceRow(tableName string, t TableWMI, inst map[string]string, now time.Time, warnings *[]agenterror.Warning) value.Row {
	row := make(value.Row, len(t.Fields))
	baseKey := tableName
	if t.KeyProp != "" {
		baseKey += "/" + inst[t.KeyProp]
	}
	for fid, f := range t.Fields {
		if f.IsKey {
			row[value.FieldId(fid)] = value.DataOk(value.NewUnicodeString(inst[f.Property]))
			continue
		}
		v, err := Evaluate(f.Counter, baseKey, f.Property, inst, p.Store, now)
		if err != nil {
			*warnings = append(*warnings, agenterror.NewWarning(agenterror.KindQuery, f.Property))
			de, ok := err.(*agenterror.DataError)
			if !ok {
				de = agenterror.Wrap(agenterror.KindValueError, err)
			}
			row[value.FieldId(fid)] = value.DataErr(de)
			continue
		}
		row[value.FieldId(fid)] = value.DataOk(v)
	}
	return row
}
