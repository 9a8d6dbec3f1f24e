// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gosnmp/gosnmp"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

// ProtoConfig is the protocol-specific configuration block for the SNMP
// plugin.
type ProtoConfig struct {
	Port      uint16         `json:"port"`
	Version   string         `json:"version"` // "1", "2c", "3"
	Community string         `json:"community"`
	Context   string         `json:"context"`
	V3        *V3Credentials `json:"v3,omitempty"`
	Quirks    Quirks         `json:"quirks"`
	Workers   int            `json:"workers"`
	Timeout   time.Duration  `json:"timeout"`
}

func (c ProtoConfig) snmpVersion() gosnmp.SnmpVersion {
	switch c.Version {
	case "1":
		return gosnmp.Version1
	case "3":
		return gosnmp.Version3
	default:
		return gosnmp.Version2c
	}
}

// Plugin implements plugin.Plugin for protocol "snmp".
type Plugin struct {
	Catalog Catalog
	Store   *counterstore.Store
	Stats   *Stats

	// NewSession lets tests substitute a fake Session; defaults to
	// dialing a real gosnmp session.
	NewSession func(SessionConfig) (Session, error)
}

// New builds an SNMP plugin over catalog, with a counter store loaded from
// storePath and persisted per cycle.
func New(catalog Catalog, storePath string) (*Plugin, error) {
	store := counterstore.New(storePath)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return &Plugin{
		Catalog:    catalog,
		Store:      store,
		Stats:      NewStats(),
		NewSession: NewSession,
	}, nil
}

func (p *Plugin) ProtocolID() plugin.Protocol { return "snmp" }
func (p *Plugin) Version() string             { return "1.0.0" }

func (p *Plugin) DescribeTables(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataTableId]plugin.TableSpec, error) {
	out := make(map[plugin.DataTableId]plugin.TableSpec, len(p.Catalog.Tables))
	for id, def := range p.Catalog.Tables {
		ts := plugin.TableSpec{Name: string(id), Singleton: !def.Walk}
		for fid, fd := range def.Fields {
			ts.Fields = append(ts.Fields, fid)
			if fd.IsIndex {
				ts.Keys = append(ts.Keys, fid)
			}
		}
		out[id] = ts
	}
	return out, nil
}

func (p *Plugin) DescribeFields(ctx context.Context, input plugin.Input, config json.RawMessage) (map[plugin.DataFieldId]plugin.FieldSpec, error) {
	out := make(map[plugin.DataFieldId]plugin.FieldSpec)
	for _, def := range p.Catalog.Tables {
		for fid, fd := range def.Fields {
			out[fid] = plugin.FieldSpec{Name: string(fid), Type: fd.Type}
		}
	}
	return out, nil
}

// ShowQueries renders the plan without executing it.
func (p *Plugin) ShowQueries(ctx context.Context, input plugin.Input, tq plugin.TableQuery) (string, error) {
	built := BuildPlan(tq, p.Catalog, p.Stats, 10)
	var sb strings.Builder
	for _, cp := range built.Contexts {
		fmt.Fprintf(&sb, "context %q:\n", cp.Context)
		for _, g := range cp.Gets {
			fmt.Fprintf(&sb, "  GET  %s\n", g.Oid)
		}
		for _, wt := range cp.Walks {
			for _, w := range wt.Walks {
				fmt.Fprintf(&sb, "  WALK %s\n", w.Root)
			}
		}
	}
	return sb.String(), nil
}

// RunQueries dials one session per worker, builds the per-context plan, and
// folds the resulting walks/gets back into rows per table.
func (p *Plugin) RunQueries(ctx context.Context, input plugin.Input, rawConfig json.RawMessage, tq plugin.TableQuery) (plugin.DataMap, error) {
	var cfg ProtoConfig
	if len(rawConfig) > 0 {
		if err := json.Unmarshal(rawConfig, &cfg); err != nil {
			fatal := agenterror.NewFatal(agenterror.KindInvalidSpec, "plugin", err)
			return plugin.FatalForAllTables(tq, fatal), nil
		}
	}
	if cfg.Port == 0 {
		cfg.Port = 161
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 4
	}
	target := input.HostAddr.String()
	if input.HostAddr == nil {
		target = input.HostName
	}

	built := BuildPlan(tq, p.Catalog, p.Stats, 10)
	now := time.Now()
	out := make(plugin.DataMap)
	rowsByTable := make(map[plugin.DataTableId][]value.Row)
	warningsByTable := make(map[plugin.DataTableId][]agenterror.Warning)

	newSess := p.NewSession
	if newSess == nil {
		newSess = NewSession
	}

	for _, cp := range built.Contexts {
		sessions := make([]Session, 0, workers)
		for i := 0; i < workers; i++ {
			sess, err := newSess(SessionConfig{
				Target:    target,
				Port:      cfg.Port,
				Version:   cfg.snmpVersion(),
				Community: cfg.Community,
				Context:   cp.Context,
				V3:        cfg.V3,
				Timeout:   cfg.Timeout,
				Retries:   2,
			})
			if err != nil {
				fatal := agenterror.NewFatal(agenterror.KindConnection, "plugin", err)
				return plugin.FatalForAllTables(tq, fatal), nil
			}
			connect := func() error { return sess.Connect() }
			if err := backoff.Retry(connect, backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)); err != nil {
				fatal := agenterror.NewFatal(agenterror.KindConnection, "plugin", err)
				return plugin.FatalForAllTables(tq, fatal), nil
			}
			sessions = append(sessions, sess)
		}

		runCfg := Config{
			Workers:          workers,
			MaxWidth:         10,
			MaxSize:          1400,
			MaxLength:        50,
			Timeout:          cfg.Timeout,
			MaxRepetitionsFn: DefaultMaxRepetitions,
		}
		runErr := runContext(ctx, sessions, cp, runCfg, cfg.Quirks, p.Stats)
		for _, s := range sessions {
			s.Close()
		}
		if runErr != nil {
			fatal := agenterror.NewFatal(agenterror.KindQuery, "plugin", runErr)
			return plugin.FatalForAllTables(tq, fatal), nil
		}

		p.collectResults(cp, now, rowsByTable, warningsByTable)
	}

	for tableID := range tq {
		rows := rowsByTable[tableID]
		out[tableID] = value.AnnotatedOk[plugin.RowSet](rows, warningsByTable[tableID]...)
	}
	if err := p.Store.Flush(); err != nil {
		return out, err
	}
	return out, nil
}

// collectResults walks a completed ContextPlan's gets and walk tables,
// decoding each into value.Row entries keyed by the owning table.
func (p *Plugin) collectResults(cp *ContextPlan, now time.Time, rows map[plugin.DataTableId][]value.Row, warnings map[plugin.DataTableId][]agenterror.Warning) {
	// A singleton table's gets merge into one row.
	getRows := make(map[plugin.DataTableId]value.Row)
	for g, ref := range cp.getField {
		def := p.Catalog.Tables[ref.table]
		fd, ok := def.Fields[ref.field]
		if !ok {
			continue
		}
		row := getRows[ref.table]
		if row == nil {
			row = make(value.Row)
			getRows[ref.table] = row
		}
		if g.Invalid || g.Result == nil {
			row[value.FieldId(ref.field)] = value.DataErr(agenterror.New(agenterror.KindMissing))
			warnings[ref.table] = append(warnings[ref.table], agenterror.NewWarning(agenterror.KindMissing, string(ref.field)))
		} else {
			row[value.FieldId(ref.field)] = decodeField(fd, *g.Result, p.Store, string(ref.table)+"/"+string(ref.field), now)
		}
	}
	for tableID, row := range getRows {
		rows[tableID] = append(rows[tableID], row)
	}

	for _, wt := range cp.Walks {
		// By construction (planner.go: indexKey = string(tableID)) every
		// WalkTable groups walks for exactly one owning table.
		var tableID plugin.DataTableId
		for _, w := range wt.Walks {
			if ref, ok := cp.walkField[w]; ok {
				tableID = ref.table
				break
			}
		}
		def := p.Catalog.Tables[tableID]
		merged := mergeWalkRows(wt)
		for idx, vars := range merged {
			row := make(value.Row)
			for _, w := range wt.Walks {
				ref, ok := cp.walkField[w]
				if !ok || ref.field == "" {
					continue
				}
				fd, ok := def.Fields[ref.field]
				if !ok {
					continue
				}
				v, ok := vars[w]
				if !ok {
					row[value.FieldId(ref.field)] = value.DataErr(agenterror.New(agenterror.KindMissing))
					continue
				}
				row[value.FieldId(ref.field)] = decodeField(fd, v, p.Store, string(ref.table)+"/"+string(ref.field)+"/"+idx, now)
			}
			for _, fieldID := range cp.indexFields[tableID] {
				fd, ok := def.Fields[fieldID]
				if !ok {
					continue
				}
				row[value.FieldId(fieldID)] = indexValue(fd, idx)
			}
			rows[tableID] = append(rows[tableID], row)
		}
	}
}

// indexValue decodes one index field from a walk subscript, selecting the
// IndexPos-th dot-separated component when set.
func indexValue(fd FieldDef, idx string) value.Data {
	part := idx
	if fd.IndexPos > 0 {
		comps := strings.Split(idx, ".")
		if fd.IndexPos > len(comps) {
			return value.DataErr(agenterror.New(agenterror.KindOutOfBounds))
		}
		part = comps[fd.IndexPos-1]
	}
	if fd.Type.Kind == value.KindInteger {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindNumParseError, err))
		}
		return value.DataOk(value.NewInteger(n))
	}
	return value.DataOk(value.NewUnicodeString(part))
}

// mergeWalkRows groups a WalkTable's per-walk rows by shared index
// subscript.
func mergeWalkRows(wt *WalkTable) map[string]map[*Walk]Variable {
	out := make(map[string]map[*Walk]Variable)
	for _, w := range wt.Walks {
		for idx, v := range w.Rows {
			key := string(idx)
			if out[key] == nil {
				out[key] = make(map[*Walk]Variable)
			}
			out[key][w] = v
		}
	}
	return out
}

func decodeField(fd FieldDef, v Variable, store *counterstore.Store, key string, now time.Time) value.Data {
	if fd.Param != ParamValue {
		val, err := decodeCounting(fd, v, store, key, now)
		if err != nil {
			return value.DataErr(err)
		}
		return value.DataOk(val)
	}
	val, err := decodeScalar(fd, v)
	if err != nil {
		return value.DataErr(err)
	}
	return value.DataOk(val)
}
