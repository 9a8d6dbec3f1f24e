// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package plugin defines the uniform contract every protocol plugin
// implements: the interface plugins satisfy, and the query-plan
// data model (ProtoQueryMap -> DataMap) the ETC calculator and plugin
// framework exchange.
package plugin

import (
	"context"
	"encoding/json"
	"net"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/value"
)

// Protocol names a plugin (e.g. "snmp", "azure", "vmware", "sql", "wmi").
type Protocol string

// DataTableId and DataFieldId name a plugin-owned table/field.
type DataTableId string
type DataFieldId string

// QueryMode distinguishes an inventory pass (discovers what exists) from an
// active collection pass.
type QueryMode int

const (
	QueryModeInventory QueryMode = iota
	QueryModeActive
)

func (m QueryMode) String() string {
	if m == QueryModeInventory {
		return "inventory"
	}
	return "active"
}

// Input carries the target identity every plugin call is scoped to.
type Input struct {
	HostName string
	HostAddr net.IP
}

// TableSpec describes one data-table a plugin exposes.
type TableSpec struct {
	Name      string
	Singleton bool
	Keys      []DataFieldId
	Fields    []DataFieldId
}

// FieldSpec describes one data-field a plugin exposes.
type FieldSpec struct {
	Name string
	Type value.Type
}

// FieldSet is a set of requested field ids within one table.
type FieldSet map[DataFieldId]struct{}

// NewFieldSet builds a FieldSet from a field-id list.
func NewFieldSet(ids ...DataFieldId) FieldSet {
	s := make(FieldSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s FieldSet) Add(id DataFieldId) { s[id] = struct{}{} }

// Has reports whether id is in the set.
func (s FieldSet) Has(id DataFieldId) bool { _, ok := s[id]; return ok }

// List returns the set's members in no particular order.
func (s FieldSet) List() []DataFieldId {
	out := make([]DataFieldId, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// TableQuery names the fields requested from one data-table.
type TableQuery map[DataTableId]FieldSet

// QueryPlan is the per-protocol query plan the ETC calculator builds and
// plugins consume.
type QueryPlan map[Protocol]TableQuery

// ForProtocol returns (creating if absent) the TableQuery for protocol p.
func (q QueryPlan) ForProtocol(p Protocol) TableQuery {
	tq, ok := q[p]
	if !ok {
		tq = make(TableQuery)
		q[p] = tq
	}
	return tq
}

// Request records that field fieldID of table tableID is wanted under
// protocol p.
func (q QueryPlan) Request(p Protocol, tableID DataTableId, fieldID DataFieldId) {
	tq := q.ForProtocol(p)
	fs, ok := tq[tableID]
	if !ok {
		fs = make(FieldSet)
		tq[tableID] = fs
	}
	fs.Add(fieldID)
}

// RowSet is one table's result rows.
type RowSet = value.RowSet

// AnnotatedRows is the per-table result a plugin returns: rows plus
// non-fatal warnings, or a table-level fatal error.
type AnnotatedRows = value.Annotated[RowSet]

// DataMap is the full per-plugin result: one AnnotatedRows per requested
// table.
type DataMap map[DataTableId]AnnotatedRows

// Plugin is the uniform contract every protocol plugin implements.
// Implementations live in pkg/snmp, pkg/apiplugin/*, pkg/sqlplugin and
// pkg/wmiplugin; pkg/powershell provides only the session transport that
// pkg/wmiplugin uses.
type Plugin interface {
	// ProtocolID names the protocol this plugin implements.
	ProtocolID() Protocol
	// Version reports the plugin's own version string.
	Version() string
	// DescribeTables enumerates the tables this plugin can produce for the
	// given input (host identity, protocol config).
	DescribeTables(ctx context.Context, input Input, config json.RawMessage) (map[DataTableId]TableSpec, error)
	// DescribeFields enumerates the fields across all tables this plugin
	// can produce.
	DescribeFields(ctx context.Context, input Input, config json.RawMessage) (map[DataFieldId]FieldSpec, error)
	// ShowQueries renders a human-readable dump of what plan would cause
	// this plugin to do, without executing it.
	ShowQueries(ctx context.Context, input Input, plan TableQuery) (string, error)
	// RunQueries executes plan against the target and returns one
	// AnnotatedRows per requested table.
	RunQueries(ctx context.Context, input Input, config json.RawMessage, plan TableQuery) (DataMap, error)
}

// FatalForAllTables builds a DataMap replacing every table named in plan
// with the same plugin-level fatal error.
func FatalForAllTables(plan TableQuery, err *agenterror.FatalErr) DataMap {
	out := make(DataMap, len(plan))
	for tableID := range plan {
		out[tableID] = value.AnnotatedErr[RowSet](err)
	}
	return out
}
