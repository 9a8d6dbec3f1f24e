// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"github.com/smartagent/agent/pkg/plugin"
)

// Catalog is the SNMP plugin's static table/field catalog, analogous to a
// MIB module: it tells the planner which OIDs back each requested field.
type Catalog struct {
	Tables map[plugin.DataTableId]TableDef
}

// ContextPlan is the per-context work the worker pool must perform: scalar
// gets plus walk tables grouped by shared index.
type ContextPlan struct {
	Context string
	Gets    []*Get
	Walks   []*WalkTable
	// getField/walkField record which (table,field) produced each Get/Walk
	// so results can be routed back after execution. Index fields need no
	// PDU of their own (they decode from the walk subscript) and are
	// tracked per table instead.
	getField    map[*Get]fieldRef
	walkField   map[*Walk]fieldRef
	indexFields map[plugin.DataTableId][]plugin.DataFieldId
}

type fieldRef struct {
	table plugin.DataTableId
	field plugin.DataFieldId
}

// Plan is the full multi-context plan produced for one SNMP sub-query:
// per v3 context, the scalar gets and the walk tables to run.
type Plan struct {
	Contexts []*ContextPlan
}

// BuildPlan expands query (this protocol's slice of the ETC calculator's
// QueryPlan) against the catalog, grouping work by context and by shared
// walk index.
func BuildPlan(query plugin.TableQuery, catalog Catalog, stats *Stats, defaultExpectedLen int) Plan {
	byContext := make(map[string]*ContextPlan)

	getOrCreate := func(ctx string) *ContextPlan {
		cp, ok := byContext[ctx]
		if !ok {
			cp = &ContextPlan{
				Context:     ctx,
				getField:    make(map[*Get]fieldRef),
				walkField:   make(map[*Walk]fieldRef),
				indexFields: make(map[plugin.DataTableId][]plugin.DataFieldId),
			}
			byContext[ctx] = cp
		}
		return cp
	}

	// Group walks sharing an index key within one context so they advance
	// in lock-step.
	walksByContextIndex := make(map[string]map[string]*WalkTable)

	for tableID, fields := range query {
		def, ok := catalog.Tables[tableID]
		if !ok {
			continue
		}
		contexts := resolveContexts(def.Contexts)
		for _, ctx := range contexts {
			cp := getOrCreate(ctx)
			if !def.Walk {
				// One scalar get per requested field, each at the field's
				// own leaf OID.
				for fieldID := range fields {
					fd, ok := def.Fields[fieldID]
					if !ok {
						continue
					}
					g := &Get{Oid: def.fieldOid(fd)}
					cp.Gets = append(cp.Gets, g)
					cp.getField[g] = fieldRef{table: tableID, field: fieldID}
				}
				continue
			}
			indexKey := string(tableID)
			perCtx, ok := walksByContextIndex[ctx]
			if !ok {
				perCtx = make(map[string]*WalkTable)
				walksByContextIndex[ctx] = perCtx
			}
			wt, ok := perCtx[indexKey]
			if !ok {
				wt = &WalkTable{IndexKey: indexKey}
				perCtx[indexKey] = wt
				cp.Walks = append(cp.Walks, wt)
			}
			// One column walk per requested non-index field; the walks
			// share wt and so advance in lock-step over the same index.
			// Index fields decode from the subscript and need no walk of
			// their own, but if nothing else is requested the table root
			// is walked once so the subscripts get enumerated at all.
			walked := false
			for fieldID := range fields {
				fd, ok := def.Fields[fieldID]
				if !ok {
					continue
				}
				if fd.IsIndex {
					cp.indexFields[tableID] = append(cp.indexFields[tableID], fieldID)
					continue
				}
				root := def.fieldOid(fd)
				expected := stats.ExpectedLen(root, defaultExpectedLen)
				w := NewWalk(root, expected)
				w.FoldStride = def.Fold
				wt.Walks = append(wt.Walks, w)
				cp.walkField[w] = fieldRef{table: tableID, field: fieldID}
				walked = true
			}
			if !walked && len(cp.indexFields[tableID]) > 0 {
				expected := stats.ExpectedLen(def.Root, defaultExpectedLen)
				w := NewWalk(def.Root, expected)
				w.FoldStride = def.Fold
				wt.Walks = append(wt.Walks, w)
				cp.walkField[w] = fieldRef{table: tableID}
			}
		}
	}

	out := make([]*ContextPlan, 0, len(byContext))
	for _, cp := range byContext {
		out = append(out, cp)
	}
	return Plan{Contexts: out}
}

// resolveContexts expands a ContextSelector into the concrete SNMPv3
// contexts the field's OID fans out to.
// Group/Oid selectors need a device-specific context directory the core
// doesn't own; callers needing non-trivial fan-out pass it through
// Catalog's TableDef in a future extension. For now both resolve to the
// default context, which is the correct behavior for v1/v2c and for v3
// deployments using a single context.
func resolveContexts(sel ContextSelector) []string {
	switch sel.Kind {
	case ContextAll:
		return []string{""}
	case ContextGroup, ContextOid:
		return []string{""}
	default:
		return []string{""}
	}
}
