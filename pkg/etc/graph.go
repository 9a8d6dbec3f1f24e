// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import "github.com/smartagent/agent/pkg/plugin"

// sourceField returns the protocol field a table field's `@` datum binds
// to, defaulting to the field's own id when no explicit "source" was
// given in the package.
func (f FieldSpec) sourceField() plugin.DataFieldId {
	if f.Source != "" {
		return f.Source
	}
	return plugin.DataFieldId(f.ID)
}

// QueriesFor resolves the requested table ids into the protocol query plan
// that must run to satisfy them. Every field pulls its source field (its
// Source, or its own id when Source is unset) from the table's query,
// whether or not its Expr references `@`.
// Tables resolve 1:1 to a single protocol data-table (the graph is a
// bipartite table->leaf mapping rather than a multi-hop table->table
// dependency graph; see DESIGN.md for why the deeper form was not built).
func (p *Package) QueriesFor(tableIDs []string) plugin.QueryPlan {
	plan := make(plugin.QueryPlan)
	for _, id := range tableIDs {
		ts, ok := p.Tables[id]
		if !ok {
			continue
		}
		fs := plugin.NewFieldSet()
		for _, f := range ts.Fields {
			fs.Add(f.sourceField())
		}
		if plan[ts.Query.Protocol] == nil {
			plan[ts.Query.Protocol] = make(plugin.TableQuery)
		}
		existing := plan[ts.Query.Protocol][ts.Query.DataTable]
		if existing == nil {
			plan[ts.Query.Protocol][ts.Query.DataTable] = fs
		} else {
			for _, f := range fs.List() {
				existing.Add(f)
			}
		}
	}
	return plan
}
