// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package etc

import (
	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/expr"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/value"
)

// Item is one computed output row: the table it belongs to, its identity
// (item_id/item_name, for non-singleton tables), and its fields keyed by
// field id.
type Item struct {
	Table    string
	ItemID   value.Data
	ItemName value.Data
	Fields   map[string]value.Data
}

// Calculate runs every requested table's field expressions against the
// protocol data collected for it, producing one Item per protocol row.
// Fields are evaluated in declaration order so a field whose Expr
// references an already-declared sibling by name (Variable) sees that
// sibling's finished value; a field may only safely reference a sibling
// declared earlier in the same table.
func Calculate(pkg *Package, tableIDs []string, data plugin.DataMap) (map[string][]Item, []agenterror.Warning) {
	results := make(map[string][]Item)
	var warnings []agenterror.Warning

	for _, id := range tableIDs {
		ts, ok := pkg.Tables[id]
		if !ok {
			continue
		}
		annotated, ok := data[ts.Query.DataTable]
		if !ok {
			continue
		}
		rows, ok := annotated.Value()
		if !ok {
			kind := agenterror.KindMissing
			msg := id
			if fatal := annotated.Error(); fatal != nil {
				kind = fatal.Kind
				msg = id + ": " + fatal.Error()
			}
			warnings = append(warnings, agenterror.NewWarning(kind, msg))
			continue
		}
		warnings = append(warnings, annotated.Warnings()...)

		items := make([]Item, 0, len(rows))
		for _, protoRow := range rows {
			items = append(items, calculateRow(ts, protoRow))
		}
		results[id] = items
	}
	return results, warnings
}

// calculateRow folds one protocol row through a table's field expressions.
func calculateRow(ts TableSpec, protoRow value.Row) Item {
	cells := make(map[string]expr.Expr, len(ts.Fields))
	for _, f := range ts.Fields {
		if f.Expr != nil {
			cells[f.ID] = f.Expr
		}
	}
	row := expr.NewRow(cells)

	item := Item{Table: ts.ID, Fields: make(map[string]value.Data, len(ts.Fields))}
	for _, f := range ts.Fields {
		if f.Expr == nil {
			item.Fields[f.ID] = protoCell(protoRow, f.sourceField())
			continue
		}
		row.SetData(protoCell(protoRow, f.sourceField()))
		item.Fields[f.ID] = row.Get(f.ID)
	}

	if ts.ItemID != nil {
		item.ItemID = evalIdentity(ts.ItemID, protoRow)
	}
	if ts.ItemName != nil {
		item.ItemName = evalIdentity(ts.ItemName, protoRow)
	}
	return item
}

// protoCell looks up one protocol cell; a field the plugin never produced
// is a Missing datum, recoverable downstream via fallback().
func protoCell(protoRow value.Row, fid plugin.DataFieldId) value.Data {
	d, ok := protoRow[value.FieldId(fid)]
	if !ok {
		return value.DataErr(agenterror.Named(agenterror.KindMissing, string(fid)))
	}
	return d
}

// evalIdentity evaluates an item_id/item_name expression. Its variables
// resolve against the raw protocol row (not the computed fields), so the
// identity is stable even when a field expression errors.
func evalIdentity(e expr.Expr, protoRow value.Row) value.Data {
	cells := make(map[string]value.Data, len(protoRow))
	for fid, d := range protoRow {
		cells[string(fid)] = d
	}
	return expr.Eval(e, expr.NewDataRow(cells))
}
