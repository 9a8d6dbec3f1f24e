// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package expr

import (
	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/value"
)

type cellState int

const (
	cellUnevaluated cellState = iota
	cellEvaluating
	cellEvaluated
)

type cell struct {
	expr   Expr
	state  cellState
	result value.Data
}

// Row is a named mapping `name -> Expr`. Each field's value
// is a lazy cell with an in-progress flag; re-entering an "evaluating" cell
// yields CycleError instead of recursing forever. The natural encoding is
// an interior-mutable cell per field: here, a plain map mutated by Get,
// since a Row is only ever touched by the single goroutine evaluating
// it.
type Row struct {
	cells map[string]*cell
	data  value.Data
	hasD  bool
}

// NewRow builds a Row from a field-name -> Expr mapping.
func NewRow(fields map[string]Expr) *Row {
	r := &Row{cells: make(map[string]*cell, len(fields))}
	for name, e := range fields {
		r.cells[name] = &cell{expr: e}
	}
	return r
}

// NewDataRow builds a Row whose cells hold already-evaluated data instead
// of expressions, so an expression can resolve Variable references against
// an existing result row (e.g. a protocol row's raw fields).
func NewDataRow(cells map[string]value.Data) *Row {
	r := &Row{cells: make(map[string]*cell, len(cells))}
	for name, d := range cells {
		r.cells[name] = &cell{state: cellEvaluated, result: d}
	}
	return r
}

// SetData sets the implicit `@` datum passed into every cell's evaluation.
func (r *Row) SetData(d value.Data) {
	r.data = d
	r.hasD = true
}

// Data returns the row's implicit datum, or a Missing error if none was set.
func (r *Row) Data() value.Data {
	if !r.hasD {
		return value.DataErr(agenterror.New(agenterror.KindMissing))
	}
	return r.data
}

// Get evaluates (or returns the cached evaluation of) the named field.
// Re-entering a cell that is still evaluating is a cycle.
func (r *Row) Get(name string) value.Data {
	c, ok := r.cells[name]
	if !ok {
		return value.DataErr(agenterror.Named(agenterror.KindMissingVariable, name))
	}
	switch c.state {
	case cellEvaluating:
		return value.DataErr(agenterror.Named(agenterror.KindCycleError, name))
	case cellEvaluated:
		return c.result
	}
	c.state = cellEvaluating
	c.result = Eval(c.expr, r)
	c.state = cellEvaluated
	return c.result
}

// Names returns the row's field names.
func (r *Row) Names() []string {
	out := make([]string, 0, len(r.cells))
	for name := range r.cells {
		out = append(out, name)
	}
	return out
}

// EvalAll evaluates every field and returns the resulting value.Row.
func (r *Row) EvalAll() value.Row {
	out := make(value.Row, len(r.cells))
	for name := range r.cells {
		out[value.FieldId(name)] = r.Get(name)
	}
	return out
}
