// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package etc implements the calculation layer: loading a specification
// package, resolving the table/field dependency graph into a protocol
// query plan, and folding protocol rows back through the package's row
// expressions.
package etc

import (
	"github.com/smartagent/agent/pkg/expr"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// QueryRef names the protocol data-table a package table is fed from.
type QueryRef struct {
	Protocol  plugin.Protocol
	DataTable plugin.DataTableId
}

// FieldSpec is one output field of a table: its input type, its
// display unit, the expression that computes it from protocol data and
// sibling fields, and optional reference/threshold metadata.
type FieldSpec struct {
	ID string
	// Source names the protocol field this field's `@` datum is bound to
	// before its Expr evaluates; empty for a purely-derived
	// field whose Expr only references sibling fields by name and carries
	// no direct protocol dependency.
	Source      plugin.DataFieldId
	InputType   value.Type
	DisplayUnit unit.Unit
	Expr        expr.Expr
	// Reference is an expression producing the denominator for a
	// "relative" field.
	Reference expr.Expr
	// References names other expressions this field depends on by label,
	// available to Reference/Threshold expressions under that name.
	References map[string]expr.Expr
	Threshold  *Threshold
	Thresholds []Threshold
	// ElasticField/ElasticData name the document-store projection; the
	// store writer itself is an external collaborator.
	ElasticField string
	ElasticData  bool
}

// Threshold is a single WARNING/CRITICAL boundary pair evaluated against a
// field's value by the (external) OMD-style check-output writer; the ETC
// calculator only carries the expressions through.
type Threshold struct {
	Label    string
	Warning  expr.Expr
	Critical expr.Expr
}

// TableSpec is one table in a loaded package.
type TableSpec struct {
	ID        string
	Query     QueryRef
	Singleton bool
	ItemID    expr.Expr
	ItemName  expr.Expr
	Fields    []FieldSpec
}

// FieldByID looks up one of the table's fields by name.
func (t TableSpec) FieldByID(id string) (FieldSpec, bool) {
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// CheckSpec names the tables one check depends on.
type CheckSpec struct {
	ID     string
	Tables []string
}

// MPSpec is a monitoring pack: a named, tag-gated bundle of tables and
// checks.
type MPSpec struct {
	ID     string
	Tag    string
	Tables []string
	Checks []string
}

// Package is one loaded spec-package document.
type Package struct {
	Tables map[string]TableSpec
	Checks map[string]CheckSpec
	MPs    map[string]MPSpec
}

// NewPackage builds an empty Package ready for the loader to populate.
func NewPackage() *Package {
	return &Package{
		Tables: make(map[string]TableSpec),
		Checks: make(map[string]CheckSpec),
		MPs:    make(map[string]MPSpec),
	}
}

// TablesForTags resolves the set of table ids gated in by any MP whose tag
// is in tags.
func (p *Package) TablesForTags(tags map[string]struct{}) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, mp := range p.MPs {
		if _, ok := tags[mp.Tag]; !ok {
			continue
		}
		for _, t := range mp.Tables {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// TablesForChecks resolves the set of table ids touched by the named
// checks.
func (p *Package) TablesForChecks(checkIDs []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, id := range checkIDs {
		chk, ok := p.Checks[id]
		if !ok {
			continue
		}
		for _, t := range chk.Tables {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
