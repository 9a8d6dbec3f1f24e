// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

import "github.com/smartagent/agent/pkg/agenterror"

// FieldId names a field within a Row. Plugins mint these from their own
// field catalogs.
type FieldId string

// Data is the per-cell outcome: either a Value or the DataError that
// prevented one from being produced.
type Data struct {
	value Value
	err   *agenterror.DataError
}

// Ok builds a successful Data cell.
func DataOk(v Value) Data { return Data{value: v} }

// Err builds a failed Data cell.
func DataErr(err *agenterror.DataError) Data { return Data{err: err} }

// IsOk reports whether the cell holds a value.
func (d Data) IsOk() bool { return d.err == nil }

// Value returns the cell's value and whether it is present.
func (d Data) Value() (Value, bool) {
	if d.err != nil {
		return Value{}, false
	}
	return d.value, true
}

// Error returns the cell's error, or nil if it holds a value.
func (d Data) Error() *agenterror.DataError { return d.err }

// IsMissing reports whether this cell's error is a missing-data error
func (d Data) IsMissing() bool {
	return d.err != nil && agenterror.IsMissing(d.err)
}

// Row is a named mapping of field to datum.
type Row map[FieldId]Data

// ProtoRow is the mutable builder plugins assemble a Row from before it is
// frozen; distinct from Row only in intent.
type ProtoRow = Row

// Annotated is a Result carrying a value and a list of non-fatal
// warnings; every plugin rowset is an Annotated[RowSet].
type Annotated[T any] struct {
	value    T
	ok       bool
	warnings []agenterror.Warning
	err      *agenterror.FatalErr
}

// AnnotatedOk builds a successful Annotated value with the given warnings.
func AnnotatedOk[T any](v T, warnings ...agenterror.Warning) Annotated[T] {
	return Annotated[T]{value: v, ok: true, warnings: warnings}
}

// AnnotatedErr builds a failed Annotated value.
func AnnotatedErr[T any](err *agenterror.FatalErr) Annotated[T] {
	return Annotated[T]{err: err}
}

// IsOk reports whether the Annotated holds a value.
func (a Annotated[T]) IsOk() bool { return a.ok }

// Value returns the held value and whether it is present.
func (a Annotated[T]) Value() (T, bool) {
	if !a.ok {
		var zero T
		return zero, false
	}
	return a.value, true
}

// Warnings returns the non-fatal warnings collected alongside the value.
// A FatalErr replaces the value (and any warnings) entirely, so warnings
// are only ever present on the ok path.
func (a Annotated[T]) Warnings() []agenterror.Warning { return a.warnings }

// Error returns the fatal error, or nil if the Annotated holds a value.
func (a Annotated[T]) Error() *agenterror.FatalErr { return a.err }

// RowSet is the [Row] payload an Annotated plugin result carries.
type RowSet []Row
