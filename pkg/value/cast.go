// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

import (
	"fmt"

	"github.com/smartagent/agent/pkg/unit"
)

// CastOpts controls which casts Type.CastableTo/Value.CastTo admit.
// Explicit casts (e.g. the expression engine's `Convert`/`as` forms)
// set Explicit true and always admit the conversions below; implicit casts
// (automatic widening during type-checking) only admit them when
// StrictStrings is false.
type CastOpts struct {
	StrictStrings bool
	Explicit      bool
}

func (o CastOpts) allowed() bool {
	return o.Explicit || !o.StrictStrings
}

// CastableTo reports whether a value of type t can be cast to other under
// opts. It is kept in lockstep with Value.CastTo: CastableTo(t, other, opts)
// true must imply CastTo succeeds for every valid value of t, barring values
// that are themselves out of domain (e.g. a Float NaN into Integer).
func (t Type) CastableTo(other Type, opts CastOpts) bool {
	if t.Equal(other) {
		return true
	}
	switch {
	case t.Kind == KindBinaryString && other.Kind == KindUnicodeString:
		return opts.allowed()
	case t.Kind == KindUnicodeString && other.Kind == KindBinaryString:
		return opts.allowed()
	case t.Kind == KindInteger && other.Kind == KindFloat:
		return opts.allowed()
	case (t.Kind == KindInteger || t.Kind == KindFloat) && other.Kind == KindQuantity && other.Dim == unit.Dimensionless:
		return opts.allowed()
	}
	switch t.Kind {
	case KindOption:
		return other.Kind == KindOption && t.Elem.CastableTo(*other.Elem, opts)
	case KindResult:
		return other.Kind == KindResult &&
			t.Elem.CastableTo(*other.Elem, opts) && t.Elem2.CastableTo(*other.Elem2, opts)
	case KindTuple:
		if other.Kind != KindTuple || len(t.Tuple) != len(other.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if !t.Tuple[i].CastableTo(other.Tuple[i], opts) {
				return false
			}
		}
		return true
	case KindList:
		return other.Kind == KindList && t.Elem.CastableTo(*other.Elem, opts)
	case KindSet:
		return other.Kind == KindSet && t.Elem.CastableTo(*other.Elem, opts) && other.Elem.IsHashable()
	case KindMap:
		return other.Kind == KindMap &&
			t.Key.CastableTo(*other.Key, opts) && t.Elem2.CastableTo(*other.Elem2, opts) && other.Key.IsHashable()
	}
	return false
}

// CastTo converts v to type other under opts, per the same lockstep lattice
// as CastableTo.
func (v Value) CastTo(other Type, opts CastOpts) (Value, error) {
	if !v.typ.CastableTo(other, opts) {
		return Value{}, fmt.Errorf("value: cannot cast %s to %s", v.typ, other)
	}
	if v.typ.Equal(other) {
		return v, nil
	}
	switch {
	case v.typ.Kind == KindBinaryString && other.Kind == KindUnicodeString:
		return NewUnicodeString(v.str), nil
	case v.typ.Kind == KindUnicodeString && other.Kind == KindBinaryString:
		return NewBinaryString(v.str), nil
	case v.typ.Kind == KindInteger && other.Kind == KindFloat:
		return NewFloat(float64(v.i)), nil
	case v.typ.Kind == KindInteger && other.Kind == KindQuantity:
		ref, _ := unit.NewUnit(other.Dim, other.Dim.ReferenceAtom())
		return NewQuantity(unit.NewQuantity(float64(v.i), ref)), nil
	case v.typ.Kind == KindFloat && other.Kind == KindQuantity:
		ref, _ := unit.NewUnit(other.Dim, other.Dim.ReferenceAtom())
		return NewQuantity(unit.NewQuantity(v.f, ref)), nil
	}
	switch v.typ.Kind {
	case KindOption:
		inner, ok := v.AsOption()
		if !ok {
			return NewNone(*other.Elem), nil
		}
		cast, err := inner.CastTo(*other.Elem, opts)
		if err != nil {
			return Value{}, err
		}
		return NewSome(*other.Elem, cast)
	case KindResult:
		inner, isOk := v.AsResult()
		if isOk {
			cast, err := inner.CastTo(*other.Elem, opts)
			if err != nil {
				return Value{}, err
			}
			return NewOk(*other.Elem, *other.Elem2, cast)
		}
		cast, err := inner.CastTo(*other.Elem2, opts)
		if err != nil {
			return Value{}, err
		}
		return NewErr(*other.Elem, *other.Elem2, cast)
	case KindTuple:
		out := make([]Value, len(v.tuple))
		for i, m := range v.tuple {
			cast, err := m.CastTo(other.Tuple[i], opts)
			if err != nil {
				return Value{}, err
			}
			out[i] = cast
		}
		return NewTuple(other.Tuple, out)
	case KindList:
		out := make([]Value, len(v.list))
		for i, m := range v.list {
			cast, err := m.CastTo(*other.Elem, opts)
			if err != nil {
				return Value{}, err
			}
			out[i] = cast
		}
		return NewList(*other.Elem, out)
	case KindSet:
		out := make([]Value, len(v.setVals))
		for i, m := range v.setVals {
			cast, err := m.CastTo(*other.Elem, opts)
			if err != nil {
				return Value{}, err
			}
			out[i] = cast
		}
		return NewSet(*other.Elem, out)
	case KindMap:
		keys := make([]Value, len(v.mapVals))
		vals := make([]Value, len(v.mapVals))
		for i, e := range v.mapVals {
			ck, err := e.key.CastTo(*other.Key, opts)
			if err != nil {
				return Value{}, err
			}
			cv, err := e.val.CastTo(*other.Elem2, opts)
			if err != nil {
				return Value{}, err
			}
			keys[i] = ck
			vals[i] = cv
		}
		return NewMap(*other.Key, *other.Elem2, keys, vals)
	}
	return Value{}, fmt.Errorf("value: cannot cast %s to %s", v.typ, other)
}
