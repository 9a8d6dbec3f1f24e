// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package unit

import "fmt"

// Quantity is a (f64, Unit) pair. Conversion fails only when the
// two units' dimensions disagree.
type Quantity struct {
	Value float64
	Unit  Unit
}

// NewQuantity builds a Quantity.
func NewQuantity(v float64, u Unit) Quantity { return Quantity{Value: v, Unit: u} }

// ErrDimensionMismatch is returned by Convert when the target unit's
// dimension differs from the quantity's own.
type ErrDimensionMismatch struct {
	From, To Dimension
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("cannot convert %s to %s: dimension mismatch", e.From, e.To)
}

// Convert converts q into unit to:
//
//	q.convert(b) = b.delinearize(a.linearize(v))
//
// where a is q's own unit. Affine (temperature) and log (dBm) atoms are
// honored by linearize/delinearize; everything else is the plain
// multiplier ratio.
func (q Quantity) Convert(to Unit) (Quantity, error) {
	if q.Unit.Dimension() != to.Dimension() {
		return Quantity{}, &ErrDimensionMismatch{From: q.Unit.Dimension(), To: to.Dimension()}
	}
	ref := q.Unit.linearize(q.Value)
	return Quantity{Value: to.delinearize(ref), Unit: to}, nil
}

// Normalize rewrites q to its dimension's reference atom.
func (q Quantity) Normalize() Quantity {
	ref, _ := NewUnit(q.Unit.Dimension(), q.Unit.Dimension().ReferenceAtom())
	out, err := q.Convert(ref)
	if err != nil {
		// A quantity's own dimension always has a reference atom; this
		// cannot fail in practice.
		return q
	}
	return out
}

// Add adds two quantities of the same dimension, returning the sum in the
// dimension's reference unit, the same normalization Mul/Div apply: the
// arms may arrive in different prefixed units, and a unit-tagged result
// must compare equal regardless of which spelling each arm used.
func (q Quantity) Add(other Quantity) (Quantity, error) {
	if q.Unit.Dimension() != other.Unit.Dimension() {
		return Quantity{}, &ErrDimensionMismatch{From: q.Unit.Dimension(), To: other.Unit.Dimension()}
	}
	ref, err := NewUnit(q.Unit.Dimension(), q.Unit.Dimension().ReferenceAtom())
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Unit.linearize(q.Value) + other.Unit.linearize(other.Value), Unit: ref}, nil
}

// Sub subtracts other from q, in the dimension's reference unit.
func (q Quantity) Sub(other Quantity) (Quantity, error) {
	if q.Unit.Dimension() != other.Unit.Dimension() {
		return Quantity{}, &ErrDimensionMismatch{From: q.Unit.Dimension(), To: other.Unit.Dimension()}
	}
	ref, err := NewUnit(q.Unit.Dimension(), q.Unit.Dimension().ReferenceAtom())
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Value: q.Unit.linearize(q.Value) - other.Unit.linearize(other.Value), Unit: ref}, nil
}

// Mul multiplies two quantities, returning a Quantity in the reference unit
// of the resulting dimension (callers learn both the new dimension and the
// numeric factor: km * km is not km^2 without the rescale).
func (q Quantity) Mul(other Quantity) (Quantity, error) {
	resultDim, err := MulDimension(q.Unit.Dimension(), other.Unit.Dimension())
	if err != nil {
		return Quantity{}, err
	}
	refUnit, uerr := NewUnit(resultDim, resultDim.ReferenceAtom())
	if uerr != nil {
		return Quantity{}, uerr
	}
	aRef := q.Unit.linearize(q.Value)
	bRef := other.Unit.linearize(other.Value)
	return Quantity{Value: aRef * bRef, Unit: refUnit}, nil
}

// Div divides q by other, returning a Quantity in the reference unit of the
// resulting dimension.
func (q Quantity) Div(other Quantity) (Quantity, error) {
	if other.Value == 0 {
		return Quantity{}, fmt.Errorf("division by zero")
	}
	resultDim, err := DivDimension(q.Unit.Dimension(), other.Unit.Dimension())
	if err != nil {
		return Quantity{}, err
	}
	refUnit, uerr := NewUnit(resultDim, resultDim.ReferenceAtom())
	if uerr != nil {
		return Quantity{}, uerr
	}
	aRef := q.Unit.linearize(q.Value)
	bRef := other.Unit.linearize(other.Value)
	return Quantity{Value: aRef / bRef, Unit: refUnit}, nil
}

// Powi raises q to the integer power n.
func (q Quantity) Powi(n int) (Quantity, error) {
	resultDim, err := PowDimension(q.Unit.Dimension(), n)
	if err != nil {
		return Quantity{}, err
	}
	refUnit, uerr := NewUnit(resultDim, resultDim.ReferenceAtom())
	if uerr != nil {
		return Quantity{}, uerr
	}
	ref := q.Unit.linearize(q.Value)
	v := 1.0
	abs := n
	if abs < 0 {
		abs = -abs
	}
	for i := 0; i < abs; i++ {
		v *= ref
	}
	if n < 0 {
		v = 1 / v
	}
	return Quantity{Value: v, Unit: refUnit}, nil
}

// Neg negates the value, keeping the unit.
func (q Quantity) Neg() Quantity { return Quantity{Value: -q.Value, Unit: q.Unit} }

func (q Quantity) String() string {
	return fmt.Sprintf("%s %s", formatFloat(q.Value), q.Unit.String())
}
