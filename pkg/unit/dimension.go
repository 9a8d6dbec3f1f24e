// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package unit implements the base-unit lattice: a closed set of
// Dimensions, the Units that inhabit them, and the Quantity arithmetic
// used by the expression engine's dimension checker.
//
// The dimension x dimension -> dimension tables (dimMulTable, dimDivTable,
// powTable below) are hand-enumerated rather than derived from rational
// exponents: a general rational-exponent system would admit m^(1/2) and
// complicate type errors. The generator that would emit these tables from
// a declarative source is build-time tooling, not part of the library.
package unit

import "fmt"

// Dimension is one member of the closed base-unit lattice.
type Dimension int

const (
	Length Dimension = iota
	Mass
	Time
	Current
	Temperature
	Information
	Operations
	Area
	Volume
	Speed
	Acceleration
	Potential
	Power
	Resistance
	Conductivity
	Bandwidth
	IOLatency
	IOPerformance
	AvgOpSize
	Frequency
	FanSpeed
	AbsoluteHumidity
	TimeSquare
	Dimensionless
)

var dimensionNames = [...]string{
	"Length", "Mass", "Time", "Current", "Temperature", "Information",
	"Operations", "Area", "Volume", "Speed", "Acceleration", "Potential",
	"Power", "Resistance", "Conductivity", "Bandwidth", "IOLatency",
	"IOPerformance", "AvgOpSize", "Frequency", "FanSpeed", "AbsoluteHumidity",
	"TimeSquare", "Dimensionless",
}

func (d Dimension) String() string {
	if int(d) < 0 || int(d) >= len(dimensionNames) {
		return "Unknown"
	}
	return dimensionNames[d]
}

// AllDimensions lists every dimension in the lattice, used by tests and by
// Dimension.Units() callers that want to enumerate the whole unit space.
func AllDimensions() []Dimension {
	out := make([]Dimension, len(dimensionNames))
	for i := range dimensionNames {
		out[i] = Dimension(i)
	}
	return out
}

// ParseDimension looks up a dimension by its String() name, used by the
// spec-package loader to parse "Quantity(Bandwidth)"-style type literals.
func ParseDimension(name string) (Dimension, bool) {
	for i, n := range dimensionNames {
		if n == name {
			return Dimension(i), true
		}
	}
	return 0, false
}

// ReferenceAtom is the canonical, un-prefixed atom a dimension normalizes to
// (Unit.Multiplier() == 1 exactly on this atom, modulo affine/log offsets).
func (d Dimension) ReferenceAtom() string {
	if a, ok := dimensionAtoms[d]; ok {
		for _, u := range a {
			if u.refAtom {
				return u.symbol
			}
		}
	}
	return ""
}

// Units returns every unit atom registered for d, in declaration order; used
// by the parser/display round-trip property test.
func (d Dimension) Units() []Unit {
	atoms := dimensionAtoms[d]
	out := make([]Unit, 0, len(atoms))
	for _, a := range atoms {
		if a.prefixKind == prefixNone {
			out = append(out, Unit{dim: d, numAtom: a.symbol, numPrefix: Prefix{"", 1}})
			continue
		}
		for _, p := range prefixSet(a.prefixKind) {
			out = append(out, Unit{dim: d, numPrefix: p, numAtom: a.symbol})
		}
	}
	return out
}

// errUnsupportedOp is returned by Mul/Div/Powi when the dimension table has
// no entry for the requested combination: an intentional error, not a
// missing case, per the "closed under a hand-coded table" invariant.
type errUnsupportedOp struct {
	op   string
	args []Dimension
}

func (e *errUnsupportedOp) Error() string {
	return fmt.Sprintf("unsupported dimension operation %s%v", e.op, e.args)
}

type dimPair struct {
	a, b Dimension
}

// dimMulTable gives the resulting Dimension of a*b (and, transitively, a/b via
// dimDivTable) for every pair the domain actually exercises. Pairs outside
// this table are a deliberate errUnsupportedOp error, not silently Dimensionless.
var dimMulTable = map[dimPair]Dimension{
	{Length, Length}:       Area,
	{Length, Area}:         Volume,
	{Area, Length}:         Volume,
	{Speed, Time}:          Length,
	{Time, Speed}:          Length,
	{Acceleration, Time}:   Speed,
	{Time, Acceleration}:   Speed,
	{Current, Potential}:   Power,
	{Potential, Current}:   Power,
	{Current, Resistance}:  Potential,
	{Resistance, Current}:  Potential,
	{Frequency, Time}:      Dimensionless,
	{Time, Frequency}:      Dimensionless,
	{IOPerformance, Time}:  Operations,
	{Time, IOPerformance}:  Operations,
	{Bandwidth, Time}:      Information,
	{Time, Bandwidth}:      Information,
	{AvgOpSize, Operations}: Information,
	{Operations, AvgOpSize}: Information,
}

var dimDivTable = map[dimPair]Dimension{
	{Length, Time}:         Speed,
	{Speed, Time}:          Acceleration,
	{Length, Speed}:        Time,
	{Area, Length}:         Length,
	{Volume, Area}:         Length,
	{Volume, Length}:       Area,
	{Potential, Current}:   Resistance,
	{Potential, Resistance}: Current,
	{Power, Current}:       Potential,
	{Power, Potential}:     Current,
	{Dimensionless, Time}:  Frequency,
	{Information, Time}:    Bandwidth,
	{Operations, Time}:     IOPerformance,
	{Time, Operations}:     IOLatency,
	{Information, Operations}: AvgOpSize,
	{Information, Bandwidth}: Time,
	{Operations, IOPerformance}: Time,
	{Current, Resistance}:  Conductivity,
	{Current, Conductivity}: Resistance,
}

type powKey struct {
	d Dimension
	n int
}

var powTable = map[powKey]Dimension{
	{Length, 2}: Area,
	{Length, 3}: Volume,
	{Time, 2}:   TimeSquare,
}

// MulDimension returns the dimension resulting from multiplying quantities
// of dimension a and b, per the hand-coded table.
func MulDimension(a, b Dimension) (Dimension, error) {
	if a == Dimensionless {
		return b, nil
	}
	if b == Dimensionless {
		return a, nil
	}
	if a == b {
		if d, ok := dimMulTable[dimPair{a, a}]; ok {
			return d, nil
		}
	}
	if d, ok := dimMulTable[dimPair{a, b}]; ok {
		return d, nil
	}
	if d, ok := dimMulTable[dimPair{b, a}]; ok {
		return d, nil
	}
	return 0, &errUnsupportedOp{op: "mul", args: []Dimension{a, b}}
}

// DivDimension returns the dimension resulting from dividing a quantity of
// dimension a by one of dimension b.
func DivDimension(a, b Dimension) (Dimension, error) {
	if b == Dimensionless {
		return a, nil
	}
	if a == b {
		return Dimensionless, nil
	}
	if d, ok := dimDivTable[dimPair{a, b}]; ok {
		return d, nil
	}
	return 0, &errUnsupportedOp{op: "div", args: []Dimension{a, b}}
}

// PowDimension returns the dimension resulting from raising a quantity of
// dimension d to the integer power n.
func PowDimension(d Dimension, n int) (Dimension, error) {
	if n == 0 {
		return Dimensionless, nil
	}
	if n == 1 {
		return d, nil
	}
	if d == Dimensionless {
		return Dimensionless, nil
	}
	if n < 0 {
		base, err := PowDimension(d, -n)
		if err != nil {
			return 0, err
		}
		return DivDimension(Dimensionless, base)
	}
	if r, ok := powTable[powKey{d, n}]; ok {
		return r, nil
	}
	// Fall back to repeated multiplication through the mul table.
	result := d
	for i := 1; i < n; i++ {
		next, err := MulDimension(result, d)
		if err != nil {
			return 0, &errUnsupportedOp{op: fmt.Sprintf("pow^%d", n), args: []Dimension{d}}
		}
		result = next
	}
	return result, nil
}
