// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package unit

import (
	"fmt"
	"math"
	"strconv"
)

type prefixKind int

const (
	prefixNone prefixKind = iota
	prefixDecimal
	prefixBinary
)

// Prefix is a decimal or binary scale factor such as "k" (1e3) or "Mi" (2^20).
type Prefix struct {
	Symbol string
	Factor float64
}

var decimalPrefixes = []Prefix{
	{"p", 1e-12}, {"n", 1e-9}, {"u", 1e-6}, {"m", 1e-3}, {"", 1},
	{"k", 1e3}, {"M", 1e6}, {"G", 1e9}, {"T", 1e12},
}

var binaryPrefixes = []Prefix{
	{"", 1}, {"Ki", 1 << 10}, {"Mi", 1 << 20}, {"Gi", 1 << 30}, {"Ti", 1 << 40},
}

func prefixSet(k prefixKind) []Prefix {
	switch k {
	case prefixDecimal:
		return decimalPrefixes
	case prefixBinary:
		return binaryPrefixes
	default:
		return []Prefix{{"", 1}}
	}
}

func lookupPrefix(k prefixKind, symbol string) (Prefix, bool) {
	for _, p := range prefixSet(k) {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Prefix{}, false
}

// affine describes a non-multiplicative conversion to the reference atom,
// value_ref = (value_atom + offset) * scale; offset and scale in reference
// units. Used for Celsius/Fahrenheit under Temperature.
type affine struct {
	offset float64
	scale  float64
}

// logScale describes a dB-like atom: value_ref = base^(value_atom/divisor) * refUnit,
// inverted by delinearize. Used for dBm under Power.
type logScale struct {
	base, divisor, refValue float64
}

type unitAtom struct {
	symbol     string
	toRef      float64 // linear multiplier to the reference atom, ignored when affine/log set
	prefixKind prefixKind
	refAtom    bool
	affine     *affine
	log        *logScale
}

// dimensionAtoms enumerates the unit atoms admitted by each dimension, in
// the order used by Dimension.Units() / the auto-scaler.
var dimensionAtoms = map[Dimension][]unitAtom{
	Length:      {{symbol: "m", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Mass:        {{symbol: "g", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Time: {
		{symbol: "s", toRef: 1, prefixKind: prefixDecimal, refAtom: true},
		{symbol: "min", toRef: 60},
		{symbol: "h", toRef: 3600},
		{symbol: "d", toRef: 86400},
	},
	Current: {{symbol: "A", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Temperature: {
		{symbol: "K", toRef: 1, refAtom: true},
		{symbol: "degC", affine: &affine{offset: 273.15, scale: 1}},
		{symbol: "degF", affine: &affine{offset: 459.67, scale: 5.0 / 9.0}},
	},
	Information: {
		{symbol: "b", toRef: 1, prefixKind: prefixBinary, refAtom: true},
		{symbol: "B", toRef: 8, prefixKind: prefixBinary},
	},
	Operations:       {{symbol: "op", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Area:             {{symbol: "m^2", toRef: 1, refAtom: true}},
	Volume:           {{symbol: "m^3", toRef: 1, refAtom: true}, {symbol: "l", toRef: 0.001, prefixKind: prefixDecimal}},
	Speed:            {{symbol: "m/s", toRef: 1, refAtom: true}, {symbol: "km/h", toRef: 1.0 / 3.6}},
	Acceleration:     {{symbol: "m/s^2", toRef: 1, refAtom: true}},
	Potential:        {{symbol: "V", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Power: {
		{symbol: "W", toRef: 1, prefixKind: prefixDecimal, refAtom: true},
		{symbol: "dBm", log: &logScale{base: 10, divisor: 10, refValue: 0.001}},
	},
	Resistance:       {{symbol: "ohm", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Conductivity:     {{symbol: "S", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Bandwidth:        {{symbol: "B/s", toRef: 1, prefixKind: prefixDecimal, refAtom: true}, {symbol: "b/s", toRef: 0.125, prefixKind: prefixDecimal}},
	IOLatency:        {{symbol: "s/op", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	IOPerformance:    {{symbol: "op/s", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	AvgOpSize:        {{symbol: "B/op", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Frequency:        {{symbol: "Hz", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	FanSpeed:         {{symbol: "rpm", toRef: 1, refAtom: true}},
	AbsoluteHumidity: {{symbol: "g/m^3", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	TimeSquare:       {{symbol: "s^2", toRef: 1, prefixKind: prefixDecimal, refAtom: true}},
	Dimensionless:    {{symbol: "", toRef: 1, refAtom: true}, {symbol: "%", toRef: 0.01}},
}

func findAtom(d Dimension, symbol string) (unitAtom, bool) {
	for _, a := range dimensionAtoms[d] {
		if a.symbol == symbol {
			return a, true
		}
	}
	return unitAtom{}, false
}

// Unit is a tagged (dimension, prefixed-atom) pair.
type Unit struct {
	dim       Dimension
	numPrefix Prefix
	numAtom   string
}

// Dimensionless1 is the empty, factor-1 Unit for the Dimensionless dimension.
var Dimensionless1 = Unit{dim: Dimensionless, numPrefix: Prefix{"", 1}, numAtom: ""}

// NewUnit constructs a Unit for dim from an atom symbol already registered
// under that dimension (no prefix). Use Parse for prefixed/composite forms.
func NewUnit(dim Dimension, atom string) (Unit, error) {
	if _, ok := findAtom(dim, atom); !ok {
		return Unit{}, fmt.Errorf("unit: unknown atom %q for dimension %s", atom, dim)
	}
	return Unit{dim: dim, numAtom: atom, numPrefix: Prefix{"", 1}}, nil
}

// Dimension returns the physical dimension this unit inhabits. Total: every
// constructed Unit has a dimension.
func (u Unit) Dimension() Dimension { return u.dim }

func (u Unit) atom() (unitAtom, bool) { return findAtom(u.dim, u.numAtom) }

// Multiplier returns the linear factor converting a value in u to the
// dimension's reference atom. For affine/log atoms this is meaningless on
// its own; use linearize/delinearize instead.
func (u Unit) Multiplier() float64 {
	a, ok := u.atom()
	if !ok {
		return 1
	}
	return u.numPrefix.Factor * a.toRef
}

// linearize maps a raw value in u to the dimension's reference scale,
// honoring affine offsets (temperature) and log scales (dBm).
func (u Unit) linearize(v float64) float64 {
	a, ok := u.atom()
	if !ok {
		return v
	}
	switch {
	case a.affine != nil:
		return (v + a.affine.offset) * a.affine.scale
	case a.log != nil:
		return math.Pow(a.log.base, v/a.log.divisor) * a.log.refValue
	default:
		return v * u.Multiplier()
	}
}

// delinearize is the inverse of linearize: maps a reference-scale value back
// into u.
func (u Unit) delinearize(v float64) float64 {
	a, ok := u.atom()
	if !ok {
		return v
	}
	switch {
	case a.affine != nil:
		return v/a.affine.scale - a.affine.offset
	case a.log != nil:
		return a.log.divisor * math.Log(v/a.log.refValue) / math.Log(a.log.base)
	default:
		return v / u.Multiplier()
	}
}

// Scale returns the ordered list of prefix variants the auto-scaler may
// choose among for this unit's atom.
func (u Unit) Scale() []Unit {
	a, ok := u.atom()
	if !ok || a.prefixKind == prefixNone {
		return []Unit{u}
	}
	out := make([]Unit, 0, len(prefixSet(a.prefixKind)))
	for _, p := range prefixSet(a.prefixKind) {
		out = append(out, Unit{dim: u.dim, numPrefix: p, numAtom: u.numAtom})
	}
	return out
}

// AutoScale picks, among u.Scale(), the prefix variant whose magnitude for
// value v is closest to but not exceeding 1000 (1024 for binary prefixes),
// falling back to the smallest prefix for very small values.
func (u Unit) AutoScale(v float64) Unit {
	variants := u.Scale()
	if len(variants) <= 1 {
		return u
	}
	ref := v * u.Multiplier()
	best := variants[0]
	for _, cand := range variants {
		scaled := math.Abs(ref / cand.Multiplier())
		threshold := 1000.0
		if a, ok := cand.atom(); ok && a.prefixKind == prefixBinary {
			threshold = 1024.0
		}
		if scaled >= 1 && scaled < threshold {
			best = cand
		}
	}
	return best
}

// String renders u unambiguously, e.g. "m^2", "m/s^2", "MiB/s".
func (u Unit) String() string {
	return u.numPrefix.Symbol + u.numAtom
}

// Parse parses a unit string such as "MiB/s", "W", "km/h", "Hz", "m^2",
// "m/s^2" against the full set of registered dimension atoms. Composite
// forms beyond the registered atoms (arbitrary "*"/"/"/"^n" combinations of
// unrelated dimensions) are not attempted here; the expression engine's
// Convert/Quantity operators combine dimensions through the arithmetic
// table instead of through free-form unit string algebra.
func Parse(s string) (Unit, error) {
	if s == "" {
		return Dimensionless1, nil
	}
	for _, d := range AllDimensions() {
		for _, a := range dimensionAtoms[d] {
			if a.prefixKind == prefixNone {
				if a.symbol == s {
					return Unit{dim: d, numAtom: a.symbol, numPrefix: Prefix{"", 1}}, nil
				}
				continue
			}
			for _, p := range prefixSet(a.prefixKind) {
				if p.Symbol+a.symbol == s {
					return Unit{dim: d, numAtom: a.symbol, numPrefix: p}, nil
				}
			}
		}
	}
	return Unit{}, fmt.Errorf("unit: cannot parse %q", s)
}

// MustParse is Parse but panics on error; used for literal constants.
func MustParse(s string) Unit {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// formatFloat renders a float with the shortest round-trippable form, used
// when displaying Quantity values (not part of Unit string rendering).
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
