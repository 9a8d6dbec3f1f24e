// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package unit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDisplayRoundTrip(t *testing.T) {
	for _, d := range AllDimensions() {
		for _, u := range d.Units() {
			parsed, err := Parse(u.String())
			require.NoErrorf(t, err, "parsing %q", u.String())
			assert.Equalf(t, u, parsed, "round-trip for %q", u.String())
		}
	}
}

func TestConvertRoundTrip(t *testing.T) {
	kb, err := Parse("kB/s")
	require.NoError(t, err)
	q := NewQuantity(9, kb)

	for _, u := range Bandwidth.Units() {
		converted, err := q.Convert(u)
		require.NoError(t, err)
		back, err := converted.Convert(kb)
		require.NoError(t, err)
		assert.InDelta(t, q.Value, back.Value, 1e-6)
	}
}

func TestQuantityArithmeticKmPlusM(t *testing.T) {
	km := MustParse("km")
	m := MustParse("m")

	// The sum normalizes to the dimension's reference unit: 1500 m, not
	// 1.5 km.
	sum, err := NewQuantity(1, km).Add(NewQuantity(500, m))
	require.NoError(t, err)
	assert.Equal(t, m, sum.Unit)
	assert.InDelta(t, 1500, sum.Value, 1e-9)

	converted, err := sum.Convert(km)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, converted.Value, 1e-9)
}

func TestDimensionMismatch(t *testing.T) {
	km := MustParse("km")
	s := MustParse("s")
	_, err := NewQuantity(1, km).Convert(s)
	require.Error(t, err)
	var mismatch *ErrDimensionMismatch
	assert.ErrorAs(t, err, &mismatch)
}

func TestTemperatureAffineConversion(t *testing.T) {
	degC := MustParse("degC")
	k := MustParse("K")

	q := NewQuantity(0, degC)
	converted, err := q.Convert(k)
	require.NoError(t, err)
	assert.InDelta(t, 273.15, converted.Value, 1e-9)

	back, err := converted.Convert(degC)
	require.NoError(t, err)
	assert.InDelta(t, 0, back.Value, 1e-9)
}

func TestDBmLogConversion(t *testing.T) {
	dBm := MustParse("dBm")
	w := MustParse("W")

	q := NewQuantity(30, dBm) // 30 dBm == 1 W
	converted, err := q.Convert(w)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, converted.Value, 1e-6)

	back, err := converted.Convert(dBm)
	require.NoError(t, err)
	assert.InDelta(t, 30, back.Value, 1e-6)
}

func TestMulMismatchIsError(t *testing.T) {
	_, err := NewQuantity(1, MustParse("degC")).Mul(NewQuantity(1, MustParse("rpm")))
	require.Error(t, err)
}

func TestAreaFromLengthMul(t *testing.T) {
	m := MustParse("m")
	area, err := NewQuantity(3, m).Mul(NewQuantity(4, m))
	require.NoError(t, err)
	assert.Equal(t, Area, area.Unit.Dimension())
	assert.InDelta(t, 12, area.Value, 1e-9)
}

func TestAutoScaleChoosesReadableMagnitude(t *testing.T) {
	bps := MustParse("B/s")
	scaled := bps.AutoScale(9_000_000)
	assert.Equal(t, "MB/s", scaled.String())
	assert.False(t, math.IsNaN(scaled.Multiplier()))
}

func TestBandwidthCounterScenario(t *testing.T) {
	// 1_000_000 then 1_090_000 bytes over 10s must render 9 kB/s.
	deltaBytes := 1_090_000.0 - 1_000_000.0
	bps := NewQuantity(deltaBytes/10, MustParse("B/s"))
	kbps, err := bps.Convert(MustParse("kB/s"))
	require.NoError(t, err)
	assert.InDelta(t, 9, kbps.Value, 1)
}
