// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/unit"
)

func TestEnumConstructionRejectsUnknownLabel(t *testing.T) {
	choices := NewChoices("ok", "warn", "crit")
	v, err := NewEnum(choices, "warn")
	require.NoError(t, err)
	assert.Equal(t, "warn", v.String())

	_, err = NewEnum(choices, "fatal")
	assert.Error(t, err)
}

func TestCastIdempotence(t *testing.T) {
	choices := NewChoices("ok", "warn", "crit")
	enumVal, err := NewEnum(choices, "warn")
	require.NoError(t, err)

	mac, err := NewMacAddress(net.HardwareAddr{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01})
	require.NoError(t, err)

	listVal, err := NewList(Integer(), []Value{NewInteger(1), NewInteger(2)})
	require.NoError(t, err)

	samples := []Value{
		NewBinaryString("raw"),
		NewUnicodeString("hello"),
		NewInteger(42),
		NewFloat(3.14),
		NewBoolean(true),
		NewTime(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)),
		NewAge(5 * time.Second),
		enumVal,
		mac,
		listVal,
	}
	opts := CastOpts{Explicit: true}
	for _, v := range samples {
		cast, err := v.CastTo(v.Type(), opts)
		require.NoError(t, err)
		assert.True(t, v.Equal(cast), "cast_to(self) must equal original for %s", v.Type())
	}
}

func TestImplicitCastGuardedByStrictStrings(t *testing.T) {
	bin := NewBinaryString("  spaced  ")

	lenient := CastOpts{StrictStrings: false}
	cast, err := bin.CastTo(UnicodeString(), lenient)
	require.NoError(t, err)
	assert.Equal(t, "  spaced  ", cast.String())

	strict := CastOpts{StrictStrings: true}
	_, err = bin.CastTo(UnicodeString(), strict)
	assert.Error(t, err)

	// explicit casts always admit the conversion regardless of strictness.
	explicit := CastOpts{StrictStrings: true, Explicit: true}
	_, err = bin.CastTo(UnicodeString(), explicit)
	assert.NoError(t, err)
}

func TestIntegerToDimensionlessQuantityCast(t *testing.T) {
	v := NewInteger(7)
	cast, err := v.CastTo(QuantityType(unit.Dimensionless), CastOpts{Explicit: true})
	require.NoError(t, err)
	q, ok := cast.AsQuantity()
	require.True(t, ok)
	assert.Equal(t, 7.0, q.Value)
}

func TestPointwiseCastInsideList(t *testing.T) {
	list, err := NewList(Integer(), []Value{NewInteger(1), NewInteger(2), NewInteger(3)})
	require.NoError(t, err)

	cast, err := list.CastTo(ListType(Float()), CastOpts{Explicit: true})
	require.NoError(t, err)
	floats := cast.AsList()
	require.Len(t, floats, 3)
	f, ok := floats[0].AsFloat()
	require.True(t, ok)
	assert.Equal(t, 1.0, f)
}

func TestSetDeduplicatesByCanonicalKey(t *testing.T) {
	s, err := NewSet(Integer(), []Value{NewInteger(1), NewInteger(2), NewInteger(1)})
	require.NoError(t, err)
	assert.Len(t, s.AsSet(), 2)
}

func TestMapRejectsDuplicateKeys(t *testing.T) {
	_, err := NewMap(Integer(), UnicodeString(),
		[]Value{NewInteger(1), NewInteger(1)},
		[]Value{NewUnicodeString("a"), NewUnicodeString("b")})
	assert.Error(t, err)
}

func TestFloatAndQuantityAreNotHashable(t *testing.T) {
	f := NewFloat(1.5)
	_, err := f.CanonicalKey()
	assert.Error(t, err)

	q := NewQuantity(unit.NewQuantity(1, unit.MustParse("m")))
	_, err = q.CanonicalKey()
	assert.Error(t, err)
}

func TestUnicodeStringCanonicalKeyIsRawString(t *testing.T) {
	v := NewUnicodeString("host01")
	k, err := v.CanonicalKey()
	require.NoError(t, err)
	assert.Equal(t, "host01", k)
}

func TestJSONRoundTripScalars(t *testing.T) {
	cases := []Value{
		NewUnicodeString("host01"),
		NewBinaryString("\x00\x01raw"),
		NewInteger(-42),
		NewFloat(3.5),
		NewBoolean(true),
		NewAge(90 * time.Second),
	}
	for _, v := range cases {
		data, err := MarshalValue(v, nil)
		require.NoError(t, err)
		got, err := UnmarshalValue(data, v.Type(), nil)
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "round trip mismatch for %s: %s -> %s", v.Type(), v, got)
	}
}

func TestJSONRoundTripTimeMillisecondPrecision(t *testing.T) {
	ts := time.Date(2026, 7, 30, 10, 15, 30, 250_000_000, time.UTC)
	v := NewTime(ts)
	data, err := MarshalValue(v, nil)
	require.NoError(t, err)
	assert.Equal(t, `"2026-07-30T10:15:30.250Z"`, string(data))

	got, err := UnmarshalValue(data, Time(), nil)
	require.NoError(t, err)
	gotTime, _ := got.AsTime()
	assert.True(t, ts.Equal(gotTime))
}

func TestJSONQuantityDisplayUnit(t *testing.T) {
	v := NewQuantity(unit.NewQuantity(1500, unit.MustParse("m")))
	kb := unit.MustParse("km")
	data, err := MarshalValue(v, &kb)
	require.NoError(t, err)
	assert.Equal(t, "1.5", string(data))

	got, err := UnmarshalValue(data, QuantityType(unit.Length), &kb)
	require.NoError(t, err)
	q, _ := got.AsQuantity()
	normalized := q.Normalize()
	assert.InDelta(t, 1500, normalized.Value, 1e-9)
}

func TestJSONMapRoundTripWithNonStringKey(t *testing.T) {
	m, err := NewMap(Integer(), UnicodeString(),
		[]Value{NewInteger(1), NewInteger(2)},
		[]Value{NewUnicodeString("one"), NewUnicodeString("two")})
	require.NoError(t, err)

	data, err := MarshalValue(m, nil)
	require.NoError(t, err)

	got, err := UnmarshalValue(data, MapType(Integer(), UnicodeString()), nil)
	require.NoError(t, err)
	entries := got.MapEntries()
	assert.Len(t, entries, 2)
}

func TestDataFallbackMissingSemantics(t *testing.T) {
	missing := DataErr(agenterror.New(agenterror.KindMissing))
	assert.True(t, missing.IsMissing())

	pending := DataErr(agenterror.New(agenterror.KindCounterPending))
	assert.True(t, pending.IsMissing())

	overflow := DataErr(agenterror.New(agenterror.KindIntegerOverflow))
	assert.False(t, overflow.IsMissing())

	ok := DataOk(NewInteger(42))
	assert.True(t, ok.IsOk())
	assert.False(t, ok.IsMissing())
}

func TestAnnotatedCarriesWarningsAlongsideValue(t *testing.T) {
	rows := RowSet{{"field1": DataOk(NewInteger(1))}}
	warn := agenterror.NewWarning(agenterror.KindOutOfBounds, "clamped")
	a := AnnotatedOk(rows, warn)
	require.True(t, a.IsOk())
	got, ok := a.Value()
	require.True(t, ok)
	assert.Equal(t, rows, got)
	assert.Equal(t, []agenterror.Warning{warn}, a.Warnings())
}

func TestAnnotatedFatalReplacesValue(t *testing.T) {
	fatal := agenterror.NewFatal(agenterror.KindConnection, "plugin", nil)
	a := AnnotatedErr[RowSet](fatal)
	assert.False(t, a.IsOk())
	assert.Equal(t, fatal, a.Error())
}

func TestEnumValueEndToEndScenario(t *testing.T) {
	choices := NewChoices("ok", "warn", "crit")
	v, err := NewEnum(choices, "warn")
	require.NoError(t, err)
	assert.Equal(t, KindEnum, v.Type().Kind)
	assert.Equal(t, "warn", v.String())
}
