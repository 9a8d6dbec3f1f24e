// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

func mustParse(t *testing.T, src string) Expr {
	t.Helper()
	e, err := Parse(src)
	require.NoErrorf(t, err, "parsing %q", src)
	return e
}

func TestQuantityArithmetic(t *testing.T) {
	// "1 km" + "500 m" type-checks as Length and evaluates to 1500 m (the
	// reference unit); converting to km yields 1.5 km.
	e := mustParse(t, "1 km + 500 m")

	typ, err := TypeCheck(e, TypeEnv{})
	require.NoError(t, err)
	assert.Equal(t, value.KindQuantity, typ.Kind)
	assert.Equal(t, unit.Length, typ.Dim)

	d := Eval(e, NewRow(nil))
	v, ok := d.Value()
	require.True(t, ok)
	q, ok := v.AsQuantity()
	require.True(t, ok)
	assert.Equal(t, unit.MustParse("m"), q.Unit)
	assert.InDelta(t, 1500, q.Value, 1e-9)

	km := unit.MustParse("km")
	converted, cerr := q.Convert(km)
	require.NoError(t, cerr)
	assert.InDelta(t, 1.5, converted.Value, 1e-9)
}

func TestBitsField(t *testing.T) {
	// 0xA5 and 0x3C are bit-palindromes, so the per-byte-reversal duality
	// forces BitsLE to agree with BitsBE on this input.
	data := string([]byte{0xA5, 0x3C})
	row := NewRow(map[string]Expr{
		"be": mustParse(t, `BitsBE(@, 4, 8)`),
		"le": mustParse(t, `BitsLE(@, 4, 8)`),
	})
	row.SetData(value.DataOk(value.NewBinaryString(data)))

	be := row.Get("be")
	v, ok := be.Value()
	require.True(t, ok)
	i, _ := v.AsInteger()
	assert.Equal(t, int64(0x53), i)

	le := row.Get("le")
	v2, ok := le.Value()
	require.True(t, ok)
	i2, _ := v2.AsInteger()
	assert.Equal(t, int64(0x53), i2)

	// An asymmetric input shows the byte-fold order: the first byte lands
	// in the low bits of the LE result.
	row2 := NewRow(map[string]Expr{
		"be": mustParse(t, `BitsBE(@, 0, 16)`),
		"le": mustParse(t, `BitsLE(@, 0, 16)`),
	})
	row2.SetData(value.DataOk(value.NewBinaryString(string([]byte{0x12, 0x34}))))

	v3, ok := row2.Get("be").Value()
	require.True(t, ok)
	i3, _ := v3.AsInteger()
	assert.Equal(t, int64(0x1234), i3)

	v4, ok := row2.Get("le").Value()
	require.True(t, ok)
	i4, _ := v4.AsInteger()
	assert.Equal(t, int64(0x3412), i4)
}

func TestEnumValue(t *testing.T) {
	choices := value.NewChoices("ok", "warn", "crit")
	enumVal, err := value.NewEnum(choices, "warn")
	require.NoError(t, err)

	row := NewRow(map[string]Expr{"label": mustParse(t, "enum_value(@)")})
	row.SetData(value.DataOk(enumVal))

	d := row.Get("label")
	v, ok := d.Value()
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "warn", s)
}

func TestRegexSubstituteStrictness(t *testing.T) {
	e := mustParse(t, `(@)~s/\s+/ /`)

	row := NewRow(nil)
	row.SetData(value.DataOk(value.NewBinaryString("a   b")))

	d := Eval(e, row)
	v, ok := d.Value()
	require.True(t, ok)
	assert.Equal(t, value.KindUnicodeString, v.Type().Kind)
	s, _ := v.AsString()
	assert.Equal(t, "a b", s)

	_, err := TypeCheck(e, TypeEnv{DataType: value.BinaryString(), StrictStrings: false})
	require.NoError(t, err)
	_, err = TypeCheck(e, TypeEnv{DataType: value.BinaryString(), StrictStrings: true})
	require.Error(t, err)
}

func TestFallbackChain(t *testing.T) {
	parseExpr := mustParse(t, "fallback(parse_int(@), 0)")

	naRow := NewRow(nil)
	naRow.SetData(value.DataOk(value.NewUnicodeString("N/A")))
	d := Eval(parseExpr, naRow)
	v, ok := d.Value()
	require.True(t, ok)
	i, _ := v.AsInteger()
	assert.Equal(t, int64(0), i)

	missingRow := NewRow(nil)
	d = Eval(parseExpr, missingRow)
	v, ok = d.Value()
	require.True(t, ok)
	i, _ = v.AsInteger()
	assert.Equal(t, int64(0), i)

	okRow := NewRow(nil)
	okRow.SetData(value.DataOk(value.NewUnicodeString("42")))
	d = Eval(parseExpr, okRow)
	v, ok = d.Value()
	require.True(t, ok)
	i, _ = v.AsInteger()
	assert.Equal(t, int64(42), i)
}

func TestFallbackOnlyRecoversMissingErrors(t *testing.T) {
	e := mustParse(t, "fallback(@ / 0, 1)")
	row := NewRow(nil)
	row.SetData(value.DataOk(value.NewInteger(10)))
	d := Eval(e, row)
	require.False(t, d.IsOk())
	assert.Equal(t, agenterror.KindDivisionByZero, d.Error().Kind)
}

func TestCycleDetection(t *testing.T) {
	// Row {a: b+1, b: a+1} evaluated anywhere yields CycleError, never a
	// stack overflow.
	fields := func() map[string]Expr {
		return map[string]Expr{
			"a": mustParse(t, "b + 1"),
			"b": mustParse(t, "a + 1"),
		}
	}

	rowA := NewRow(fields())
	da := rowA.Get("a")
	require.False(t, da.IsOk())
	assert.Equal(t, agenterror.KindCycleError, da.Error().Kind)
	assert.Equal(t, "a", da.Error().Name)

	rowB := NewRow(fields())
	db := rowB.Get("b")
	require.False(t, db.IsOk())
	assert.Equal(t, agenterror.KindCycleError, db.Error().Kind)
	assert.Equal(t, "b", db.Error().Name)
}

func TestIntegerOverflow(t *testing.T) {
	e := mustParse(t, "9223372036854775807 + 1")
	d := Eval(e, NewRow(nil))
	require.False(t, d.IsOk())
	assert.Equal(t, agenterror.KindIntegerOverflow, d.Error().Kind)
}

func TestMissingVariableTypeError(t *testing.T) {
	e := mustParse(t, "undefined_field + 1")
	_, err := TypeCheck(e, TypeEnv{Vars: map[string]value.Type{}})
	require.Error(t, err)
}

func TestShaStubAlwaysErrors(t *testing.T) {
	e := mustParse(t, "sha1(@)")
	typ, err := TypeCheck(e, TypeEnv{})
	require.NoError(t, err)
	assert.Equal(t, value.KindBinaryString, typ.Kind)

	row := NewRow(nil)
	row.SetData(value.DataOk(value.NewBinaryString("hello")))
	d := Eval(e, row)
	require.False(t, d.IsOk())
	assert.Equal(t, agenterror.KindTypeError, d.Error().Kind)
}
