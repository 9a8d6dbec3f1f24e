// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package expr

import (
	"fmt"

	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// TypeEnv supplies the type checker with the implicit datum's type, the
// types of every field a Variable may reference, and the cast-strictness
// policy that governs implicit string/regex coercions.
type TypeEnv struct {
	DataType      value.Type
	Vars          map[string]value.Type
	StrictStrings bool
}

// TypeCheck is a total function `(Expr, vars, dataType) -> Type`. It runs
// over the same structure as Eval so a well-typed expression cannot raise
// a type error at run time, with one exception: the sha1/md5 stubs
// type-check to BinaryString but always fail with a type error in Eval.
func TypeCheck(e Expr, env TypeEnv) (value.Type, error) {
	switch n := e.(type) {
	case *DataRef:
		return env.DataType, nil

	case *LiteralExpr:
		switch n.Value.(type) {
		case int64:
			return value.Integer(), nil
		case float64:
			return value.Float(), nil
		case string:
			return value.UnicodeString(), nil
		default:
			return value.Type{}, typeErrf(n, "unsupported literal value %#v", n.Value)
		}

	case *Variable:
		t, ok := env.Vars[n.Name]
		if !ok {
			return value.Type{}, typeErrf(n, "undefined variable %q", n.Name)
		}
		return t, nil

	case *Binary:
		return typeCheckBinary(n, env)

	case *Neg:
		t, err := TypeCheck(n.X, env)
		if err != nil {
			return value.Type{}, err
		}
		if !isNumeric(t) {
			return value.Type{}, typeErrf(n, "cannot negate %s", t)
		}
		return t, nil

	case *Pow:
		t, err := TypeCheck(n.X, env)
		if err != nil {
			return value.Type{}, err
		}
		switch t.Kind {
		case value.KindInteger:
			return value.Integer(), nil
		case value.KindFloat:
			return value.Float(), nil
		case value.KindQuantity:
			dim, derr := unit.PowDimension(t.Dim, n.N)
			if derr != nil {
				return value.Type{}, typeErrf(n, "pow: %v", derr)
			}
			return value.QuantityType(dim), nil
		default:
			return value.Type{}, typeErrf(n, "cannot raise %s to a power", t)
		}

	case *QuantityExpr:
		t, err := TypeCheck(n.X, env)
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind != value.KindInteger && t.Kind != value.KindFloat {
			return value.Type{}, typeErrf(n, "cannot ascribe a unit to %s", t)
		}
		return value.QuantityType(n.Unit.Dimension()), nil

	case *Convert:
		t, err := TypeCheck(n.X, env)
		if err != nil {
			return value.Type{}, err
		}
		if t.Kind != value.KindQuantity {
			return value.Type{}, typeErrf(n, "convert() requires a Quantity operand, got %s", t)
		}
		if t.Dim != n.Unit.Dimension() {
			return value.Type{}, typeErrf(n, "cannot convert %s quantity to dimension %s", t.Dim, n.Unit.Dimension())
		}
		return value.QuantityType(n.Unit.Dimension()), nil

	case *Fallback:
		a, errA := TypeCheck(n.A, env)
		b, errB := TypeCheck(n.B, env)
		if errA != nil {
			return value.Type{}, errA
		}
		if errB != nil {
			return value.Type{}, errB
		}
		return unifyTypes(n, a, b, env.StrictStrings)

	case *Call:
		return typeCheckCall(n, env)

	case *RegexSubst:
		t, err := TypeCheck(n.X, env)
		if err != nil {
			return value.Type{}, err
		}
		switch t.Kind {
		case value.KindUnicodeString:
			return value.UnicodeString(), nil
		case value.KindBinaryString:
			if env.StrictStrings {
				return value.Type{}, typeErrf(n, "regex substitution on a BinaryString requires strict_strings=false")
			}
			return value.UnicodeString(), nil
		default:
			return value.Type{}, typeErrf(n, "regex substitution requires a string operand, got %s", t)
		}

	default:
		return value.Type{}, typeErrf(e, "unsupported expression node %T", e)
	}
}

func typeErrf(e Expr, format string, args ...interface{}) error {
	span := e.Span()
	return fmt.Errorf("expr: type error at %d-%d: %s", span.Start, span.End, fmt.Sprintf(format, args...))
}

func isNumeric(t value.Type) bool {
	return t.Kind == value.KindInteger || t.Kind == value.KindFloat || t.Kind == value.KindQuantity
}

func isString(t value.Type) bool {
	return t.Kind == value.KindUnicodeString || t.Kind == value.KindBinaryString
}

func typeCheckBinary(n *Binary, env TypeEnv) (value.Type, error) {
	a, err := TypeCheck(n.Left, env)
	if err != nil {
		return value.Type{}, err
	}
	b, err := TypeCheck(n.Right, env)
	if err != nil {
		return value.Type{}, err
	}
	switch n.Op {
	case OpAnd, OpOr:
		if a.Kind != value.KindBoolean || b.Kind != value.KindBoolean {
			return value.Type{}, typeErrf(n, "%s requires Boolean operands, got %s and %s", opName(n.Op), a, b)
		}
		return value.Boolean(), nil

	case OpEq, OpNe:
		return value.Boolean(), nil

	case OpLt, OpLe, OpGt, OpGe:
		if !isNumeric(a) && a.Kind != value.KindTime && a.Kind != value.KindAge {
			return value.Type{}, typeErrf(n, "%s requires ordered operands, got %s", opName(n.Op), a)
		}
		return value.Boolean(), nil

	case OpAdd:
		if a.Kind == value.KindTime && b.Kind == value.KindAge {
			return value.Time(), nil
		}
		if a.Kind == value.KindAge && b.Kind == value.KindAge {
			return value.Age(), nil
		}
		return arithResult(n, a, b)

	case OpSub:
		if a.Kind == value.KindTime && b.Kind == value.KindTime {
			return value.Age(), nil
		}
		if a.Kind == value.KindTime && b.Kind == value.KindAge {
			return value.Time(), nil
		}
		if a.Kind == value.KindAge && b.Kind == value.KindAge {
			return value.Age(), nil
		}
		return arithResult(n, a, b)

	case OpMul, OpDiv:
		return arithResult(n, a, b)

	default:
		return value.Type{}, typeErrf(n, "unsupported binary operator")
	}
}

func opName(op BinOp) string {
	names := map[BinOp]string{
		OpOr: "||", OpAnd: "&&", OpEq: "==", OpNe: "!=", OpLt: "<", OpLe: "<=",
		OpGt: ">", OpGe: ">=", OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpPow: "^",
	}
	return names[op]
}

// arithResult implements the numeric-operator typing: "(Integer,
// Integer) -> Integer", "(Float|Integer, Float|Integer) -> Float",
// "(Quantity, Quantity) -> Quantity via the unit algebra", plus
// Quantity-by-scalar scaling.
func arithResult(n *Binary, a, b value.Type) (value.Type, error) {
	if a.Kind == value.KindInteger && b.Kind == value.KindInteger {
		return value.Integer(), nil
	}
	if isPlainNumber(a) && isPlainNumber(b) {
		return value.Float(), nil
	}
	if a.Kind == value.KindQuantity && b.Kind == value.KindQuantity {
		switch n.Op {
		case OpAdd, OpSub:
			if a.Dim != b.Dim {
				return value.Type{}, typeErrf(n, "cannot %s quantities of dimension %s and %s", opName(n.Op), a.Dim, b.Dim)
			}
			return a, nil
		case OpMul:
			dim, err := unit.MulDimension(a.Dim, b.Dim)
			if err != nil {
				return value.Type{}, typeErrf(n, "%v", err)
			}
			return value.QuantityType(dim), nil
		case OpDiv:
			dim, err := unit.DivDimension(a.Dim, b.Dim)
			if err != nil {
				return value.Type{}, typeErrf(n, "%v", err)
			}
			return value.QuantityType(dim), nil
		}
	}
	if a.Kind == value.KindQuantity && isPlainNumber(b) && (n.Op == OpMul || n.Op == OpDiv) {
		return a, nil
	}
	if b.Kind == value.KindQuantity && isPlainNumber(a) && n.Op == OpMul {
		return b, nil
	}
	return value.Type{}, typeErrf(n, "cannot apply %s to %s and %s", opName(n.Op), a, b)
}

func isPlainNumber(t value.Type) bool {
	return t.Kind == value.KindInteger || t.Kind == value.KindFloat
}

// unifyTypes implements Fallback's arm unification: numeric
// widening, or string coercion when non-strict.
func unifyTypes(n Expr, a, b value.Type, strictStrings bool) (value.Type, error) {
	if a.Equal(b) {
		return a, nil
	}
	if isPlainNumber(a) && isPlainNumber(b) {
		return value.Float(), nil
	}
	if !strictStrings && isString(a) && isString(b) {
		return value.UnicodeString(), nil
	}
	return value.Type{}, typeErrf(n, "fallback arms have incompatible types %s and %s", a, b)
}

func typeCheckCall(n *Call, env TypeEnv) (value.Type, error) {
	argTypes := make([]value.Type, len(n.Args))
	for i, a := range n.Args {
		t, err := TypeCheck(a, env)
		if err != nil {
			return value.Type{}, err
		}
		argTypes[i] = t
	}
	lower := lowerName(n.Name)
	switch lower {
	case "log":
		if len(argTypes) != 2 || !isNumeric(argTypes[0]) || !isNumeric(argTypes[1]) {
			return value.Type{}, typeErrf(n, "log(base, v) requires two numeric arguments")
		}
		return value.Float(), nil
	case "sign":
		if len(argTypes) != 1 || !isNumeric(argTypes[0]) {
			return value.Type{}, typeErrf(n, "sign(v) requires one numeric argument")
		}
		return value.Integer(), nil
	case "abs":
		if len(argTypes) != 1 || !isNumeric(argTypes[0]) {
			return value.Type{}, typeErrf(n, "abs(v) requires one numeric argument")
		}
		return argTypes[0], nil
	case "enumvalue":
		if len(argTypes) != 1 || (argTypes[0].Kind != value.KindEnum && argTypes[0].Kind != value.KindIntEnum) {
			return value.Type{}, typeErrf(n, "enum_value(v) requires an Enum or IntEnum argument")
		}
		return value.UnicodeString(), nil
	case "unwraperror":
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindResult {
			return value.Type{}, typeErrf(n, "unwrap_error(v) requires a Result argument")
		}
		return *argTypes[0].Elem, nil
	case "agefromseconds":
		if len(argTypes) != 1 || !isNumeric(argTypes[0]) {
			return value.Type{}, typeErrf(n, "age_from_seconds(v) requires one numeric argument")
		}
		return value.Age(), nil
	case "unpacktime":
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindBinaryString {
			return value.Type{}, typeErrf(n, "unpack_time(data) requires a BinaryString argument")
		}
		return value.Time(), nil
	case "parseint":
		if len(argTypes) != 1 || !isString(argTypes[0]) {
			return value.Type{}, typeErrf(n, "parse_int(v) requires a string argument")
		}
		return value.Integer(), nil
	case "parseipv4bin":
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindBinaryString {
			return value.Type{}, typeErrf(n, "parse_ipv4_bin(data) requires a BinaryString argument")
		}
		return value.Ipv4(), nil
	case "parseipv6bin":
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindBinaryString {
			return value.Type{}, typeErrf(n, "parse_ipv6_bin(data) requires a BinaryString argument")
		}
		return value.Ipv6(), nil
	case "parsemacbin":
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindBinaryString {
			return value.Type{}, typeErrf(n, "parse_mac_bin(data) requires a BinaryString argument")
		}
		return value.MacAddress(), nil
	case "bitsbe", "bitsle":
		if len(argTypes) != 3 || argTypes[0].Kind != value.KindBinaryString ||
			argTypes[1].Kind != value.KindInteger || argTypes[2].Kind != value.KindInteger {
			return value.Type{}, typeErrf(n, "%s(data, from, len) requires (BinaryString, Integer, Integer)", n.Name)
		}
		return value.Integer(), nil
	case "format":
		if len(argTypes) != 2 || !isString(argTypes[0]) || !isNumeric(argTypes[1]) {
			return value.Type{}, typeErrf(n, "format(spec, v) requires (String, numeric)")
		}
		return value.UnicodeString(), nil
	case "sha1", "md5":
		// Not implemented at eval time; still type-checks to
		// BinaryString so packages using it parse.
		if len(argTypes) != 1 || argTypes[0].Kind != value.KindBinaryString {
			return value.Type{}, typeErrf(n, "%s(v) requires a BinaryString argument", n.Name)
		}
		return value.BinaryString(), nil
	default:
		return value.Type{}, typeErrf(n, "unknown function %q", n.Name)
	}
}

// lowerName normalizes a builtin call name for lookup: lowercase with
// underscores stripped, so surface spellings like "enum_value" and
// "EnumValue" both resolve to the same builtin.
func lowerName(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '_' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r - 'A' + 'a'
		}
		out = append(out, r)
	}
	return string(out)
}
