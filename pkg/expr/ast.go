// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package expr implements the dimension-aware expression language:
// parse -> type-check -> evaluate, with cross-row variable resolution and
// cycle detection.
package expr

import "github.com/smartagent/agent/pkg/unit"

// Span locates a token or sub-expression in source text, carried by parser
// errors.
type Span struct {
	Start, End int
}

// BinOp enumerates the infix operators.
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpPow
)

// Expr is the sum type for every AST node.
type Expr interface {
	Span() Span
}

type base struct{ span Span }

func (b base) Span() Span { return b.span }

// DataRef is the implicit `@` datum passed into evaluation.
type DataRef struct {
	base
}

// LiteralExpr is a constant value.
type LiteralExpr struct {
	base
	Value interface{} // int64, float64, or string
}

// Variable references another field in the same row by name.
type Variable struct {
	base
	Name string
}

// Binary applies a BinOp to two sub-expressions.
type Binary struct {
	base
	Op          BinOp
	Left, Right Expr
}

// Neg negates its operand.
type Neg struct {
	base
	X Expr
}

// Pow raises X to an integer-literal exponent N.
type Pow struct {
	base
	X Expr
	N int
}

// QuantityExpr ascribes a unit to a numeric expression: `(expr) Unit`.
type QuantityExpr struct {
	base
	X    Expr
	Unit unit.Unit
}

// Convert converts X's quantity into Unit.
type Convert struct {
	base
	X    Expr
	Unit unit.Unit
}

// Fallback evaluates A; on a missing-data error evaluates B instead.
type Fallback struct {
	base
	A, B Expr
}

// Call is a builtin function application: Log, Sign, Abs, EnumValue,
// UnwrapError, AgeFromSeconds, UnpackTime, ParseInt, ParseIpv4Bin,
// ParseIpv6Bin, ParseMacBin, BitsBE, BitsLE, format.
type Call struct {
	base
	Name string
	Args []Expr
}

// RegexSubst is `(e)~s/pat/repl/`.
type RegexSubst struct {
	base
	X           Expr
	Pattern     string
	Replacement string
}
