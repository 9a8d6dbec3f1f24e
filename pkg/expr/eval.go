// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package expr

import (
	"fmt"
	"math"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// Eval evaluates e against row (for Variable lookups and the implicit `@`
// datum). Evaluation of a well-typed expression fails only with a run-time
// DataError: div-by-zero, parse error, out-of-bounds, overflow,
// missing variable/data, counter-pending. The sha1/md5 stubs are the
// exception: they always fail with a type error.
func Eval(e Expr, row *Row) value.Data {
	switch n := e.(type) {
	case *DataRef:
		return row.Data()

	case *LiteralExpr:
		switch v := n.Value.(type) {
		case int64:
			return value.DataOk(value.NewInteger(v))
		case float64:
			return value.DataOk(value.NewFloat(v))
		case string:
			return value.DataOk(value.NewUnicodeString(v))
		default:
			return value.DataErr(agenterror.Wrap(agenterror.KindValueError, fmt.Errorf("unsupported literal %#v", v)))
		}

	case *Variable:
		return row.Get(n.Name)

	case *Binary:
		return evalBinary(n, row)

	case *Neg:
		return evalNeg(n, row)

	case *Pow:
		return evalPow(n, row)

	case *QuantityExpr:
		return evalQuantity(n, row)

	case *Convert:
		return evalConvert(n, row)

	case *Fallback:
		a := Eval(n.A, row)
		if a.IsOk() {
			return a
		}
		if agenterror.IsMissing(a.Error()) {
			return Eval(n.B, row)
		}
		return a

	case *Call:
		return evalCall(n, row)

	case *RegexSubst:
		return evalRegexSubst(n, row)

	default:
		return value.DataErr(agenterror.Wrap(agenterror.KindValueError, fmt.Errorf("unsupported expression node %T", e)))
	}
}

func get1(e Expr, row *Row) (value.Value, *agenterror.DataError) {
	d := Eval(e, row)
	v, ok := d.Value()
	if !ok {
		return value.Value{}, d.Error()
	}
	return v, nil
}

func evalNeg(n *Neg, row *Row) value.Data {
	v, err := get1(n.X, row)
	if err != nil {
		return value.DataErr(err)
	}
	switch v.Type().Kind {
	case value.KindInteger:
		i, _ := v.AsInteger()
		if i == math.MinInt64 {
			return value.DataErr(agenterror.New(agenterror.KindIntegerOverflow))
		}
		return value.DataOk(value.NewInteger(-i))
	case value.KindFloat:
		f, _ := v.AsFloat()
		return value.DataOk(value.NewFloat(-f))
	case value.KindQuantity:
		q, _ := v.AsQuantity()
		return value.DataOk(value.NewQuantity(q.Neg()))
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
}

func evalPow(n *Pow, row *Row) value.Data {
	v, err := get1(n.X, row)
	if err != nil {
		return value.DataErr(err)
	}
	switch v.Type().Kind {
	case value.KindInteger:
		i, _ := v.AsInteger()
		r, ok := ipow(i, n.N)
		if !ok {
			return value.DataErr(agenterror.New(agenterror.KindIntegerOverflow))
		}
		return value.DataOk(value.NewInteger(r))
	case value.KindFloat:
		f, _ := v.AsFloat()
		return value.DataOk(value.NewFloat(math.Pow(f, float64(n.N))))
	case value.KindQuantity:
		q, _ := v.AsQuantity()
		r, qerr := q.Powi(n.N)
		if qerr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindValueError, qerr))
		}
		return value.DataOk(value.NewQuantity(r))
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
}

func ipow(base int64, n int) (int64, bool) {
	if n < 0 {
		return 0, false
	}
	result := int64(1)
	for i := 0; i < n; i++ {
		r, ok := mulI64(result, base)
		if !ok {
			return 0, false
		}
		result = r
	}
	return result, true
}

func evalQuantity(n *QuantityExpr, row *Row) value.Data {
	v, err := get1(n.X, row)
	if err != nil {
		return value.DataErr(err)
	}
	var f float64
	switch v.Type().Kind {
	case value.KindInteger:
		i, _ := v.AsInteger()
		f = float64(i)
	case value.KindFloat:
		f, _ = v.AsFloat()
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	return value.DataOk(value.NewQuantity(unit.NewQuantity(f, n.Unit)))
}

func evalConvert(n *Convert, row *Row) value.Data {
	v, err := get1(n.X, row)
	if err != nil {
		return value.DataErr(err)
	}
	q, ok := v.AsQuantity()
	if !ok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	out, cerr := q.Convert(n.Unit)
	if cerr != nil {
		return value.DataErr(agenterror.Wrap(agenterror.KindConversionError, cerr))
	}
	return value.DataOk(value.NewQuantity(out))
}

func addI64(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func subI64(a, b int64) (int64, bool) {
	diff := a - b
	if (b < 0 && diff < a) || (b > 0 && diff > a) {
		return 0, false
	}
	return diff, true
}

func mulI64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

func evalBinary(n *Binary, row *Row) value.Data {
	a, aerr := get1(n.Left, row)
	if aerr != nil {
		return value.DataErr(aerr)
	}
	b, berr := get1(n.Right, row)
	if berr != nil {
		return value.DataErr(berr)
	}
	switch n.Op {
	case OpAnd:
		av, _ := a.AsBoolean()
		bv, _ := b.AsBoolean()
		return value.DataOk(value.NewBoolean(av && bv))
	case OpOr:
		av, _ := a.AsBoolean()
		bv, _ := b.AsBoolean()
		return value.DataOk(value.NewBoolean(av || bv))
	case OpEq:
		return value.DataOk(value.NewBoolean(a.Equal(b)))
	case OpNe:
		return value.DataOk(value.NewBoolean(!a.Equal(b)))
	case OpLt, OpLe, OpGt, OpGe:
		return evalCompare(n.Op, a, b)
	case OpAdd, OpSub, OpMul, OpDiv:
		return evalArith(n.Op, a, b)
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
}

func numericF(v value.Value) (float64, bool) {
	switch v.Type().Kind {
	case value.KindInteger:
		i, _ := v.AsInteger()
		return float64(i), true
	case value.KindFloat:
		f, _ := v.AsFloat()
		return f, true
	case value.KindQuantity:
		q, _ := v.AsQuantity()
		return q.Unit.Multiplier() * q.Value, true
	default:
		return 0, false
	}
}

func evalCompare(op BinOp, a, b value.Value) value.Data {
	if a.Type().Kind == value.KindTime && b.Type().Kind == value.KindTime {
		at, _ := a.AsTime()
		bt, _ := b.AsTime()
		return value.DataOk(value.NewBoolean(timeCompare(op, at, bt)))
	}
	if a.Type().Kind == value.KindAge && b.Type().Kind == value.KindAge {
		ad, _ := a.AsAge()
		bd, _ := b.AsAge()
		return value.DataOk(value.NewBoolean(durCompare(op, ad, bd)))
	}
	af, aok := numericF(a)
	bf, bok := numericF(b)
	if !aok || !bok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	return value.DataOk(value.NewBoolean(floatCompare(op, af, bf)))
}

func floatCompare(op BinOp, a, b float64) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

func timeCompare(op BinOp, a, b time.Time) bool {
	switch op {
	case OpLt:
		return a.Before(b)
	case OpLe:
		return a.Before(b) || a.Equal(b)
	case OpGt:
		return a.After(b)
	case OpGe:
		return a.After(b) || a.Equal(b)
	}
	return false
}

func durCompare(op BinOp, a, b time.Duration) bool {
	switch op {
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}

// evalArith implements +,-,*,/ across Integer, Float, Quantity, Time, and
// Age combinations.
func evalArith(op BinOp, a, b value.Value) value.Data {
	ak, bk := a.Type().Kind, b.Type().Kind

	if ak == value.KindTime && bk == value.KindAge {
		at, _ := a.AsTime()
		ad, _ := b.AsAge()
		if op == OpAdd {
			return value.DataOk(value.NewTime(at.Add(ad)))
		}
		if op == OpSub {
			return value.DataOk(value.NewTime(at.Add(-ad)))
		}
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	if ak == value.KindTime && bk == value.KindTime && op == OpSub {
		at, _ := a.AsTime()
		bt, _ := b.AsTime()
		return value.DataOk(value.NewAge(at.Sub(bt)))
	}
	if ak == value.KindAge && bk == value.KindAge {
		ad, _ := a.AsAge()
		bd, _ := b.AsAge()
		switch op {
		case OpAdd:
			return value.DataOk(value.NewAge(ad + bd))
		case OpSub:
			return value.DataOk(value.NewAge(ad - bd))
		}
	}

	if ak == value.KindInteger && bk == value.KindInteger {
		ai, _ := a.AsInteger()
		bi, _ := b.AsInteger()
		var r int64
		var ok bool
		switch op {
		case OpAdd:
			r, ok = addI64(ai, bi)
		case OpSub:
			r, ok = subI64(ai, bi)
		case OpMul:
			r, ok = mulI64(ai, bi)
		case OpDiv:
			if bi == 0 {
				return value.DataErr(agenterror.New(agenterror.KindDivisionByZero))
			}
			return value.DataOk(value.NewFloat(float64(ai) / float64(bi)))
		}
		if !ok {
			return value.DataErr(agenterror.New(agenterror.KindIntegerOverflow))
		}
		return value.DataOk(value.NewInteger(r))
	}

	if ak == value.KindQuantity && bk == value.KindQuantity {
		aq, _ := a.AsQuantity()
		bq, _ := b.AsQuantity()
		var r unit.Quantity
		var qerr error
		switch op {
		case OpAdd:
			r, qerr = aq.Add(bq)
		case OpSub:
			r, qerr = aq.Sub(bq)
		case OpMul:
			r, qerr = aq.Mul(bq)
		case OpDiv:
			if bq.Value == 0 {
				return value.DataErr(agenterror.New(agenterror.KindDivisionByZero))
			}
			r, qerr = aq.Div(bq)
		}
		if qerr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindValueError, qerr))
		}
		return value.DataOk(value.NewQuantity(r))
	}

	if ak == value.KindQuantity && (bk == value.KindInteger || bk == value.KindFloat) && (op == OpMul || op == OpDiv) {
		aq, _ := a.AsQuantity()
		bf, _ := numericF(b)
		if op == OpDiv && bf == 0 {
			return value.DataErr(agenterror.New(agenterror.KindDivisionByZero))
		}
		scaled := aq.Value
		if op == OpMul {
			scaled *= bf
		} else {
			scaled /= bf
		}
		return value.DataOk(value.NewQuantity(unit.NewQuantity(scaled, aq.Unit)))
	}
	if bk == value.KindQuantity && (ak == value.KindInteger || ak == value.KindFloat) && op == OpMul {
		bq, _ := b.AsQuantity()
		af, _ := numericF(a)
		return value.DataOk(value.NewQuantity(unit.NewQuantity(bq.Value*af, bq.Unit)))
	}

	af, aok := numericF(a)
	bf, bok := numericF(b)
	if !aok || !bok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	switch op {
	case OpAdd:
		return value.DataOk(value.NewFloat(af + bf))
	case OpSub:
		return value.DataOk(value.NewFloat(af - bf))
	case OpMul:
		return value.DataOk(value.NewFloat(af * bf))
	case OpDiv:
		if bf == 0 {
			return value.DataErr(agenterror.New(agenterror.KindDivisionByZero))
		}
		return value.DataOk(value.NewFloat(af / bf))
	}
	return value.DataErr(agenterror.New(agenterror.KindTypeError))
}

func stringOf(v value.Value) (string, bool) {
	switch v.Type().Kind {
	case value.KindBinaryString, value.KindUnicodeString:
		return v.AsString()
	default:
		return "", false
	}
}

func evalRegexSubst(n *RegexSubst, row *Row) value.Data {
	v, err := get1(n.X, row)
	if err != nil {
		return value.DataErr(err)
	}
	s, ok := stringOf(v)
	if !ok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	re, rerr := regexp.Compile(n.Pattern)
	if rerr != nil {
		return value.DataErr(agenterror.Wrap(agenterror.KindValueError, rerr))
	}
	repl := pcreBackrefsToGo(n.Replacement)
	out := re.ReplaceAllString(s, repl)
	return value.DataOk(value.NewUnicodeString(out))
}

// pcreBackrefsToGo rewrites PCRE-style numeric backreferences (\1, \2,...)
// into Go's regexp replacement syntax ($1, $2,...).
func pcreBackrefsToGo(repl string) string {
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		if repl[i] == '\\' && i+1 < len(repl) && repl[i+1] >= '0' && repl[i+1] <= '9' {
			b.WriteByte('$')
			b.WriteByte(repl[i+1])
			i++
			continue
		}
		if repl[i] == '$' {
			b.WriteString("$$")
			continue
		}
		b.WriteByte(repl[i])
	}
	return b.String()
}

func evalCall(n *Call, row *Row) value.Data {
	args := make([]value.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := get1(a, row)
		if err != nil {
			return value.DataErr(err)
		}
		args[i] = v
	}
	switch lowerName(n.Name) {
	case "log":
		b, _ := numericF(args[0])
		x, _ := numericF(args[1])
		if b <= 0 || b == 1 {
			return value.DataErr(agenterror.New(agenterror.KindValueError))
		}
		return value.DataOk(value.NewFloat(math.Log(x) / math.Log(b)))
	case "sign":
		f, _ := numericF(args[0])
		switch {
		case f > 0:
			return value.DataOk(value.NewInteger(1))
		case f < 0:
			return value.DataOk(value.NewInteger(-1))
		default:
			return value.DataOk(value.NewInteger(0))
		}
	case "abs":
		return evalAbs(args[0])
	case "enumvalue":
		s, _ := args[0].AsString()
		return value.DataOk(value.NewUnicodeString(s))
	case "unwraperror":
		inner, ok := args[0].AsResult()
		if !ok {
			return value.DataErr(agenterror.Wrap(agenterror.KindInvalidResultValue, fmt.Errorf("result in Err arm: %s", inner.String())))
		}
		return value.DataOk(inner)
	case "agefromseconds":
		f, _ := numericF(args[0])
		return value.DataOk(value.NewAge(time.Duration(f * float64(time.Second))))
	case "unpacktime":
		return evalUnpackTime(args[0])
	case "parseint":
		s, _ := stringOf(args[0])
		i, perr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if perr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindNumParseError, perr))
		}
		return value.DataOk(value.NewInteger(i))
	case "parseipv4bin":
		s, _ := stringOf(args[0])
		if len(s) != 4 {
			return value.DataErr(agenterror.New(agenterror.KindAddrParseError))
		}
		out, verr := value.NewIpv4(net.IP([]byte(s)))
		if verr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindAddrParseError, verr))
		}
		return value.DataOk(out)
	case "parseipv6bin":
		s, _ := stringOf(args[0])
		if len(s) != 16 {
			return value.DataErr(agenterror.New(agenterror.KindAddrParseError))
		}
		out, verr := value.NewIpv6(net.IP([]byte(s)))
		if verr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindAddrParseError, verr))
		}
		return value.DataOk(out)
	case "parsemacbin":
		s, _ := stringOf(args[0])
		if len(s) != 6 {
			return value.DataErr(agenterror.New(agenterror.KindAddrParseError))
		}
		out, verr := value.NewMacAddress(net.HardwareAddr([]byte(s)))
		if verr != nil {
			return value.DataErr(agenterror.Wrap(agenterror.KindAddrParseError, verr))
		}
		return value.DataOk(out)
	case "bitsbe":
		return evalBits(args, true)
	case "bitsle":
		return evalBits(args, false)
	case "format":
		return evalFormat(args)
	case "sha1", "md5":
		// TODO: implement digest evaluation; until then this errors.
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
}

func evalAbs(v value.Value) value.Data {
	switch v.Type().Kind {
	case value.KindInteger:
		i, _ := v.AsInteger()
		if i == math.MinInt64 {
			return value.DataErr(agenterror.New(agenterror.KindIntegerOverflow))
		}
		if i < 0 {
			i = -i
		}
		return value.DataOk(value.NewInteger(i))
	case value.KindFloat:
		f, _ := v.AsFloat()
		return value.DataOk(value.NewFloat(math.Abs(f)))
	case value.KindQuantity:
		q, _ := v.AsQuantity()
		if q.Value < 0 {
			q.Value = -q.Value
		}
		return value.DataOk(value.NewQuantity(q))
	default:
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
}

// evalUnpackTime decodes a 7- or 8-byte RFC-like encoding:
// YY YY MM DD hh mm ss [cs], big-endian year, centiseconds when 8 bytes.
func evalUnpackTime(v value.Value) value.Data {
	s, ok := stringOf(v)
	if !ok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	b := []byte(s)
	if len(b) != 7 && len(b) != 8 {
		return value.DataErr(agenterror.New(agenterror.KindOutOfBounds))
	}
	year := int(b[0])<<8 | int(b[1])
	month, day, hour, minute, sec := int(b[2]), int(b[3]), int(b[4]), int(b[5]), int(b[6])
	nsec := 0
	if len(b) == 8 {
		nsec = int(b[7]) * 10 * int(time.Millisecond)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || sec > 60 {
		return value.DataErr(agenterror.New(agenterror.KindValueError))
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, nsec, time.UTC)
	return value.DataOk(value.NewTime(t))
}

// evalBits extracts an unsigned bit-field of 0<=len<=62 from a byte
// string. be reads len consecutive bits starting at the
// absolute bit offset from, MSB-first. le folds byte-wise, LSB-first
// within each byte; it is not a simple bit-direction flip of the be loop,
// the two are not mirror images of each other once from%8 != 0.
func evalBits(args []value.Value, be bool) value.Data {
	s, ok := stringOf(args[0])
	if !ok {
		return value.DataErr(agenterror.New(agenterror.KindTypeError))
	}
	from, _ := args[1].AsInteger()
	length, _ := args[2].AsInteger()
	if length < 0 || length > 62 || from < 0 {
		return value.DataErr(agenterror.New(agenterror.KindOutOfBounds))
	}
	data := []byte(s)
	start := from / 8
	end := (from + length + 7) / 8
	if start > end || end > int64(len(data)) {
		return value.DataErr(agenterror.New(agenterror.KindOutOfBounds))
	}
	vs := data[start:end]

	if be {
		totalBits := int64(len(data)) * 8
		if from+length > totalBits {
			return value.DataErr(agenterror.New(agenterror.KindOutOfBounds))
		}
		var result uint64
		for k := int64(0); k < length; k++ {
			byteIdx := (from + k) / 8
			bitIdx := uint((from + k) % 8) // MSB-first within a byte
			bit := (data[byteIdx] >> (7 - bitIdx)) & 1
			result = (result << 1) | uint64(bit)
		}
		return value.DataOk(value.NewInteger(int64(result)))
	}

	var r int64
	i := int64(0)
	for _, v := range vs {
		var term1, term2 int64
		if i < length {
			shifted := v << uint(from%8) // 8-bit-width shift, truncates
			term1 = int64(shifted) << uint(i)
			shiftAmt := i - length + 8
			if shiftAmt < 0 {
				shiftAmt = 0
			}
			term1 >>= uint(shiftAmt)
		}
		if i > 0 {
			term2 = (int64(v) >> uint(8-from%8)) << uint(i-8)
		}
		r |= term1 | term2
		i += 8
	}
	return value.DataOk(value.NewInteger(r))
}

func evalFormat(args []value.Value) value.Data {
	spec, _ := stringOf(args[0])
	f, _ := numericF(args[1])
	goSpec, derr := translatePrintfSpec(spec)
	if derr != nil {
		return value.DataErr(agenterror.Wrap(agenterror.KindValueError, derr))
	}
	var out string
	if strings.HasSuffix(goSpec, "d") {
		out = fmt.Sprintf(goSpec, int64(f))
	} else {
		out = fmt.Sprintf(goSpec, f)
	}
	return value.DataOk(value.NewUnicodeString(out))
}

// translatePrintfSpec accepts `%.<n>d` / `%.<n>f`-shaped format specs
func translatePrintfSpec(spec string) (string, error) {
	if !strings.HasPrefix(spec, "%") || len(spec) < 2 {
		return "", fmt.Errorf("expr: invalid format spec %q", spec)
	}
	last := spec[len(spec)-1]
	if last != 'd' && last != 'f' {
		return "", fmt.Errorf("expr: unsupported format spec %q", spec)
	}
	return spec, nil
}
