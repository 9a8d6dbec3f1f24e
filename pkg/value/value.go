// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/smartagent/agent/pkg/unit"
)

// Value is the single inhabitant type for every member of the Type
// lattice. Exactly the fields matching typ.Kind are meaningful; the rest
// are zero. Construction validates the payload against typ so a Value is
// never observed in an invalid state.
type Value struct {
	typ Type

	str      string
	i        int64
	f        float64
	b        bool
	t        time.Time
	age      time.Duration
	qty      unit.Quantity
	ip       net.IP
	mac      net.HardwareAddr
	enumIC   *IntChoices
	option   *Value // nil payload means None
	resultOK bool
	result   *Value
	tuple    []Value
	list     []Value
	setVals  []Value
	mapVals  []mapEntry
	jsonVal  interface{}
}

type mapEntry struct {
	key Value
	val Value
}

// Type returns the Value's tagged type.
func (v Value) Type() Type { return v.typ }

// -- constructors --------------------------------------------------------

func NewBinaryString(s string) Value  { return Value{typ: BinaryString(), str: s} }
func NewUnicodeString(s string) Value { return Value{typ: UnicodeString(), str: s} }
func NewInteger(i int64) Value        { return Value{typ: Integer(), i: i} }
func NewFloat(f float64) Value        { return Value{typ: Float(), f: f} }
func NewBoolean(b bool) Value         { return Value{typ: Boolean(), b: b} }
func NewTime(t time.Time) Value       { return Value{typ: Time(), t: t} }
func NewAge(d time.Duration) Value    { return Value{typ: Age(), age: d} }
func NewJSON(v interface{}) Value     { return Value{typ: JSON(), jsonVal: v} }

// NewQuantity builds a Quantity value, validating the quantity's own unit
// dimension is reflected in the Value's type.
func NewQuantity(q unit.Quantity) Value {
	return Value{typ: QuantityType(q.Unit.Dimension()), qty: q}
}

// NewMacAddress validates and stores a 6-byte MAC address.
func NewMacAddress(mac net.HardwareAddr) (Value, error) {
	if len(mac) != 6 {
		return Value{}, fmt.Errorf("value: MAC address must be 6 bytes, got %d", len(mac))
	}
	return Value{typ: MacAddress(), mac: mac}, nil
}

// NewIpv4 validates and stores a 4-byte IPv4 address.
func NewIpv4(ip net.IP) (Value, error) {
	v4 := ip.To4()
	if v4 == nil {
		return Value{}, fmt.Errorf("value: not a valid IPv4 address: %v", ip)
	}
	return Value{typ: Ipv4(), ip: v4}, nil
}

// NewIpv6 validates and stores a 16-byte IPv6 address.
func NewIpv6(ip net.IP) (Value, error) {
	v6 := ip.To16()
	if v6 == nil || ip.To4() != nil {
		return Value{}, fmt.Errorf("value: not a valid IPv6 address: %v", ip)
	}
	return Value{typ: Ipv6(), ip: v6}, nil
}

// NewEnum validates label against choices, rejecting unknown labels.
func NewEnum(choices *Choices, label string) (Value, error) {
	if !choices.Contains(label) {
		return Value{}, fmt.Errorf("value: %q is not a member of the enum choice set", label)
	}
	return Value{typ: EnumType(choices), str: label}, nil
}

// NewIntEnum validates v against choices.
func NewIntEnum(choices *IntChoices, v int64) (Value, error) {
	if _, ok := choices.Label(v); !ok {
		return Value{}, fmt.Errorf("value: %d is not a member of the int-enum choice set", v)
	}
	return Value{typ: IntEnumType(choices), i: v, enumIC: choices}, nil
}

// NewNone builds the empty Option(elem) value.
func NewNone(elem Type) Value { return Value{typ: OptionType(elem)} }

// NewSome builds a populated Option(elem) value, validating inner's type
// matches elem.
func NewSome(elem Type, inner Value) (Value, error) {
	if !inner.typ.Equal(elem) {
		return Value{}, fmt.Errorf("value: Option element type mismatch: expected %s, got %s", elem, inner.typ)
	}
	return Value{typ: OptionType(elem), option: &inner}, nil
}

// NewOk builds a Result(ok, errT) value in the Ok arm.
func NewOk(ok, errT Type, inner Value) (Value, error) {
	if !inner.typ.Equal(ok) {
		return Value{}, fmt.Errorf("value: Result Ok type mismatch: expected %s, got %s", ok, inner.typ)
	}
	return Value{typ: ResultType(ok, errT), resultOK: true, result: &inner}, nil
}

// NewErr builds a Result(ok, errT) value in the Err arm.
func NewErr(ok, errT Type, inner Value) (Value, error) {
	if !inner.typ.Equal(errT) {
		return Value{}, fmt.Errorf("value: Result Err type mismatch: expected %s, got %s", errT, inner.typ)
	}
	return Value{typ: ResultType(ok, errT), resultOK: false, result: &inner}, nil
}

// NewTuple validates each member's type against members.
func NewTuple(members []Type, values []Value) (Value, error) {
	if len(members) != len(values) {
		return Value{}, fmt.Errorf("value: tuple arity mismatch: expected %d, got %d", len(members), len(values))
	}
	for i, v := range values {
		if !v.typ.Equal(members[i]) {
			return Value{}, fmt.Errorf("value: tuple member %d type mismatch: expected %s, got %s", i, members[i], v.typ)
		}
	}
	return Value{typ: TupleType(members...), tuple: append([]Value(nil), values...)}, nil
}

// NewList validates every element's type against elem.
func NewList(elem Type, values []Value) (Value, error) {
	for i, v := range values {
		if !v.typ.Equal(elem) {
			return Value{}, fmt.Errorf("value: list element %d type mismatch: expected %s, got %s", i, elem, v.typ)
		}
	}
	return Value{typ: ListType(elem), list: append([]Value(nil), values...)}, nil
}

// NewSet validates every element's type against elem and that elem is
// hashable, then deduplicates by canonical key.
func NewSet(elem Type, values []Value) (Value, error) {
	if !elem.IsHashable() {
		return Value{}, fmt.Errorf("value: Set element type %s is not hashable", elem)
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]Value, 0, len(values))
	for _, v := range values {
		if !v.typ.Equal(elem) {
			return Value{}, fmt.Errorf("value: set element type mismatch: expected %s, got %s", elem, v.typ)
		}
		key, err := v.CanonicalKey()
		if err != nil {
			return Value{}, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return Value{typ: SetType(elem), setVals: out}, nil
}

// NewMap validates key/value types and that the key type is hashable.
func NewMap(keyT, valT Type, keys, vals []Value) (Value, error) {
	if !keyT.IsHashable() {
		return Value{}, fmt.Errorf("value: Map key type %s is not hashable", keyT)
	}
	if len(keys) != len(vals) {
		return Value{}, fmt.Errorf("value: map key/value length mismatch")
	}
	entries := make([]mapEntry, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i := range keys {
		if !keys[i].typ.Equal(keyT) || !vals[i].typ.Equal(valT) {
			return Value{}, fmt.Errorf("value: map entry %d type mismatch", i)
		}
		key, err := keys[i].CanonicalKey()
		if err != nil {
			return Value{}, err
		}
		if _, dup := seen[key]; dup {
			return Value{}, fmt.Errorf("value: duplicate map key %q", key)
		}
		seen[key] = struct{}{}
		entries = append(entries, mapEntry{key: keys[i], val: vals[i]})
	}
	return Value{typ: MapType(keyT, valT), mapVals: entries}, nil
}

// -- accessors ------------------------------------------------------------

func (v Value) AsString() (string, bool) {
	switch v.typ.Kind {
	case KindBinaryString, KindUnicodeString, KindEnum:
		return v.str, true
	default:
		return "", false
	}
}

func (v Value) AsInteger() (int64, bool) {
	switch v.typ.Kind {
	case KindInteger, KindIntEnum:
		return v.i, true
	default:
		return 0, false
	}
}

func (v Value) AsFloat() (float64, bool) {
	if v.typ.Kind == KindFloat {
		return v.f, true
	}
	return 0, false
}

func (v Value) AsBoolean() (bool, bool) {
	if v.typ.Kind == KindBoolean {
		return v.b, true
	}
	return false, false
}

func (v Value) AsTime() (time.Time, bool) {
	if v.typ.Kind == KindTime {
		return v.t, true
	}
	return time.Time{}, false
}

func (v Value) AsAge() (time.Duration, bool) {
	if v.typ.Kind == KindAge {
		return v.age, true
	}
	return 0, false
}

func (v Value) AsQuantity() (unit.Quantity, bool) {
	if v.typ.Kind == KindQuantity {
		return v.qty, true
	}
	return unit.Quantity{}, false
}

func (v Value) AsMacAddress() (net.HardwareAddr, bool) {
	if v.typ.Kind == KindMacAddress {
		return v.mac, true
	}
	return nil, false
}

func (v Value) AsIP() (net.IP, bool) {
	if v.typ.Kind == KindIPv4 || v.typ.Kind == KindIPv6 {
		return v.ip, true
	}
	return nil, false
}

// AsOption returns the inner value and whether it was Some.
func (v Value) AsOption() (Value, bool) {
	if v.typ.Kind != KindOption || v.option == nil {
		return Value{}, false
	}
	return *v.option, true
}

// AsResult returns the inner value and whether the Result is in the Ok arm.
func (v Value) AsResult() (Value, bool) {
	return *v.result, v.resultOK
}

func (v Value) AsTuple() []Value { return v.tuple }
func (v Value) AsList() []Value  { return v.list }
func (v Value) AsSet() []Value   { return v.setVals }

// MapEntries returns the map's (key, value) pairs in insertion order.
func (v Value) MapEntries() []struct{ Key, Val Value } {
	out := make([]struct{ Key, Val Value }, len(v.mapVals))
	for i, e := range v.mapVals {
		out[i] = struct{ Key, Val Value }{Key: e.key, Val: e.val}
	}
	return out
}

func (v Value) AsJSON() (interface{}, bool) {
	if v.typ.Kind == KindJSON {
		return v.jsonVal, true
	}
	return nil, false
}

// Equal is semantic equality: values compare equal only if their tagged
// types agree, recursively for containers.
func (v Value) Equal(other Value) bool {
	if !v.typ.Equal(other.typ) {
		return false
	}
	switch v.typ.Kind {
	case KindBinaryString, KindUnicodeString, KindEnum:
		return v.str == other.str
	case KindInteger, KindIntEnum:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindBoolean:
		return v.b == other.b
	case KindTime:
		return v.t.Equal(other.t)
	case KindAge:
		return v.age == other.age
	case KindQuantity:
		return v.qty.Value == other.qty.Value && v.qty.Unit == other.qty.Unit
	case KindMacAddress:
		return v.mac.String() == other.mac.String()
	case KindIPv4, KindIPv6:
		return v.ip.Equal(other.ip)
	case KindOption:
		sv, sOk := v.AsOption()
		ov, oOk := other.AsOption()
		if sOk != oOk {
			return false
		}
		return !sOk || sv.Equal(ov)
	case KindResult:
		sv, sOk := v.AsResult()
		ov, oOk := other.AsResult()
		return sOk == oOk && sv.Equal(ov)
	case KindTuple:
		if len(v.tuple) != len(other.tuple) {
			return false
		}
		for i := range v.tuple {
			if !v.tuple[i].Equal(other.tuple[i]) {
				return false
			}
		}
		return true
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindSet:
		ak, aerr := v.CanonicalKey()
		bk, berr := other.CanonicalKey()
		return aerr == nil && berr == nil && ak == bk
	case KindMap:
		// Map values need not be hashable, so compare entry-wise by
		// canonical key rather than canonicalizing the whole map.
		if len(v.mapVals) != len(other.mapVals) {
			return false
		}
		theirs := make(map[string]Value, len(other.mapVals))
		for _, e := range other.mapVals {
			k, err := e.key.CanonicalKey()
			if err != nil {
				return false
			}
			theirs[k] = e.val
		}
		for _, e := range v.mapVals {
			k, err := e.key.CanonicalKey()
			if err != nil {
				return false
			}
			ov, ok := theirs[k]
			if !ok || !e.val.Equal(ov) {
				return false
			}
		}
		return true
	case KindJSON:
		return fmt.Sprintf("%v", v.jsonVal) == fmt.Sprintf("%v", other.jsonVal)
	default:
		return false
	}
}

// LiteralEq is used for pattern-matching on expression literals. Distinct
// from Equal because it treats equal-bit NaNs as equal.
func (v Value) LiteralEq(other Value) bool {
	if v.typ.Kind == KindFloat && other.typ.Kind == KindFloat {
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
	}
	return v.Equal(other)
}

func (v Value) String() string {
	switch v.typ.Kind {
	case KindBinaryString, KindUnicodeString, KindEnum:
		return v.str
	case KindInteger, KindIntEnum:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindAge:
		return v.age.String()
	case KindQuantity:
		return v.qty.String()
	case KindMacAddress:
		return v.mac.String()
	case KindIPv4, KindIPv6:
		return v.ip.String()
	default:
		return fmt.Sprintf("<%s>", v.typ)
	}
}
