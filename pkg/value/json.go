// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/smartagent/agent/pkg/unit"
)

// MarshalValue serializes v to JSON. displayUnit, if non-nil
// and v is a Quantity, determines the unit the number is rendered in;
// otherwise quantities serialize in their dimension's reference unit.
func MarshalValue(v Value, displayUnit *unit.Unit) ([]byte, error) {
	switch v.typ.Kind {
	case KindBinaryString:
		return json.Marshal([]byte(v.str))
	case KindUnicodeString, KindEnum:
		return json.Marshal(v.str)
	case KindInteger, KindIntEnum:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBoolean:
		return json.Marshal(v.b)
	case KindTime:
		return json.Marshal(v.t.UTC().Format(timeLayout))
	case KindAge:
		return json.Marshal(v.age.Seconds())
	case KindQuantity:
		q := v.qty
		if displayUnit != nil {
			converted, err := q.Convert(*displayUnit)
			if err != nil {
				return nil, err
			}
			q = converted
		} else {
			q = q.Normalize()
		}
		return json.Marshal(q.Value)
	case KindMacAddress:
		return json.Marshal(v.mac.String())
	case KindIPv4, KindIPv6:
		return json.Marshal(v.ip.String())
	case KindOption:
		inner, ok := v.AsOption()
		if !ok {
			return json.Marshal(nil)
		}
		return MarshalValue(inner, displayUnit)
	case KindResult:
		inner, isOk := v.AsResult()
		body, err := MarshalValue(inner, displayUnit)
		if err != nil {
			return nil, err
		}
		key := "ok"
		if !isOk {
			key = "err"
		}
		return json.Marshal(map[string]json.RawMessage{key: body})
	case KindTuple:
		parts := make([]json.RawMessage, len(v.tuple))
		for i, m := range v.tuple {
			body, err := MarshalValue(m, nil)
			if err != nil {
				return nil, err
			}
			parts[i] = body
		}
		return json.Marshal(parts)
	case KindList, KindSet:
		elems := v.list
		if v.typ.Kind == KindSet {
			elems = v.setVals
		}
		parts := make([]json.RawMessage, len(elems))
		for i, m := range elems {
			body, err := MarshalValue(m, nil)
			if err != nil {
				return nil, err
			}
			parts[i] = body
		}
		return json.Marshal(parts)
	case KindMap:
		out := make(map[string]json.RawMessage, len(v.mapVals))
		for _, e := range v.mapVals {
			key, err := mapJSONKey(e.key)
			if err != nil {
				return nil, err
			}
			body, err := MarshalValue(e.val, nil)
			if err != nil {
				return nil, err
			}
			out[key] = body
		}
		return json.Marshal(out)
	case KindJSON:
		return json.Marshal(v.jsonVal)
	default:
		return nil, fmt.Errorf("value: cannot marshal type %s", v.typ)
	}
}

// mapJSONKey renders a hashable value as a JSON object key: the raw string
// for UnicodeString, the canonical key otherwise.
func mapJSONKey(k Value) (string, error) {
	if k.typ.Kind == KindUnicodeString {
		return k.str, nil
	}
	return k.CanonicalKey()
}

// UnmarshalValue decodes JSON data into a Value of type t. displayUnit, if
// non-nil, is the unit a Quantity's number is assumed to be expressed in;
// otherwise the dimension's reference unit is assumed.
func UnmarshalValue(data []byte, t Type, displayUnit *unit.Unit) (Value, error) {
	switch t.Kind {
	case KindBinaryString:
		var b []byte
		if err := json.Unmarshal(data, &b); err == nil {
			return NewBinaryString(string(b)), nil
		}
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		return NewBinaryString(s), nil
	case KindUnicodeString:
		// back-compat: accept either a JSON string or an array of bytes.
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return NewUnicodeString(s), nil
		}
		var b []byte
		if err := json.Unmarshal(data, &b); err != nil {
			return Value{}, err
		}
		return NewUnicodeString(string(b)), nil
	case KindEnum:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		return NewEnum(t.Choices, s)
	case KindInteger:
		var i int64
		if err := json.Unmarshal(data, &i); err != nil {
			return Value{}, err
		}
		return NewInteger(i), nil
	case KindIntEnum:
		var i int64
		if err := json.Unmarshal(data, &i); err != nil {
			return Value{}, err
		}
		return NewIntEnum(t.IntChoices, i)
	case KindFloat:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return Value{}, err
		}
		return NewFloat(f), nil
	case KindBoolean:
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return Value{}, err
		}
		return NewBoolean(b), nil
	case KindTime:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return Value{}, err
		}
		return NewTime(parsed), nil
	case KindAge:
		var secs float64
		if err := json.Unmarshal(data, &secs); err != nil {
			return Value{}, err
		}
		return NewAge(time.Duration(secs * float64(time.Second))), nil
	case KindQuantity:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return Value{}, err
		}
		u := displayUnit
		var ref unit.Unit
		if u == nil {
			ref, _ = unit.NewUnit(t.Dim, t.Dim.ReferenceAtom())
			u = &ref
		}
		return NewQuantity(unit.NewQuantity(f, *u)), nil
	case KindMacAddress:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		mac, err := net.ParseMAC(s)
		if err != nil {
			return Value{}, err
		}
		return NewMacAddress(mac)
	case KindIPv4:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		return NewIpv4(net.ParseIP(s))
	case KindIPv6:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Value{}, err
		}
		return NewIpv6(net.ParseIP(s))
	case KindOption:
		if string(data) == "null" {
			return NewNone(*t.Elem), nil
		}
		inner, err := UnmarshalValue(data, *t.Elem, displayUnit)
		if err != nil {
			return Value{}, err
		}
		return NewSome(*t.Elem, inner)
	case KindResult:
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return Value{}, err
		}
		if raw, ok := wrapper["ok"]; ok {
			inner, err := UnmarshalValue(raw, *t.Elem, nil)
			if err != nil {
				return Value{}, err
			}
			return NewOk(*t.Elem, *t.Elem2, inner)
		}
		if raw, ok := wrapper["err"]; ok {
			inner, err := UnmarshalValue(raw, *t.Elem2, nil)
			if err != nil {
				return Value{}, err
			}
			return NewErr(*t.Elem, *t.Elem2, inner)
		}
		return Value{}, fmt.Errorf("value: malformed Result JSON")
	case KindTuple:
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return Value{}, err
		}
		values := make([]Value, len(parts))
		for i, raw := range parts {
			v, err := UnmarshalValue(raw, t.Tuple[i], nil)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		return NewTuple(t.Tuple, values)
	case KindList, KindSet:
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return Value{}, err
		}
		values := make([]Value, len(parts))
		for i, raw := range parts {
			v, err := UnmarshalValue(raw, *t.Elem, nil)
			if err != nil {
				return Value{}, err
			}
			values[i] = v
		}
		if t.Kind == KindSet {
			return NewSet(*t.Elem, values)
		}
		return NewList(*t.Elem, values)
	case KindMap:
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return Value{}, err
		}
		keys := make([]Value, 0, len(obj))
		vals := make([]Value, 0, len(obj))
		for k, raw := range obj {
			var kv Value
			var err error
			if t.Key.Kind == KindUnicodeString {
				kv = NewUnicodeString(k)
			} else {
				kv, err = keyFromCanonical(k, *t.Key)
				if err != nil {
					return Value{}, err
				}
			}
			vv, err := UnmarshalValue(raw, *t.Elem2, nil)
			if err != nil {
				return Value{}, err
			}
			keys = append(keys, kv)
			vals = append(vals, vv)
		}
		return NewMap(*t.Key, *t.Elem2, keys, vals)
	case KindJSON:
		var raw interface{}
		if err := json.Unmarshal(data, &raw); err != nil {
			return Value{}, err
		}
		return NewJSON(raw), nil
	default:
		return Value{}, fmt.Errorf("value: cannot unmarshal type %s", t)
	}
}

// keyFromCanonical parses a non-UnicodeString canonical map key (as produced
// by Value.CanonicalKey, see hashable.go) back into a Value of the given
// type. Supported for the scalar hashable key types used by this agent's
// spec packages (Integer, IntEnum, Enum, Boolean, MacAddress, Ipv4/6);
// composite hashable keys (Tuple/List/Option/Result of these) are not
// re-decoded from canonical form; map specs in practice key on scalars.
func keyFromCanonical(k string, t Type) (Value, error) {
	switch t.Kind {
	case KindInteger:
		var i int64
		if _, err := fmt.Sscanf(k, "int:%d", &i); err != nil {
			return Value{}, fmt.Errorf("value: malformed Integer key %q: %w", k, err)
		}
		return NewInteger(i), nil
	case KindIntEnum:
		var i int64
		if _, err := fmt.Sscanf(k, "int:%d", &i); err != nil {
			return Value{}, fmt.Errorf("value: malformed IntEnum key %q: %w", k, err)
		}
		return NewIntEnum(t.IntChoices, i)
	case KindEnum:
		label := strings.TrimPrefix(k, "enum:")
		return NewEnum(t.Choices, label)
	case KindBoolean:
		switch k {
		case "bool:true":
			return NewBoolean(true), nil
		case "bool:false":
			return NewBoolean(false), nil
		default:
			return Value{}, fmt.Errorf("value: malformed Boolean key %q", k)
		}
	case KindMacAddress:
		mac, err := net.ParseMAC(strings.TrimPrefix(k, "mac:"))
		if err != nil {
			return Value{}, err
		}
		return NewMacAddress(mac)
	case KindIPv4:
		return NewIpv4(net.ParseIP(strings.TrimPrefix(k, "ip:")))
	case KindIPv6:
		return NewIpv6(net.ParseIP(strings.TrimPrefix(k, "ip:")))
	case KindTime:
		parsed, err := time.Parse(timeLayout, strings.TrimPrefix(k, "time:"))
		if err != nil {
			return Value{}, err
		}
		return NewTime(parsed), nil
	default:
		return Value{}, fmt.Errorf("value: map key type %s is not decodable from canonical form", t)
	}
}
