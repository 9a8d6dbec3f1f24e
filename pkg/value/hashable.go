// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package value

// CanonicalKey (below) gives the HashableType sub-lattice a concrete Go
// representation: a canonical string usable as a Go map key. No parallel
// hashable-value type is needed since Go map/set keys are plain comparable
// values (strings), so canonicalization is enough.

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
)

// CanonicalKey returns the canonical string key for v, usable as a map/set
// key. It errors if v's type is not Hashable.
func (v Value) CanonicalKey() (string, error) {
	if !v.typ.IsHashable() {
		return "", fmt.Errorf("value: type %s is not hashable", v.typ)
	}
	switch v.typ.Kind {
	case KindUnicodeString:
		return v.str, nil
	case KindBinaryString:
		return "bin:" + base64.StdEncoding.EncodeToString([]byte(v.str)), nil
	case KindInteger, KindIntEnum:
		return fmt.Sprintf("int:%d", v.i), nil
	case KindEnum:
		return "enum:" + v.str, nil
	case KindBoolean:
		return fmt.Sprintf("bool:%t", v.b), nil
	case KindTime:
		return "time:" + v.t.Format(timeLayout), nil
	case KindAge:
		return fmt.Sprintf("age:%d", v.age), nil
	case KindMacAddress:
		return "mac:" + v.mac.String(), nil
	case KindIPv4, KindIPv6:
		return "ip:" + v.ip.String(), nil
	case KindOption:
		inner, ok := v.AsOption()
		if !ok {
			return "opt:none", nil
		}
		k, err := inner.CanonicalKey()
		if err != nil {
			return "", err
		}
		return "opt:some:" + k, nil
	case KindResult:
		inner, isOk := v.AsResult()
		k, err := inner.CanonicalKey()
		if err != nil {
			return "", err
		}
		if isOk {
			return "ok:" + k, nil
		}
		return "err:" + k, nil
	case KindTuple:
		parts := make([]string, len(v.tuple))
		for i, m := range v.tuple {
			k, err := m.CanonicalKey()
			if err != nil {
				return "", err
			}
			parts[i] = k
		}
		return "tuple:(" + strings.Join(parts, ",") + ")", nil
	case KindList:
		parts := make([]string, len(v.list))
		for i, m := range v.list {
			k, err := m.CanonicalKey()
			if err != nil {
				return "", err
			}
			parts[i] = k
		}
		return "list:[" + strings.Join(parts, ",") + "]", nil
	case KindSet:
		parts := make([]string, len(v.setVals))
		for i, m := range v.setVals {
			k, err := m.CanonicalKey()
			if err != nil {
				return "", err
			}
			parts[i] = k
		}
		sort.Strings(parts)
		return "set:{" + strings.Join(parts, ",") + "}", nil
	case KindMap:
		parts := make([]string, 0, len(v.mapVals))
		for _, e := range v.mapVals {
			kk, err := e.key.CanonicalKey()
			if err != nil {
				return "", err
			}
			vk, err := e.val.CanonicalKey()
			if err != nil {
				return "", err
			}
			parts = append(parts, kk+"="+vk)
		}
		sort.Strings(parts)
		return "map:{" + strings.Join(parts, ",") + "}", nil
	default:
		return "", fmt.Errorf("value: type %s is not hashable", v.typ)
	}
}

const timeLayout = "2006-01-02T15:04:05.000Z07:00"
