// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

package snmp

import (
	"fmt"
	"net"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/plugin"
	"github.com/smartagent/agent/pkg/unit"
	"github.com/smartagent/agent/pkg/value"
)

// ParamType selects how a leaf's raw scalar feeds the Counter Store before
// becoming a Value.
type ParamType int

const (
	ParamValue ParamType = iota
	ParamCounter
	ParamDifference
)

// FieldDef binds one field exposed by a TableDef to an SNMP leaf or index
// position.
type FieldDef struct {
	ID          plugin.DataFieldId
	Oid         Oid  // column root (walk table) or leaf OID (get table); empty falls back to TableDef.Root
	Type        value.Type
	IsIndex     bool // read from the walk's index subscript instead of a leaf
	IndexPos    int  // which dot-separated index component, when IsIndex
	PrefixStrip int  // leading bytes to drop from OCTET STRING/MAC/IP leaves
	Param       ParamType
	Dim         unit.Dimension // for Param != ParamValue, the resulting Quantity's dimension
	DisplayUnit unit.Unit
}

// fieldOid resolves the OID a field is collected from: its own column/leaf
// OID when set, the table root otherwise.
func (t TableDef) fieldOid(fd FieldDef) Oid {
	if fd.Oid != "" {
		return fd.Oid
	}
	return t.Root
}

// TableDef describes one SNMP data-table: its root OID (walk) or scalar OID
// (get), optional fold stride, and its field catalog.
type TableDef struct {
	ID       plugin.DataTableId
	Walk     bool
	Root     Oid // walk root, or the scalar OID for a singleton get table
	Fold     int
	Fields   map[plugin.DataFieldId]FieldDef
	Contexts ContextSelector
}

// decodeScalar converts one SNMP leaf Variable into a value.Value per
// FieldDef.Type, honoring PrefixStrip.
func decodeScalar(fd FieldDef, v Variable) (value.Value, *agenterror.DataError) {
	if v.NoSuchObject || v.EndOfView {
		return value.Value{}, agenterror.New(agenterror.KindMissing)
	}
	switch fd.Type.Kind {
	case value.KindBinaryString:
		b, err := asBytes(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
		}
		if fd.PrefixStrip > 0 && len(b) >= fd.PrefixStrip {
			b = b[fd.PrefixStrip:]
		}
		return value.NewBinaryString(string(b)), nil
	case value.KindUnicodeString:
		b, err := asBytes(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
		}
		if fd.PrefixStrip > 0 && len(b) >= fd.PrefixStrip {
			b = b[fd.PrefixStrip:]
		}
		return value.NewUnicodeString(string(b)), nil
	case value.KindInteger:
		n, err := asInt64(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
		}
		return value.NewInteger(n), nil
	case value.KindIPv4:
		ip, err := asIP(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindAddrParseError, err)
		}
		nv, verr := value.NewIpv4(ip)
		if verr != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindAddrParseError, verr)
		}
		return nv, nil
	case value.KindMacAddress:
		b, err := asBytes(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
		}
		if len(b) != 6 {
			return value.Value{}, agenterror.New(agenterror.KindAddrParseError)
		}
		nv, verr := value.NewMacAddress(net.HardwareAddr(b))
		if verr != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindAddrParseError, verr)
		}
		return nv, nil
	case value.KindAge:
		// TimeTicks are centiseconds.
		n, err := asInt64(v)
		if err != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
		}
		return value.NewAge(time.Duration(n) * 10 * time.Millisecond), nil
	default:
		return value.Value{}, agenterror.Wrap(agenterror.KindTypeError, fmt.Errorf("snmp: unsupported field type %s", fd.Type))
	}
}

// decodeCounting applies the counter/difference law through store before
// producing a Quantity Value, for fields whose Param != ParamValue. A
// Counter field is a per-second rate: the raw delta divided by the elapsed
// time between samples. A Difference field is the raw delta; the caller
// normalizes. Both are computed in fd.Dim's reference unit and converted
// to the field's display unit when one is configured.
func decodeCounting(fd FieldDef, v Variable, store *counterstore.Store, key string, at time.Time) (value.Value, *agenterror.DataError) {
	raw, err := asUint64(v)
	if err != nil {
		return value.Value{}, agenterror.Wrap(agenterror.KindValueError, err)
	}
	delta, elapsed, cerr := store.Difference(key, raw, at)
	if cerr != nil {
		return value.Value{}, toDataError(cerr)
	}
	out := float64(delta)
	switch fd.Param {
	case ParamCounter:
		secs := elapsed.Seconds()
		if secs <= 0 {
			return value.Value{}, agenterror.New(agenterror.KindDivisionByZero)
		}
		out /= secs
	case ParamDifference:
	default:
		return value.Value{}, agenterror.New(agenterror.KindTypeError)
	}
	ref, uerr := unit.NewUnit(fd.Dim, fd.Dim.ReferenceAtom())
	if uerr != nil {
		return value.Value{}, agenterror.Wrap(agenterror.KindValueError, uerr)
	}
	q := unit.NewQuantity(out, ref)
	if fd.DisplayUnit != (unit.Unit{}) {
		conv, cerr2 := q.Convert(fd.DisplayUnit)
		if cerr2 != nil {
			return value.Value{}, agenterror.Wrap(agenterror.KindConversionError, cerr2)
		}
		q = conv
	}
	return value.NewQuantity(q), nil
}

func toDataError(err error) *agenterror.DataError {
	var de *agenterror.DataError
	if e, ok := err.(*agenterror.DataError); ok {
		de = e
		return de
	}
	return agenterror.Wrap(agenterror.KindValueError, err)
}

func asBytes(v Variable) ([]byte, error) {
	switch b := v.Value.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return nil, fmt.Errorf("snmp: cannot decode %T as bytes", v.Value)
	}
}

func asInt64(v Variable) (int64, error) {
	switch n := v.Value.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("snmp: cannot decode %T as integer", v.Value)
	}
}

func asUint64(v Variable) (uint64, error) {
	switch n := v.Value.(type) {
	case uint:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("snmp: negative counter value %d", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("snmp: negative counter value %d", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("snmp: cannot decode %T as counter", v.Value)
	}
}

func asIP(v Variable) (net.IP, error) {
	switch ip := v.Value.(type) {
	case net.IP:
		return ip, nil
	case string:
		parsed := net.ParseIP(ip)
		if parsed == nil {
			return nil, fmt.Errorf("snmp: cannot parse IP %q", ip)
		}
		return parsed, nil
	case []byte:
		if len(ip) != 4 {
			return nil, fmt.Errorf("snmp: IP address must be 4 bytes, got %d", len(ip))
		}
		return net.IP(ip), nil
	default:
		return nil, fmt.Errorf("snmp: cannot decode %T as IP address", v.Value)
	}
}
