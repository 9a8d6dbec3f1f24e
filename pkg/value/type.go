// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package value implements the typed value model: the closed Type
// lattice, its Value inhabitants, type-checked casts, and the
// Data/Annotated result wrappers plugins and the ETC calculator exchange.
package value

import (
	"fmt"
	"sort"
	"strings"

	"github.com/smartagent/agent/pkg/unit"
)

// Kind enumerates the closed set of value types.
type Kind int

const (
	KindBinaryString Kind = iota
	KindUnicodeString
	KindInteger
	KindFloat
	KindQuantity
	KindEnum
	KindIntEnum
	KindBoolean
	KindTime
	KindAge
	KindMacAddress
	KindIPv4
	KindIPv6
	KindOption
	KindResult
	KindTuple
	KindList
	KindSet
	KindMap
	KindJSON
)

var kindNames = map[Kind]string{
	KindBinaryString:  "BinaryString",
	KindUnicodeString: "UnicodeString",
	KindInteger:       "Integer",
	KindFloat:         "Float",
	KindQuantity:      "Quantity",
	KindEnum:          "Enum",
	KindIntEnum:       "IntEnum",
	KindBoolean:       "Boolean",
	KindTime:          "Time",
	KindAge:           "Age",
	KindMacAddress:    "MacAddress",
	KindIPv4:          "Ipv4",
	KindIPv6:          "Ipv6",
	KindOption:        "Option",
	KindResult:        "Result",
	KindTuple:         "Tuple",
	KindList:          "List",
	KindSet:           "Set",
	KindMap:           "Map",
	KindJSON:          "Json",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Choices is a shared, immutable, sorted label set backing an Enum type.
// Every Value built from a Type shares the same *Choices pointer.
type Choices struct {
	labels []string
}

// NewChoices builds a Choices set from an unordered label list, sorting and
// deduplicating it.
func NewChoices(labels ...string) *Choices {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return &Choices{labels: out}
}

// Contains reports whether label is a member of the choice set.
func (c *Choices) Contains(label string) bool {
	i := sort.SearchStrings(c.labels, label)
	return i < len(c.labels) && c.labels[i] == label
}

// Labels returns the sorted label list.
func (c *Choices) Labels() []string { return append([]string(nil), c.labels...) }

// IntChoices is a shared, immutable, insertion-ordered i64->label mapping
// backing an IntEnum type.
type IntChoices struct {
	order  []int64
	labels map[int64]string
}

// NewIntChoices builds an IntChoices from an ordered list of (value, label)
// pairs.
func NewIntChoices(pairs ...[2]interface{}) *IntChoices {
	ic := &IntChoices{labels: make(map[int64]string, len(pairs))}
	for _, p := range pairs {
		v := p[0].(int64)
		l := p[1].(string)
		ic.order = append(ic.order, v)
		ic.labels[v] = l
	}
	return ic
}

// Label looks up the label for an integer value.
func (ic *IntChoices) Label(v int64) (string, bool) {
	l, ok := ic.labels[v]
	return l, ok
}

// Value looks up the integer value for a label (first match in order).
func (ic *IntChoices) Value(label string) (int64, bool) {
	for _, v := range ic.order {
		if ic.labels[v] == label {
			return v, true
		}
	}
	return 0, false
}

// Type is the closed sum type over Kind. Only the fields relevant to
// Kind are meaningful; the zero Type is BinaryString.
type Type struct {
	Kind       Kind
	Dim        unit.Dimension // Quantity
	Choices    *Choices       // Enum
	IntChoices *IntChoices    // IntEnum
	Elem       *Type          // Option/List/Set element, or Result Ok arm
	Elem2      *Type          // Result Err arm, or Map value type
	Key        *Type          // Map key type (must be Hashable)
	Tuple      []Type         // Tuple members
}

func prim(k Kind) Type { return Type{Kind: k} }

// Primitive type constructors.
func BinaryString() Type  { return prim(KindBinaryString) }
func UnicodeString() Type { return prim(KindUnicodeString) }
func Integer() Type       { return prim(KindInteger) }
func Float() Type         { return prim(KindFloat) }
func Boolean() Type       { return prim(KindBoolean) }
func Time() Type          { return prim(KindTime) }
func Age() Type           { return prim(KindAge) }
func MacAddress() Type    { return prim(KindMacAddress) }
func Ipv4() Type          { return prim(KindIPv4) }
func Ipv6() Type          { return prim(KindIPv6) }
func JSON() Type          { return prim(KindJSON) }

// QuantityType builds a Quantity(dim) type.
func QuantityType(dim unit.Dimension) Type { return Type{Kind: KindQuantity, Dim: dim} }

// EnumType builds an Enum(choices) type.
func EnumType(c *Choices) Type { return Type{Kind: KindEnum, Choices: c} }

// IntEnumType builds an IntEnum(choices) type.
func IntEnumType(c *IntChoices) Type { return Type{Kind: KindIntEnum, IntChoices: c} }

// OptionType builds an Option(elem) type.
func OptionType(elem Type) Type { return Type{Kind: KindOption, Elem: &elem} }

// ResultType builds a Result(ok, err) type.
func ResultType(ok, errT Type) Type { return Type{Kind: KindResult, Elem: &ok, Elem2: &errT} }

// TupleType builds a Tuple([...]) type.
func TupleType(members ...Type) Type { return Type{Kind: KindTuple, Tuple: members} }

// ListType builds a List(elem) type.
func ListType(elem Type) Type { return Type{Kind: KindList, Elem: &elem} }

// SetType builds a Set(keyType) type; keyType must satisfy IsHashable.
func SetType(key Type) Type { return Type{Kind: KindSet, Elem: &key} }

// MapType builds a Map(keyType, valueType) type; keyType must satisfy
// IsHashable.
func MapType(key, val Type) Type { return Type{Kind: KindMap, Key: &key, Elem2: &val} }

// IsHashable reports whether t is admissible as a map/set key: scalars
// and hashable containers, excluding Float, Quantity, and Json.
func (t Type) IsHashable() bool {
	switch t.Kind {
	case KindFloat, KindQuantity, KindJSON:
		return false
	case KindOption:
		return t.Elem.IsHashable()
	case KindResult:
		return t.Elem.IsHashable() && t.Elem2.IsHashable()
	case KindTuple:
		for _, m := range t.Tuple {
			if !m.IsHashable() {
				return false
			}
		}
		return true
	case KindList, KindSet:
		return t.Elem.IsHashable()
	case KindMap:
		return t.Key.IsHashable() && t.Elem2.IsHashable()
	default:
		return true
	}
}

// Equal reports whether t and other are the same tagged type (including
// nested dimension/choices/element types).
func (t Type) Equal(other Type) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindQuantity:
		return t.Dim == other.Dim
	case KindEnum:
		return t.Choices == other.Choices || sameLabels(t.Choices, other.Choices)
	case KindIntEnum:
		return t.IntChoices == other.IntChoices
	case KindOption:
		return t.Elem.Equal(*other.Elem)
	case KindResult:
		return t.Elem.Equal(*other.Elem) && t.Elem2.Equal(*other.Elem2)
	case KindTuple:
		if len(t.Tuple) != len(other.Tuple) {
			return false
		}
		for i := range t.Tuple {
			if !t.Tuple[i].Equal(other.Tuple[i]) {
				return false
			}
		}
		return true
	case KindList, KindSet:
		return t.Elem.Equal(*other.Elem)
	case KindMap:
		return t.Key.Equal(*other.Key) && t.Elem2.Equal(*other.Elem2)
	default:
		return true
	}
}

func sameLabels(a, b *Choices) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.labels) != len(b.labels) {
		return false
	}
	for i := range a.labels {
		if a.labels[i] != b.labels[i] {
			return false
		}
	}
	return true
}

func (t Type) String() string {
	switch t.Kind {
	case KindQuantity:
		return fmt.Sprintf("Quantity(%s)", t.Dim)
	case KindEnum:
		return fmt.Sprintf("Enum(%s)", strings.Join(t.Choices.Labels(), "|"))
	case KindIntEnum:
		return "IntEnum(...)"
	case KindOption:
		return fmt.Sprintf("Option(%s)", t.Elem)
	case KindResult:
		return fmt.Sprintf("Result(%s, %s)", t.Elem, t.Elem2)
	case KindTuple:
		parts := make([]string, len(t.Tuple))
		for i, m := range t.Tuple {
			parts[i] = m.String()
		}
		return fmt.Sprintf("Tuple(%s)", strings.Join(parts, ", "))
	case KindList:
		return fmt.Sprintf("List(%s)", t.Elem)
	case KindSet:
		return fmt.Sprintf("Set(%s)", t.Elem)
	case KindMap:
		return fmt.Sprintf("Map(%s, %s)", t.Key, t.Elem2)
	default:
		return t.Kind.String()
	}
}
