// Package store implements the keyspace: a process-wide map from string
// key to a tagged stored value, with a parallel expiration index and the
// operations the command dispatcher drives against it.
package store

import "fmt"

// Kind identifies which field of a StoredValue is populated.
type Kind int

const (
	KindInt Kind = iota
	KindStr
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// StoredValue is the tagged union of what may live in the keyspace.
// A List's elements are always KindInt or KindStr — nested lists are
// rejected wherever a StoredValue is constructed from client input or
// read back from a snapshot.
type StoredValue struct {
	Kind Kind
	Int  int64
	Str  string
	List []StoredValue
}

// NewInt builds an Int-kind StoredValue.
func NewInt(i int64) StoredValue { return StoredValue{Kind: KindInt, Int: i} }

// NewStr builds a Str-kind StoredValue.
func NewStr(s string) StoredValue { return StoredValue{Kind: KindStr, Str: s} }

// NewList builds a List-kind StoredValue from flat (non-list) elements.
func NewList(elems ...StoredValue) StoredValue { return StoredValue{Kind: KindList, List: elems} }

// Text returns the canonical textual form of a scalar value, as GET
// and LRANGE-style reads render it. Only meaningful for KindInt/KindStr.
func (v StoredValue) Text() string {
	switch v.Kind {
	case KindInt:
		return fmt.Sprintf("%d", v.Int)
	case KindStr:
		return v.Str
	default:
		return ""
	}
}

// clone deep-copies a StoredValue so callers reading from the store
// never observe mutation of the live, stored copy.
func (v StoredValue) clone() StoredValue {
	if v.Kind != KindList {
		return v
	}
	cp := make([]StoredValue, len(v.List))
	for i, e := range v.List {
		cp[i] = e.clone()
	}
	return StoredValue{Kind: KindList, List: cp}
}

// ParseScalar decides whether a client-supplied string should be stored
// as an Int (its textual form parses as a signed 64-bit decimal) or a
// Str (everything else), per the SET/LPUSH/RPUSH coercion rule.
func ParseScalar(s string) StoredValue {
	if i, ok := parseStrictInt(s); ok {
		return NewInt(i)
	}
	return NewStr(s)
}
