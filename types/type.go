package types

import (
	"fmt"
	"strings"
)

// DatumType tags the element type held by a Datum.
type DatumType uint8

const (
	TypeUnknown DatumType = iota
	TypeInteger
	TypeFloat
	TypeString
	TypeVector
	TypeMatrix
	TypeTable
	TypePointer

	typeEnd
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeInteger: "integer",
	TypeFloat:   "float",
	TypeString:  "string",
	TypeVector:  "vector",
	TypeMatrix:  "matrix",
	TypeTable:   "table",
	TypePointer: "pointer",
}

// String returns the name used by table documents
func (t DatumType) String() string {
	if t >= typeEnd {
		return "invalid"
	}
	return typeNames[t]
}

// IsValid reports whether t is one of the declared tags.
func (t DatumType) IsValid() bool {
	return t < typeEnd
}

// Types returns every concrete tag, Unknown excluded.
func Types() []DatumType {
	out := make([]DatumType, 0, typeEnd-1)
	for t := TypeInteger; t < typeEnd; t++ {
		out = append(out, t)
	}
	return out
}

// ParseDatumType maps a case-insensitive name back to its tag.
func ParseDatumType(name string) (DatumType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for t, s := range typeNames {
		if s == n {
			return DatumType(t), nil
		}
	}
	return TypeUnknown, fmt.Errorf("ParseDatumType: unknown type name %q: %w", name, ErrTypeMismatch)
}

func (t DatumType) MarshalText() ([]byte, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("MarshalText: invalid datum type %d: %w", uint8(t), ErrTypeMismatch)
	}
	return []byte(t.String()), nil
}

func (t *DatumType) UnmarshalText(b []byte) error {
	v, err := ParseDatumType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
