package cl

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the family of a value type.
type Kind string

const (
	KindUInt        Kind = "uint"
	KindBool        Kind = "bool"
	KindStringASCII Kind = "string-ascii"
	KindPrincipal   Kind = "principal"
	KindTuple       Kind = "tuple"
	KindResponse    Kind = "response"
)

// Type describes the shape of a value. Fields is set for tuples, Ok and
// Err for responses and MaxLen for strings.
type Type struct {
	Kind   Kind            `json:"kind" yaml:"kind"`
	MaxLen int             `json:"max_len,omitempty" yaml:"max_len,omitempty"`
	Fields map[string]Type `json:"fields,omitempty" yaml:"fields,omitempty"`
	Ok     *Type           `json:"ok,omitempty" yaml:"ok,omitempty"`
	Err    *Type           `json:"err,omitempty" yaml:"err,omitempty"`
}

var (
	UIntType      = Type{Kind: KindUInt}
	BoolType      = Type{Kind: KindBool}
	PrincipalType = Type{Kind: KindPrincipal}
)

// StringASCIIType is a string of at most maxLen characters.
func StringASCIIType(maxLen int) Type {
	return Type{Kind: KindStringASCII, MaxLen: maxLen}
}

// TupleType builds a tuple type from its fields.
func TupleType(fields map[string]Type) Type {
	return Type{Kind: KindTuple, Fields: fields}
}

// ResponseType builds (response ok err).
func ResponseType(ok, err Type) Type {
	return Type{Kind: KindResponse, Ok: &ok, Err: &err}
}

func (t Type) String() string {
	switch t.Kind {
	case KindStringASCII:
		return fmt.Sprintf("(string-ascii %d)", t.MaxLen)
	case KindTuple:
		keys := make([]string, 0, len(t.Fields))
		for k := range t.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+t.Fields[k].String())
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case KindResponse:
		ok, err := "none", "none"
		if t.Ok != nil {
			ok = t.Ok.String()
		}
		if t.Err != nil {
			err = t.Err.String()
		}
		return "(response " + ok + " " + err + ")"
	}
	return string(t.Kind)
}

// Admits checks that v is a value of type t.
func (t Type) Admits(v Value) error {
	if v == nil {
		return fmt.Errorf("%w: expected %s, got nothing", ErrType, t)
	}
	switch t.Kind {
	case KindUInt:
		if _, ok := v.(UInt); ok {
			return nil
		}
	case KindBool:
		if _, ok := v.(Bool); ok {
			return nil
		}
	case KindPrincipal:
		if _, ok := v.(Principal); ok {
			return nil
		}
	case KindStringASCII:
		s, ok := v.(StringASCII)
		if !ok {
			break
		}
		if err := checkASCII(string(s)); err != nil {
			return err
		}
		if t.MaxLen > 0 && len(s) > t.MaxLen {
			return fmt.Errorf("%w: %s longer than %s", ErrType, s, t)
		}
		return nil
	case KindTuple:
		tup, ok := v.(Tuple)
		if !ok || len(tup) != len(t.Fields) {
			break
		}
		for name, ft := range t.Fields {
			fv, ok := tup[name]
			if !ok {
				return fmt.Errorf("%w: tuple field %q missing", ErrType, name)
			}
			if err := ft.Admits(fv); err != nil {
				return fmt.Errorf("tuple field %q: %w", name, err)
			}
		}
		return nil
	case KindResponse:
		r, ok := v.(Response)
		if !ok {
			break
		}
		inner := t.Err
		if r.Committed {
			inner = t.Ok
		}
		if inner == nil {
			return nil
		}
		return inner.Admits(r.Value)
	}
	return fmt.Errorf("%w: expected %s, got %s", ErrType, t, v.Type())
}
