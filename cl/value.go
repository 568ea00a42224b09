// Package cl implements the typed values exchanged with contracts:
// arguments, results, data variables and print event payloads.
package cl

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/govm-net/simnet/core"
	"github.com/holiman/uint256"
)

var (
	ErrOverflow  = errors.New("arithmetic overflow")
	ErrUnderflow = errors.New("arithmetic underflow")
	ErrNotASCII  = errors.New("string is not printable ascii")
	ErrSyntax    = errors.New("syntax error")
	ErrType      = errors.New("type mismatch")
)

// Value is implemented by every contract value.
type Value interface {
	Type() Type
	String() string
}

// UInt is an unsigned 128-bit integer.
type UInt struct {
	n uint256.Int
}

// NewUInt returns n as a UInt.
func NewUInt(n uint64) UInt {
	var u UInt
	u.n.SetUint64(n)
	return u
}

// ParseUInt reads a decimal string.
func ParseUInt(dec string) (UInt, error) {
	var u UInt
	if err := u.n.SetFromDecimal(dec); err != nil {
		return UInt{}, fmt.Errorf("%w: uint %q: %v", ErrSyntax, dec, err)
	}
	if !u.fits() {
		return UInt{}, fmt.Errorf("%w: uint %q", ErrOverflow, dec)
	}
	return u, nil
}

// MaxUInt is 2^128-1.
func MaxUInt() UInt {
	var u UInt
	u.n[0] = ^uint64(0)
	u.n[1] = ^uint64(0)
	return u
}

func (u UInt) fits() bool {
	return u.n[2] == 0 && u.n[3] == 0
}

// Add returns u+o, or ErrOverflow when the sum does not fit in 128 bits.
func (u UInt) Add(o UInt) (UInt, error) {
	var sum UInt
	sum.n.Add(&u.n, &o.n)
	if !sum.fits() {
		return UInt{}, ErrOverflow
	}
	return sum, nil
}

// Sub returns u-o, or ErrUnderflow when o > u.
func (u UInt) Sub(o UInt) (UInt, error) {
	var diff UInt
	if _, underflow := diff.n.SubOverflow(&u.n, &o.n); underflow {
		return UInt{}, ErrUnderflow
	}
	return diff, nil
}

func (u UInt) Cmp(o UInt) int {
	return u.n.Cmp(&o.n)
}

// Uint64 returns the value and whether it fits in 64 bits.
func (u UInt) Uint64() (uint64, bool) {
	return u.n.Uint64(), u.n.IsUint64()
}

func (u UInt) Dec() string {
	return u.n.Dec()
}

func (u UInt) Type() Type { return Type{Kind: KindUInt} }

func (u UInt) String() string { return "u" + u.n.Dec() }

// Bool is a boolean value.
type Bool bool

func NewBool(b bool) Bool { return Bool(b) }

func (b Bool) Type() Type { return Type{Kind: KindBool} }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// StringASCII holds printable ASCII text.
type StringASCII string

// NewStringASCII validates s and wraps it.
func NewStringASCII(s string) (StringASCII, error) {
	if err := checkASCII(s); err != nil {
		return "", err
	}
	return StringASCII(s), nil
}

// MustStringASCII is NewStringASCII for literals; it panics on invalid input.
func MustStringASCII(s string) StringASCII {
	v, err := NewStringASCII(s)
	if err != nil {
		panic(err)
	}
	return v
}

func checkASCII(s string) error {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c > 0x7e {
			if c == '\n' || c == '\t' || c == '\r' {
				continue
			}
			return fmt.Errorf("%w: byte 0x%02x at %d", ErrNotASCII, c, i)
		}
	}
	return nil
}

func (s StringASCII) Type() Type { return Type{Kind: KindStringASCII, MaxLen: len(s)} }

func (s StringASCII) String() string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Principal is a standard principal, or a contract principal when
// Contract is set.
type Principal struct {
	Address  core.Address
	Contract string
}

func NewPrincipal(addr core.Address) Principal {
	return Principal{Address: addr}
}

func NewContractPrincipal(id core.ContractID) Principal {
	return Principal{Address: id.Issuer, Contract: id.Name}
}

func (p Principal) Type() Type { return Type{Kind: KindPrincipal} }

func (p Principal) String() string {
	if p.Contract != "" {
		return "'" + p.Address.Principal() + "." + p.Contract
	}
	return "'" + p.Address.Principal()
}

// Tuple is a record of named values.
type Tuple map[string]Value

// NewTuple copies fields into a tuple.
func NewTuple(fields map[string]Value) Tuple {
	t := make(Tuple, len(fields))
	for k, v := range fields {
		t[k] = v
	}
	return t
}

// Keys returns the field names in sorted order.
func (t Tuple) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t Tuple) Type() Type {
	fields := make(map[string]Type, len(t))
	for k, v := range t {
		if v == nil {
			continue
		}
		fields[k] = v.Type()
	}
	return Type{Kind: KindTuple, Fields: fields}
}

func (t Tuple) String() string {
	keys := t.Keys()
	if len(keys) == 0 {
		return "{ }"
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+PrettyPrint(t[k]))
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Response is the result of a public function: (ok v) or (err v).
type Response struct {
	Committed bool
	Value     Value
}

func Ok(v Value) Response { return Response{Committed: true, Value: v} }

func Err(v Value) Response { return Response{Committed: false, Value: v} }

func (r Response) IsOk() bool { return r.Committed }

func (r Response) Type() Type {
	var inner Type
	if r.Value != nil {
		inner = r.Value.Type()
	}
	if r.Committed {
		return Type{Kind: KindResponse, Ok: &inner}
	}
	return Type{Kind: KindResponse, Err: &inner}
}

func (r Response) String() string {
	if r.Committed {
		return "(ok " + PrettyPrint(r.Value) + ")"
	}
	return "(err " + PrettyPrint(r.Value) + ")"
}

// PrettyPrint renders v the way it is written in contract source.
func PrettyPrint(v Value) string {
	if v == nil {
		return "<nil>"
	}
	return v.String()
}

// Equal reports whether a and b are the same value.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case UInt:
		y, ok := b.(UInt)
		return ok && x.Cmp(y) == 0
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case StringASCII:
		y, ok := b.(StringASCII)
		return ok && x == y
	case Principal:
		y, ok := b.(Principal)
		return ok && x == y
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, ok := y[k]
			if !ok || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case Response:
		y, ok := b.(Response)
		return ok && x.Committed == y.Committed && Equal(x.Value, y.Value)
	case nil:
		return b == nil
	}
	return false
}
