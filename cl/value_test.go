package cl

import (
	"testing"

	"github.com/govm-net/simnet/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyPrint(t *testing.T) {
	event := NewTuple(map[string]Value{
		"object": MustStringASCII("count"),
		"action": MustStringASCII("incremented"),
		"value":  NewUInt(2),
	})

	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"uint", NewUInt(2), "u2"},
		{"bool", NewBool(true), "true"},
		{"string", MustStringASCII(`say "hi"`), `"say \"hi\""`},
		{"ok", Ok(NewUInt(2)), "(ok u2)"},
		{"err", Err(NewUInt(100)), "(err u100)"},
		{"tuple sorted", event, `{ action: "incremented", object: "count", value: u2 }`},
		{"empty tuple", Tuple{}, "{ }"},
		{"nil field", Tuple{"a": nil}, "{ a: <nil> }"},
		{"ok nil", Ok(nil), "(ok <nil>)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrettyPrint(tt.value))
		})
	}
}

func TestUIntArithmetic(t *testing.T) {
	sum, err := NewUInt(2).Add(NewUInt(40))
	require.NoError(t, err)
	assert.True(t, Equal(NewUInt(42), sum))

	_, err = MaxUInt().Add(NewUInt(1))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = NewUInt(1).Sub(NewUInt(2))
	assert.ErrorIs(t, err, ErrUnderflow)

	diff, err := NewUInt(42).Sub(NewUInt(40))
	require.NoError(t, err)
	n, ok := diff.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(2), n)

	largest, err := ParseUInt("340282366920938463463374607431768211455")
	require.NoError(t, err)
	assert.Equal(t, 0, largest.Cmp(MaxUInt()))
	_, ok = largest.Uint64()
	assert.False(t, ok)

	_, err = ParseUInt("340282366920938463463374607431768211456")
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestStringASCII(t *testing.T) {
	_, err := NewStringASCII("count")
	require.NoError(t, err)

	_, err = NewStringASCII("caf\xc3\xa9")
	assert.ErrorIs(t, err, ErrNotASCII)

	assert.Panics(t, func() { MustStringASCII("\x01") })
}

func TestEqual(t *testing.T) {
	a := NewTuple(map[string]Value{"n": NewUInt(1), "s": MustStringASCII("x")})
	b := NewTuple(map[string]Value{"s": MustStringASCII("x"), "n": NewUInt(1)})
	c := NewTuple(map[string]Value{"n": NewUInt(2), "s": MustStringASCII("x")})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(Ok(NewUInt(1)), Err(NewUInt(1))))
	assert.False(t, Equal(NewUInt(1), Bool(true)))
}

func TestParse(t *testing.T) {
	addr := core.AccountAddress("wallet_1")
	literals := []string{
		"u0",
		"u42",
		"true",
		`"incremented"`,
		"(ok u2)",
		"(err u100)",
		`{ action: "incremented", object: "count", value: u2 }`,
		"'" + addr.Principal(),
		"'" + addr.Principal() + ".counter",
		`(ok { a: (err false), b: "\\" })`,
	}
	for _, lit := range literals {
		t.Run(lit, func(t *testing.T) {
			v, err := Parse(lit)
			require.NoError(t, err)
			assert.Equal(t, lit, PrettyPrint(v))
		})
	}

	for _, bad := range []string{"", "u", "2", `"open`, "(maybe u1)", "{ a u1 }", "{ a: u1, a: u2 }", "u1 u2"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrSyntax, bad)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	v := Ok(NewTuple(map[string]Value{
		"who":   NewContractPrincipal(core.ContractID{Issuer: core.AccountAddress("deployer"), Name: "counter"}),
		"value": MaxUInt(),
		"flag":  Bool(false),
		"note":  MustStringASCII("count"),
	}))

	data, err := Marshal(v)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, Equal(v, got), "got %s", PrettyPrint(got))

	_, err = Unmarshal([]byte(`{"type":"float","value":"1.5"}`))
	assert.ErrorIs(t, err, ErrType)
}

func TestTypeAdmits(t *testing.T) {
	eventType := TupleType(map[string]Type{
		"object": StringASCIIType(5),
		"action": StringASCIIType(11),
		"value":  UIntType,
	})
	event := NewTuple(map[string]Value{
		"object": MustStringASCII("count"),
		"action": MustStringASCII("incremented"),
		"value":  NewUInt(2),
	})
	assert.NoError(t, eventType.Admits(event))
	assert.Equal(t, "{ action: (string-ascii 11), object: (string-ascii 5), value: uint }", eventType.String())

	assert.ErrorIs(t, UIntType.Admits(MustStringASCII("1")), ErrType)
	assert.ErrorIs(t, StringASCIIType(3).Admits(MustStringASCII("count")), ErrType)

	resp := ResponseType(UIntType, UIntType)
	assert.NoError(t, resp.Admits(Ok(NewUInt(1))))
	assert.ErrorIs(t, resp.Admits(Err(Bool(true))), ErrType)
	assert.Equal(t, "(response uint uint)", resp.String())
}

func TestNilFieldIsRejected(t *testing.T) {
	tup := NewTuple(map[string]Value{"a": nil, "b": NewUInt(1)})
	assert.NotPanics(t, func() { _ = tup.Type() })
	assert.Equal(t, Type{Kind: KindTuple, Fields: map[string]Type{"b": UIntType}}, tup.Type())

	_, err := Marshal(tup)
	assert.ErrorIs(t, err, ErrType)

	ty := Type{Kind: KindTuple, Fields: map[string]Type{"a": UIntType, "b": UIntType}}
	assert.ErrorIs(t, ty.Admits(tup), ErrType)
}
