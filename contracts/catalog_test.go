package contracts

import (
	"testing"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emptyContract struct{}

func (emptyContract) ABI() *abi.ABI                { return &abi.ABI{Name: "empty"} }
func (emptyContract) Init(ctx types.Context) error { return nil }

func TestCatalog(t *testing.T) {
	Register("empty", func(env Env, params map[string]any) (types.Contract, error) {
		assert.NotNil(t, env.Log)
		return emptyContract{}, nil
	})

	c, err := Build("empty", Env{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "empty", c.ABI().Name)
	assert.Contains(t, Kinds(), "empty")

	_, err = Build("missing", Env{}, nil)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestUIntParam(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  uint64
	}{
		{"missing", nil, 7},
		{"int", 1, 1},
		{"uint64", uint64(42), 42},
		{"decimal string", "40", 40},
		{"literal", "u2", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := map[string]any{}
			if tt.value != nil {
				params["initial"] = tt.value
			}
			got, err := UIntParam(params, "initial", cl.NewUInt(7))
			require.NoError(t, err)
			n, ok := got.Uint64()
			require.True(t, ok)
			assert.Equal(t, tt.want, n)
		})
	}

	_, err := UIntParam(map[string]any{"initial": -1}, "initial", cl.UInt{})
	assert.Error(t, err)
	_, err = UIntParam(map[string]any{"initial": "ten"}, "initial", cl.UInt{})
	assert.ErrorIs(t, err, cl.ErrSyntax)
	_, err = UIntParam(map[string]any{"initial": 1.5}, "initial", cl.UInt{})
	assert.Error(t, err)
}

func TestStringParam(t *testing.T) {
	got, err := StringParam(map[string]any{"runtime": "wasm"}, "runtime", "native")
	require.NoError(t, err)
	assert.Equal(t, "wasm", got)

	got, err = StringParam(nil, "runtime", "native")
	require.NoError(t, err)
	assert.Equal(t, "native", got)

	_, err = StringParam(map[string]any{"runtime": true}, "runtime", "native")
	assert.Error(t, err)
}
