package context

import (
	"errors"
	"testing"

	"github.com/govm-net/simnet/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, MemoryContextType, r.DefaultContextType())

	_, err := r.Get("", nil)
	assert.Error(t, err, "nothing registered yet")

	calls := 0
	require.NoError(t, r.Register("fake", func(params map[string]any) (types.BlockchainContext, error) {
		calls++
		return nil, nil
	}))
	assert.Error(t, r.Register("fake", nil))

	require.NoError(t, r.SetDefault("fake"))
	_, err = r.Get("", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Error(t, r.SetDefault("missing"))
	assert.Equal(t, []ContextType{"fake"}, r.ListRegistered())
}

func TestRegistryConstructorError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register(MemoryContextType, func(map[string]any) (types.BlockchainContext, error) {
		return nil, boom
	}))
	_, err := r.Get(MemoryContextType, nil)
	assert.ErrorIs(t, err, boom)
}
