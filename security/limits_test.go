package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerAccumulates(t *testing.T) {
	tr := NewTracker(DefaultLimits())
	require.NoError(t, tr.Runtime(10))
	require.NoError(t, tr.Read(32))
	require.NoError(t, tr.Write(16))
	require.NoError(t, tr.Write(16))

	assert.Equal(t, Costs{
		Runtime:     10,
		ReadCount:   1,
		ReadLength:  32,
		WriteCount:  2,
		WriteLength: 32,
	}, tr.Costs())
}

func TestTrackerLimits(t *testing.T) {
	tr := NewTracker(Limits{WriteCount: 1})
	require.NoError(t, tr.Write(1))
	assert.ErrorIs(t, tr.Write(1), ErrCostLimitExceeded)

	tr = NewTracker(Limits{ReadLength: 10})
	assert.ErrorIs(t, tr.Read(11), ErrCostLimitExceeded)

	tr = NewTracker(Limits{Runtime: 5})
	require.NoError(t, tr.Runtime(5))
	assert.ErrorIs(t, tr.Runtime(1), ErrCostLimitExceeded)
}

func TestZeroLimitsAreUnlimited(t *testing.T) {
	tr := NewTracker(Limits{})
	for i := 0; i < 100; i++ {
		require.NoError(t, tr.Write(1_000_000))
	}
}
