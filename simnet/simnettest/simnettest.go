// Package simnettest provides helpers for testing contracts on a simnet
// session with the standard testing package.
package simnettest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/config"
	"github.com/govm-net/simnet/simnet"
	"github.com/govm-net/simnet/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// New starts a session with the default plan, logging to t and closed
// when the test ends.
func New(t testing.TB, opts ...simnet.Option) *simnet.Simnet {
	t.Helper()
	return NewWithConfig(t, config.Default(), opts...)
}

// NewWithConfig starts a session with cfg, logging to t and closed when the
// test ends.
func NewWithConfig(t testing.TB, cfg *config.Config, opts ...simnet.Option) *simnet.Simnet {
	t.Helper()
	opts = append([]simnet.Option{simnet.WithLogger(zaptest.NewLogger(t))}, opts...)
	s, err := simnet.New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

// requireEqual fails with a diff of the printed forms when the values differ.
func requireEqual(t testing.TB, expected, actual cl.Value) {
	t.Helper()
	if cl.Equal(expected, actual) {
		return
	}
	want, got := "<nil>", "<nil>"
	if expected != nil {
		want = cl.PrettyPrint(expected)
	}
	if actual != nil {
		got = cl.PrettyPrint(actual)
	}
	t.Fatalf("unexpected value (-want +got):\n%s", cmp.Diff(want, got))
}

// RequireOk asserts that value is (ok expected) and returns expected.
func RequireOk(t testing.TB, value cl.Value, expected cl.Value) cl.Value {
	t.Helper()
	requireEqual(t, cl.Ok(expected), value)
	return expected
}

// RequireErr asserts that value is (err expected).
func RequireErr(t testing.TB, value cl.Value, expected cl.Value) {
	t.Helper()
	requireEqual(t, cl.Err(expected), value)
}

// RequireUInt asserts that value is the uint n.
func RequireUInt(t testing.TB, value cl.Value, n uint64) {
	t.Helper()
	requireEqual(t, cl.NewUInt(n), value)
}

// RequireTuple asserts that value is a tuple with exactly the given fields.
func RequireTuple(t testing.TB, value cl.Value, fields map[string]cl.Value) {
	t.Helper()
	requireEqual(t, cl.NewTuple(fields), value)
}

// RequirePrintEvent asserts that event is a print event and returns the
// printed value.
func RequirePrintEvent(t testing.TB, event types.Event) cl.Value {
	t.Helper()
	require.Equal(t, types.PrintEvent, event.Event)
	require.Equal(t, types.PrintTopic, event.Data.Topic)
	require.NotNil(t, event.Data.Value)
	return event.Data.Value
}
