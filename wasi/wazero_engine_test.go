package wasi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// testModule imports env.double (i64)->i64 and exports
// add (i64 i64)->i64, trap ()->() and quad (i64)->i64 = double(double(x)).
var testModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section
	0x01, 0x0f, 0x03,
	0x60, 0x02, 0x7e, 0x7e, 0x01, 0x7e,
	0x60, 0x00, 0x00,
	0x60, 0x01, 0x7e, 0x01, 0x7e,
	// import section
	0x02, 0x0e, 0x01,
	0x03, 'e', 'n', 'v', 0x06, 'd', 'o', 'u', 'b', 'l', 'e', 0x00, 0x02,
	// function section
	0x03, 0x04, 0x03, 0x00, 0x01, 0x02,
	// export section
	0x07, 0x15, 0x03,
	0x03, 'a', 'd', 'd', 0x00, 0x01,
	0x04, 't', 'r', 'a', 'p', 0x00, 0x02,
	0x04, 'q', 'u', 'a', 'd', 0x00, 0x03,
	// code section
	0x0a, 0x16, 0x03,
	0x07, 0x00, 0x20, 0x00, 0x20, 0x01, 0x7c, 0x0b,
	0x03, 0x00, 0x00, 0x0b,
	0x08, 0x00, 0x20, 0x00, 0x10, 0x00, 0x10, 0x00, 0x0b,
}

func double() HostFunction {
	return HostFunction{Name: "double", Fn: func(_ context.Context, x uint64) uint64 { return 2 * x }}
}

func setupTestVM(t *testing.T) *WazeroVM {
	vm := NewWazeroVM(zaptest.NewLogger(t))
	t.Cleanup(func() { vm.Close(context.Background()) })
	return vm
}

func TestExports(t *testing.T) {
	vm := setupTestVM(t)
	names, err := vm.Exports(context.Background(), testModule)
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "quad", "trap"}, names)

	_, err = vm.Exports(context.Background(), []byte("not wasm"))
	assert.Error(t, err)
}

func TestExecute(t *testing.T) {
	vm := setupTestVM(t)
	ctx := context.Background()

	results, err := vm.Execute(ctx, testModule, "add", []HostFunction{double()}, 2, 40)
	require.NoError(t, err)
	assert.Equal(t, []uint64{42}, results)

	results, err = vm.Execute(ctx, testModule, "quad", []HostFunction{double()}, 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{12}, results)

	// Wrapping arithmetic is the module's business
	results, err = vm.Execute(ctx, testModule, "add", []HostFunction{double()}, ^uint64(0), 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, results)
}

func TestExecuteErrors(t *testing.T) {
	vm := setupTestVM(t)
	ctx := context.Background()

	_, err := vm.Execute(ctx, testModule, "trap", []HostFunction{double()})
	assert.Error(t, err)

	_, err = vm.Execute(ctx, testModule, "missing", []HostFunction{double()})
	assert.ErrorIs(t, err, ErrExportNotFound)

	// Unresolved import
	_, err = vm.Execute(ctx, testModule, "add", nil, 1, 2)
	assert.Error(t, err)
}
