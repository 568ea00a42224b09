package counter

import (
	"context"
	"fmt"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/types"
	"github.com/govm-net/simnet/wasi"
)

// wasmCode is the counter's increment compiled to WebAssembly. It imports
// env.get_count, env.set_count and env.emit and exports
// increment(step i64) -> i64, which traps when the sum wraps.
var wasmCode = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> i64, (i64) -> (), (i64) -> i64
	0x01, 0x0e, 0x03,
	0x60, 0x00, 0x01, 0x7e,
	0x60, 0x01, 0x7e, 0x00,
	0x60, 0x01, 0x7e, 0x01, 0x7e,
	// import
	0x02, 0x2c, 0x03,
	0x03, 'e', 'n', 'v', 0x09, 'g', 'e', 't', '_', 'c', 'o', 'u', 'n', 't', 0x00, 0x00,
	0x03, 'e', 'n', 'v', 0x09, 's', 'e', 't', '_', 'c', 'o', 'u', 'n', 't', 0x00, 0x01,
	0x03, 'e', 'n', 'v', 0x04, 'e', 'm', 'i', 't', 0x00, 0x01,
	// function
	0x03, 0x02, 0x01, 0x02,
	// export
	0x07, 0x0d, 0x01, 0x09, 'i', 'n', 'c', 'r', 'e', 'm', 'e', 'n', 't', 0x00, 0x03,
	// code
	0x0a, 0x22, 0x01, 0x20,
	0x01, 0x02, 0x7e, // two i64 locals: old, new
	0x10, 0x00, 0x21, 0x01, // old = get_count()
	0x20, 0x01, 0x20, 0x00, 0x7c, 0x22, 0x02, // new = old + step
	0x20, 0x01, 0x54, 0x04, 0x40, 0x00, 0x0b, // if new < old: unreachable
	0x20, 0x02, 0x10, 0x01, // set_count(new)
	0x20, 0x02, 0x10, 0x02, // emit(new)
	0x20, 0x02, 0x0b,
}

// WasmCode returns the WebAssembly module behind NewWasm.
func WasmCode() []byte {
	return wasmCode
}

// WasmCounter runs increment as WebAssembly. The remaining functions are
// shared with the native build.
type WasmCounter struct {
	*Counter
	vm *wasi.WazeroVM
}

// NewWasm creates a wasm-backed counter whose count starts at initial.
func NewWasm(vm *wasi.WazeroVM, initial cl.UInt) *WasmCounter {
	return &WasmCounter{Counter: New(initial), vm: vm}
}

// Code returns the contract's WebAssembly module.
func (c *WasmCounter) Code() []byte {
	return wasmCode
}

// binding connects one execution to the calling context. Host functions
// cannot return errors to the guest, so the first failure is kept here and
// the host function panics to abort the execution.
type binding struct {
	ctx types.Context
	err error
}

func (b *binding) fail(err error) {
	b.err = err
	panic(err)
}

func (b *binding) hosts() []wasi.HostFunction {
	return []wasi.HostFunction{
		{Name: "get_count", Fn: func(context.Context) uint64 {
			n, err := count(b.ctx)
			if err != nil {
				b.fail(err)
			}
			v, ok := n.Uint64()
			if !ok {
				b.fail(fmt.Errorf("%w: count %s exceeds 64 bits", cl.ErrOverflow, n))
			}
			return v
		}},
		{Name: "set_count", Fn: func(_ context.Context, v uint64) {
			if err := b.ctx.VarSet(CountVar, cl.NewUInt(v)); err != nil {
				b.fail(err)
			}
		}},
		{Name: "emit", Fn: func(_ context.Context, v uint64) {
			if err := b.ctx.Print(Event(Incremented, cl.NewUInt(v))); err != nil {
				b.fail(err)
			}
		}},
	}
}

// Increment adds step to the count inside the wasm module.
func (c *WasmCounter) Increment(ctx types.Context, step cl.UInt) (cl.Value, error) {
	s, ok := step.Uint64()
	if !ok {
		return nil, fmt.Errorf("%w: step %s exceeds 64 bits", cl.ErrOverflow, step)
	}
	b := &binding{ctx: ctx}
	results, err := c.vm.Execute(context.Background(), wasmCode, "increment", b.hosts(), s)
	if b.err != nil {
		return nil, b.err
	}
	if err != nil {
		return nil, fmt.Errorf("increment trapped: %w", err)
	}
	if len(results) != 1 {
		return nil, fmt.Errorf("increment returned %d values", len(results))
	}
	return cl.Ok(cl.NewUInt(results[0])), nil
}
