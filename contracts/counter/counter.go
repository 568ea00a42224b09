// Package counter implements the counter contract: a single uint data
// variable that public functions move up and down, printing an event on
// every change.
package counter

import (
	"fmt"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/contracts"
	"github.com/govm-net/simnet/types"
	"go.uber.org/zap"
)

// Kind is the catalog name of the contract.
const Kind = "counter"

// Variable names and printed actions.
const (
	CountVar    = "count"
	Incremented = "incremented"
	Decremented = "decremented"
)

// ErrCodeUnderflow is returned as (err u100) when a decrement would take
// the count below zero.
const ErrCodeUnderflow = 100

// Runtimes a counter can be deployed with.
const (
	RuntimeNative = "native"
	RuntimeWasm   = "wasm"
)

func init() {
	contracts.Register(Kind, build)
}

func build(env contracts.Env, params map[string]any) (types.Contract, error) {
	initial, err := contracts.UIntParam(params, "initial", cl.NewUInt(0))
	if err != nil {
		return nil, err
	}
	runtime, err := contracts.StringParam(params, "runtime", RuntimeNative)
	if err != nil {
		return nil, err
	}
	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("building counter", zap.String("runtime", runtime), zap.String("initial", initial.String()))
	switch runtime {
	case RuntimeNative:
		return New(initial), nil
	case RuntimeWasm:
		if env.VM == nil {
			return nil, fmt.Errorf("wasm counter needs a wazero runtime")
		}
		return NewWasm(env.VM, initial), nil
	}
	return nil, fmt.Errorf("unknown counter runtime %q", runtime)
}

var contractABI = &abi.ABI{
	Name: Kind,
	Functions: []abi.Function{
		{
			Name:   "increment",
			Access: abi.Public,
			Args:   []abi.Arg{{Name: "step", Type: cl.UIntType}},
			Output: cl.ResponseType(cl.UIntType, cl.UIntType),
		},
		{
			Name:   "decrement",
			Access: abi.Public,
			Args:   []abi.Arg{{Name: "step", Type: cl.UIntType}},
			Output: cl.ResponseType(cl.UIntType, cl.UIntType),
		},
		{
			Name:   "get-count",
			Access: abi.ReadOnly,
			Output: cl.UIntType,
		},
	},
	Variables: []abi.Variable{{Name: CountVar, Type: cl.UIntType}},
}

// Counter is the native build of the contract.
type Counter struct {
	initial cl.UInt
}

// New creates a counter whose count starts at initial.
func New(initial cl.UInt) *Counter {
	return &Counter{initial: initial}
}

func (c *Counter) ABI() *abi.ABI {
	return contractABI
}

func (c *Counter) Init(ctx types.Context) error {
	return ctx.VarSet(CountVar, c.initial)
}

// Event is the tuple printed when the count changes.
func Event(action string, value cl.UInt) cl.Tuple {
	return cl.NewTuple(map[string]cl.Value{
		"object": cl.MustStringASCII(CountVar),
		"action": cl.MustStringASCII(action),
		"value":  value,
	})
}

func count(ctx types.Context) (cl.UInt, error) {
	v, err := ctx.VarGet(CountVar)
	if err != nil {
		return cl.UInt{}, err
	}
	n, ok := v.(cl.UInt)
	if !ok {
		return cl.UInt{}, fmt.Errorf("%w: count holds %s", cl.ErrType, v.Type())
	}
	return n, nil
}

func store(ctx types.Context, action string, n cl.UInt) error {
	if err := ctx.VarSet(CountVar, n); err != nil {
		return err
	}
	return ctx.Print(Event(action, n))
}

// Increment adds step to the count.
func (c *Counter) Increment(ctx types.Context, step cl.UInt) (cl.Value, error) {
	current, err := count(ctx)
	if err != nil {
		return nil, err
	}
	next, err := current.Add(step)
	if err != nil {
		return nil, err
	}
	if err := store(ctx, Incremented, next); err != nil {
		return nil, err
	}
	return cl.Ok(next), nil
}

// Decrement subtracts step from the count.
func (c *Counter) Decrement(ctx types.Context, step cl.UInt) (cl.Value, error) {
	current, err := count(ctx)
	if err != nil {
		return nil, err
	}
	if step.Cmp(current) > 0 {
		return cl.Err(cl.NewUInt(ErrCodeUnderflow)), nil
	}
	next, err := current.Sub(step)
	if err != nil {
		return nil, err
	}
	if err := store(ctx, Decremented, next); err != nil {
		return nil, err
	}
	return cl.Ok(next), nil
}

// GetCount returns the current count.
func (c *Counter) GetCount(ctx types.Context) (cl.Value, error) {
	return count(ctx)
}
