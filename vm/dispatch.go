package vm

import (
	"fmt"
	"reflect"

	"github.com/govm-net/simnet/abi"
	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/core"
	"github.com/govm-net/simnet/types"
)

var (
	contextType = reflect.TypeOf((*types.Context)(nil)).Elem()
	valueType   = reflect.TypeOf((*cl.Value)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// method finds the Go method implementing fn and checks its shape:
// func(types.Context, args...) (cl.Value, error).
func method(contract types.Contract, fn *abi.Function) (reflect.Value, error) {
	name := abi.MethodName(fn.Name)
	m := reflect.ValueOf(contract).MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, fmt.Errorf("%w: no method %s for %s", core.ErrFunctionNotFound, name, fn.Name)
	}
	t := m.Type()
	if t.NumIn() != len(fn.Args)+1 || t.In(0) != contextType {
		return reflect.Value{}, fmt.Errorf("%w: method %s must take the context and %d arguments", core.ErrFunctionNotFound, name, len(fn.Args))
	}
	if t.NumOut() != 2 || t.Out(0) != valueType || t.Out(1) != errorType {
		return reflect.Value{}, fmt.Errorf("%w: method %s must return (cl.Value, error)", core.ErrFunctionNotFound, name)
	}
	for i := 1; i < t.NumIn(); i++ {
		if !t.In(i).Implements(valueType) {
			return reflect.Value{}, fmt.Errorf("%w: method %s argument %d is not a value type", core.ErrFunctionNotFound, name, i)
		}
	}
	return m, nil
}

// bindABI checks that every callable function of the contract is implemented.
func bindABI(contract types.Contract) error {
	a := contract.ABI()
	for i := range a.Functions {
		fn := &a.Functions[i]
		if fn.Access == abi.Private {
			continue
		}
		if _, err := method(contract, fn); err != nil {
			return err
		}
	}
	return nil
}

// invoke calls fn on contract. A panic inside the contract is returned
// as an error.
func invoke(contract types.Contract, fn *abi.Function, ctx types.Context, args []cl.Value) (result cl.Value, err error) {
	m, err := method(contract, fn)
	if err != nil {
		return nil, err
	}
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(&ctx).Elem())
	for i, arg := range args {
		if arg == nil {
			return nil, fmt.Errorf("%w: missing argument %s of %s", core.ErrInvalidArgument, fn.Args[i].Name, fn.Name)
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(m.Type().In(i + 1)) {
			return nil, fmt.Errorf("%w: argument %s of %s", core.ErrInvalidArgument, fn.Args[i].Name, fn.Name)
		}
		in = append(in, v)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%s panicked: %v", fn.Name, r)
		}
	}()
	out := m.Call(in)
	if e, _ := out[1].Interface().(error); e != nil {
		return nil, e
	}
	result, _ = out[0].Interface().(cl.Value)
	if result == nil {
		return nil, fmt.Errorf("%s returned no value", fn.Name)
	}
	if err := fn.Output.Admits(result); err != nil {
		return nil, fmt.Errorf("%s returned %s: %w", fn.Name, cl.PrettyPrint(result), err)
	}
	return result, nil
}
