// Package wasi runs WebAssembly contract code on wazero.
package wasi

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// HostModule is the import module contract code links against.
const HostModule = "env"

var ErrExportNotFound = errors.New("export not found")

// HostFunction is a Go function exported to contract code under Name.
// Fn must be a function accepted by wazero's HostFunctionBuilder.WithFunc,
// for example func(context.Context, uint64) uint64.
type HostFunction struct {
	Name string
	Fn   any
}

// WazeroVM executes WebAssembly modules. Compiled code is shared between
// executions through a compilation cache.
type WazeroVM struct {
	cache wazero.CompilationCache
	log   *zap.Logger
}

// NewWazeroVM creates a new wazero virtual machine instance
func NewWazeroVM(log *zap.Logger) *WazeroVM {
	if log == nil {
		log = zap.NewNop()
	}
	return &WazeroVM{
		cache: wazero.NewCompilationCache(),
		log:   log,
	}
}

func (vm *WazeroVM) newRuntime(ctx context.Context) wazero.Runtime {
	return wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(vm.cache))
}

// Exports compiles code and lists its exported functions.
func (vm *WazeroVM) Exports(ctx context.Context, code []byte) ([]string, error) {
	runtime := vm.newRuntime(ctx)
	defer runtime.Close(ctx)

	compiled, err := runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WebAssembly module: %w", err)
	}
	names := make([]string, 0, len(compiled.ExportedFunctions()))
	for name := range compiled.ExportedFunctions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Execute instantiates code with the given host functions and calls the
// exported function with params. Each call runs in a fresh instance, so
// contract code keeps no state between calls. A trap is returned as an
// error.
func (vm *WazeroVM) Execute(ctx context.Context, code []byte, function string, hosts []HostFunction, params ...uint64) ([]uint64, error) {
	runtime := vm.newRuntime(ctx)
	defer runtime.Close(ctx)

	builder := runtime.NewHostModuleBuilder(HostModule)
	for _, h := range hosts {
		builder.NewFunctionBuilder().WithFunc(h.Fn).Export(h.Name)
	}
	if _, err := builder.Instantiate(ctx); err != nil {
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}
	wasi_snapshot_preview1.MustInstantiate(ctx, runtime)

	compiled, err := runtime.CompileModule(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WebAssembly module: %w", err)
	}

	config := wazero.NewModuleConfig().WithName("contract").WithStartFunctions()
	module, err := runtime.InstantiateModule(ctx, compiled, config)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	defer module.Close(ctx)

	fn := module.ExportedFunction(function)
	if fn == nil {
		return nil, fmt.Errorf("%w: %s", ErrExportNotFound, function)
	}

	vm.log.Debug("calling wasm export", zap.String("function", function), zap.Uint64s("params", params))
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", function, err)
	}
	return results, nil
}

// Close releases the compilation cache.
func (vm *WazeroVM) Close(ctx context.Context) error {
	if err := vm.cache.Close(ctx); err != nil {
		return fmt.Errorf("failed to close compilation cache: %w", err)
	}
	return nil
}
