// Package contracts is the catalog of contract kinds a simnet session can
// deploy by name.
package contracts

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/govm-net/simnet/cl"
	"github.com/govm-net/simnet/types"
	"github.com/govm-net/simnet/wasi"
	"go.uber.org/zap"
)

var ErrUnknownKind = errors.New("unknown contract kind")

// Env carries the shared services a contract may need when it is built.
type Env struct {
	VM  *wasi.WazeroVM
	Log *zap.Logger
}

// Factory builds a contract of one kind from its deployment parameters.
type Factory func(env Env, params map[string]any) (types.Contract, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a contract kind. Registering a kind twice replaces it.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Build creates a contract of the given kind.
func Build(kind string, env Env, params map[string]any) (types.Contract, error) {
	mu.RLock()
	f, ok := factories[kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	return f(env, params)
}

// Kinds lists the registered contract kinds.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// UIntParam reads an unsigned integer parameter. Integers, decimal strings
// and uint literals such as "u1" are accepted; a missing key yields def.
func UIntParam(params map[string]any, key string, def cl.UInt) (cl.UInt, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case cl.UInt:
		return v, nil
	case int:
		if v < 0 {
			return cl.UInt{}, fmt.Errorf("parameter %s: negative value %d", key, v)
		}
		return cl.NewUInt(uint64(v)), nil
	case int64:
		if v < 0 {
			return cl.UInt{}, fmt.Errorf("parameter %s: negative value %d", key, v)
		}
		return cl.NewUInt(uint64(v)), nil
	case uint64:
		return cl.NewUInt(v), nil
	case string:
		n, err := cl.ParseUInt(strings.TrimPrefix(v, "u"))
		if err != nil {
			return cl.UInt{}, fmt.Errorf("parameter %s: %w", key, err)
		}
		return n, nil
	}
	return cl.UInt{}, fmt.Errorf("parameter %s: unsupported type %T", key, raw)
}

// StringParam reads a string parameter, yielding def when it is missing.
func StringParam(params map[string]any, key, def string) (string, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	}
	return "", fmt.Errorf("parameter %s: unsupported type %T", key, raw)
}
