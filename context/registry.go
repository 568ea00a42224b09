// Package context keeps the registry of storage backends a simnet session
// can run on.
package context

import (
	"fmt"
	"sort"
	"sync"

	"github.com/govm-net/simnet/types"
)

// ContextType names a storage backend.
type ContextType string

const (
	// MemoryContextType keeps all state in process memory.
	MemoryContextType ContextType = "memory"
	// DBContextType keeps state in sqlite through gorm.
	DBContextType ContextType = "db"
)

// ContextConstructor creates a backend from its parameters.
type ContextConstructor func(params map[string]any) (types.BlockchainContext, error)

// Registry manages the available backends.
type Registry interface {
	// Register adds a backend constructor
	Register(ct ContextType, constructor ContextConstructor) error
	// SetDefault sets the backend used when none is named
	SetDefault(ct ContextType) error
	// Get creates a backend of the given type
	Get(ct ContextType, params map[string]any) (types.BlockchainContext, error)
	// DefaultContextType returns the current default backend
	DefaultContextType() ContextType
	// ListRegistered returns the registered backends in name order
	ListRegistered() []ContextType
}

type registry struct {
	mu        sync.RWMutex
	contexts  map[ContextType]ContextConstructor
	defaultCt ContextType
}

var defaultRegistry Registry = NewRegistry()

// NewRegistry returns an empty registry whose default is the memory backend.
func NewRegistry() Registry {
	return &registry{
		contexts:  make(map[ContextType]ContextConstructor),
		defaultCt: MemoryContextType,
	}
}

// GetRegistry returns the process-wide registry the backends register with.
func GetRegistry() Registry {
	return defaultRegistry
}

func (r *registry) Register(ct ContextType, constructor ContextConstructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[ct]; exists {
		return fmt.Errorf("context type %s already registered", ct)
	}
	r.contexts[ct] = constructor
	return nil
}

func (r *registry) SetDefault(ct ContextType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.contexts[ct]; !exists {
		return fmt.Errorf("context type %s not registered", ct)
	}
	r.defaultCt = ct
	return nil
}

func (r *registry) Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	r.mu.RLock()
	if ct == "" {
		ct = r.defaultCt
	}
	constructor, exists := r.contexts[ct]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("context type %s not found", ct)
	}
	ctx, err := constructor(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s context: %w", ct, err)
	}
	return ctx, nil
}

func (r *registry) DefaultContextType() ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultCt
}

func (r *registry) ListRegistered() []ContextType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]ContextType, 0, len(r.contexts))
	for ct := range r.contexts {
		list = append(list, ct)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}

// Package level functions that delegate to the process-wide registry

func Register(ct ContextType, constructor ContextConstructor) error {
	return GetRegistry().Register(ct, constructor)
}

func SetDefault(ct ContextType) error {
	return GetRegistry().SetDefault(ct)
}

// Get creates a backend; an empty type selects the default.
func Get(ct ContextType, params map[string]any) (types.BlockchainContext, error) {
	return GetRegistry().Get(ct, params)
}

func DefaultContextType() ContextType {
	return GetRegistry().DefaultContextType()
}

func ListRegistered() []ContextType {
	return GetRegistry().ListRegistered()
}
