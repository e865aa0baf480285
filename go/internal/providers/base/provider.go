package base

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
)

// Provider is a remote key-value store holding one SaveRecord under a fixed key.
type Provider interface {
	Name() string
	// Init starts connection setup and returns immediately. The returned
	// Readiness resolves exactly once.
	Init(ctx context.Context) *Readiness
	// TestConnection round-trips a sentinel value and reports whether it came
	// back unchanged. It never returns an error; failures read as false.
	TestConnection(ctx context.Context) bool
	// Save unconditionally overwrites the remote record.
	Save(ctx context.Context, record models.SaveRecord) error
	// Load returns the remote record, or nil when none is stored.
	Load(ctx context.Context) (*models.SaveRecord, error)
	Close() error
}

// Backend is the raw key-value surface a provider variant implements. Store
// builds the Provider semantics on top of it.
type Backend interface {
	Connect(ctx context.Context) error
	Put(ctx context.Context, key string, value []byte) error
	// Get returns false when the key holds no value.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Close() error
}

// Factory builds a backend from the provider configuration.
type Factory func(cfg config.Provider) (Backend, error)

var (
	registry   = make(map[string]Factory)
	registryMu sync.RWMutex
)

// RegisterBackend adds a backend factory under a provider name.
// It should be called in each variant's init() function.
func RegisterBackend(name string, factory Factory) error {
	registryMu.Lock()
	defer registryMu.Unlock()
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if _, exists := registry[name]; exists {
		return fmt.Errorf("backend already registered for provider %q", name)
	}
	registry[name] = factory
	return nil
}

// GetFactory retrieves the factory registered for name.
func GetFactory(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, exists := registry[name]
	return factory, exists
}

// RegisteredNames lists provider names in lexical order.
func RegisteredNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
