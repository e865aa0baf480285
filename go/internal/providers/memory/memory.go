package memory

import (
	"context"
	"sync"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
)

// Name selects this backend in configuration.
const Name = "memory"

func init() {
	if err := base.RegisterBackend(Name, func(config.Provider) (base.Backend, error) {
		return New(), nil
	}); err != nil {
		panic(err)
	}
}

// Backend keeps values in process memory. Useful for dry runs and tests.
type Backend struct {
	mu        sync.RWMutex
	values    map[string][]byte
	connected bool
}

func New() *Backend {
	return &Backend{values: make(map[string][]byte)}
}

func (b *Backend) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = true
	return nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected {
		return base.ErrNotConnected
	}
	b.values[key] = append([]byte(nil), value...)
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.connected {
		return nil, false, base.ErrNotConnected
	}
	value, ok := b.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

// Set writes a raw value regardless of connection state.
func (b *Backend) Set(key string, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values[key] = append([]byte(nil), value...)
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	return nil
}
