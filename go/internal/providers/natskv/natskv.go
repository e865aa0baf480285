package natskv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Name selects this backend in configuration.
const Name = "nats"

func init() {
	if err := base.RegisterBackend(Name, func(cfg config.Provider) (base.Backend, error) {
		return New(cfg.NATS)
	}); err != nil {
		panic(err)
	}
}

// Backend stores values in a JetStream key-value bucket.
type Backend struct {
	config config.NATS

	mu sync.RWMutex
	nc *nats.Conn
	kv jetstream.KeyValue
}

func New(cfg config.NATS) (*Backend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("nats bucket is required")
	}
	if cfg.Replicas <= 0 {
		cfg.Replicas = 1
	}
	return &Backend{config: cfg}, nil
}

func (b *Backend) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("ccsync"),
		nats.MaxReconnects(b.config.MaxReconnects),
		nats.ReconnectWait(b.config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(b.config.URL, opts...)
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      b.config.Bucket,
		Description: "Cookie Clicker save synchronization",
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    b.config.Replicas,
	})
	if err != nil {
		nc.Close()
		return fmt.Errorf("ensure key-value bucket: %w", err)
	}

	b.mu.Lock()
	b.nc = nc
	b.kv = kv
	b.mu.Unlock()

	log.Info().
		Str("url", nc.ConnectedUrl()).
		Str("bucket", b.config.Bucket).
		Msg("Connected to NATS key-value bucket")
	return nil
}

func (b *Backend) bucket() (jetstream.KeyValue, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.kv == nil {
		return nil, base.ErrNotConnected
	}
	return b.kv, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	kv, err := b.bucket()
	if err != nil {
		return err
	}
	if _, err := kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	kv, err := b.bucket()
	if err != nil {
		return nil, false, err
	}
	entry, err := kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nc == nil {
		return base.ErrNotConnected
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
	b.nc = nil
	b.kv = nil
	return nil
}
