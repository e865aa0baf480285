package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/dbconfig"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Name selects this backend in configuration.
const Name = "postgres"

func init() {
	if err := base.RegisterBackend(Name, func(cfg config.Provider) (base.Backend, error) {
		return New(cfg.Postgres)
	}); err != nil {
		panic(err)
	}
}

// Backend stores values in a two-column Postgres table.
type Backend struct {
	config  dbconfig.Config
	queries queries

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

type queries struct {
	createTable string
	upsert      string
	selectValue string
}

func New(cfg dbconfig.Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Backend{
		config:  cfg,
		queries: buildQueries(cfg.Table),
	}, nil
}

// buildQueries interpolates the table name, which dbconfig.Validate restricts
// to a plain identifier.
func buildQueries(table string) queries {
	return queries{
		createTable: fmt.Sprintf(`
            CREATE TABLE IF NOT EXISTS %s (
              key        TEXT PRIMARY KEY,
              value      TEXT NOT NULL,
              updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
            )`, table),
		upsert: fmt.Sprintf(`
            INSERT INTO %s (key, value, updated_at)
            VALUES ($1, $2, now())
            ON CONFLICT (key) DO UPDATE
              SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, table),
		selectValue: fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, table),
	}
}

func (b *Backend) Connect(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, b.config.DSN())
	if err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, b.queries.createTable); err != nil {
		pool.Close()
		return fmt.Errorf("ensure table %s: %w", b.config.Table, err)
	}

	b.mu.Lock()
	b.pool = pool
	b.mu.Unlock()

	log.Info().
		Str("host", b.config.Host).
		Str("database", b.config.Database).
		Str("table", b.config.Table).
		Msg("Connected to Postgres")
	return nil
}

func (b *Backend) conn() (*pgxpool.Pool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.pool == nil {
		return nil, base.ErrNotConnected
	}
	return b.pool, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	pool, err := b.conn()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, b.queries.upsert, key, string(value)); err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	pool, err := b.conn()
	if err != nil {
		return nil, false, err
	}
	var value string
	err = pool.QueryRow(ctx, b.queries.selectValue, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %q: %w", key, err)
	}
	return []byte(value), true, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool == nil {
		return base.ErrNotConnected
	}
	b.pool.Close()
	b.pool = nil
	return nil
}
