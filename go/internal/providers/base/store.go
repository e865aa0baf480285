package base

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CheckKey is reserved for the connection test sentinel.
const CheckKey = "_check"

// Store implements Provider over a Backend, storing records under one key.
type Store struct {
	name      string
	backend   Backend
	remoteKey string

	initOnce  sync.Once
	readiness *Readiness

	mu     sync.Mutex
	closed bool
}

func NewStore(name string, backend Backend, remoteKey string) *Store {
	return &Store{
		name:      name,
		backend:   backend,
		remoteKey: remoteKey,
	}
}

func (s *Store) Name() string {
	return s.name
}

// Backend exposes the underlying key-value backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Init connects the backend on its own goroutine. Repeated calls return the
// same Readiness. A connection that completes after Close is closed again.
func (s *Store) Init(ctx context.Context) *Readiness {
	s.initOnce.Do(func() {
		s.readiness = NewReadiness()
		go func() {
			err := s.backend.Connect(ctx)
			if err == nil {
				err = s.discardIfClosed()
			}
			if err != nil {
				err = &ProviderError{Op: "init", Provider: s.name, Err: err}
			}
			s.readiness.Resolve(err)
		}()
	})
	return s.readiness
}

func (s *Store) discardIfClosed() error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()

	if !closed {
		return nil
	}
	if err := s.backend.Close(); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Str("provider", s.name).Msg("Failed to close late connection")
	}
	log.Info().Str("provider", s.name).Msg("Closed connection established after shutdown")
	return ErrClosed
}

func (s *Store) TestConnection(ctx context.Context) bool {
	sentinel := uuid.NewString()
	data, err := json.Marshal(sentinel)
	if err != nil {
		log.Error().Err(err).Str("provider", s.name).Msg("Failed to encode connection test sentinel")
		return false
	}

	if err := s.backend.Put(ctx, CheckKey, data); err != nil {
		log.Error().Err(err).Str("provider", s.name).Msg("Connection test write failed")
		return false
	}

	raw, found, err := s.backend.Get(ctx, CheckKey)
	if err != nil {
		log.Error().Err(err).Str("provider", s.name).Msg("Connection test read failed")
		return false
	}
	if !found {
		log.Error().Str("provider", s.name).Msg("Connection test sentinel was not stored")
		return false
	}

	var got string
	if err := json.Unmarshal(raw, &got); err != nil || got != sentinel {
		log.Error().Str("provider", s.name).Msg("Connection test sentinel did not round-trip")
		return false
	}
	return true
}

func (s *Store) Save(ctx context.Context, record models.SaveRecord) error {
	if err := record.Validate(); err != nil {
		return &ProviderError{Op: "save", Provider: s.name, Err: err}
	}
	data, err := models.MarshalRecord(record)
	if err != nil {
		return &ProviderError{Op: "save", Provider: s.name, Err: err}
	}
	if err := s.backend.Put(ctx, s.remoteKey, data); err != nil {
		return &ProviderError{Op: "save", Provider: s.name, Err: err}
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (*models.SaveRecord, error) {
	raw, found, err := s.backend.Get(ctx, s.remoteKey)
	if err != nil {
		return nil, &ProviderError{Op: "load", Provider: s.name, Err: err}
	}
	if !found {
		return nil, nil
	}

	record, err := models.UnmarshalRecord(raw)
	if err != nil {
		return nil, &ProviderError{Op: "load", Provider: s.name, Err: fmt.Errorf("%w: %v", ErrMalformedRecord, err)}
	}
	return &record, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.backend.Close(); err != nil && !errors.Is(err, ErrNotConnected) {
		return fmt.Errorf("failed to close %s provider: %w", s.name, err)
	}
	return nil
}
