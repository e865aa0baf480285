package syncer

import (
	"errors"
	"fmt"
)

var (
	// ErrProviderNotReady means the provider failed or timed out during init.
	ErrProviderNotReady = errors.New("provider not ready")
	// ErrConnectionTest means the sentinel round-trip failed.
	ErrConnectionTest = errors.New("provider connection test failed")
	// ErrNotActive is returned by Push outside the Active state.
	ErrNotActive = errors.New("sync engine is not active")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("sync engine already started")
)

// ConfigError reports a provider selection that cannot work.
type ConfigError struct {
	Provider string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error for provider %q: %v", e.Provider, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
