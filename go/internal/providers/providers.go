package providers

import (
	"errors"
	"fmt"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"

	// Register the supported backends.
	_ "github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/firebase"
	_ "github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/memory"
	_ "github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/natskv"
	_ "github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/postgres"
)

var (
	ErrNoProvider      = errors.New("provider not specified")
	ErrUnknownProvider = errors.New("provider does not exist")
)

// Opener builds the configured provider. The sync engine takes one so tests can
// substitute fakes.
type Opener func(cfg config.Provider, remoteKey string) (base.Provider, error)

// Open builds the provider named in cfg, storing its record under remoteKey.
func Open(cfg config.Provider, remoteKey string) (base.Provider, error) {
	if cfg.Name == "" {
		return nil, ErrNoProvider
	}
	factory, ok := base.GetFactory(cfg.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Name)
	}
	backend, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("configure %s provider: %w", cfg.Name, err)
	}
	return base.NewStore(cfg.Name, backend, remoteKey), nil
}

// Names lists the supported provider names.
func Names() []string {
	return base.RegisteredNames()
}
