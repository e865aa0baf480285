package firebase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fmartingr/CookieClickerCloudSave/go/clients/firebase_client"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/rs/zerolog/log"
)

// Name selects this backend in configuration.
const Name = "firebase"

func init() {
	if err := base.RegisterBackend(Name, func(cfg config.Provider) (base.Backend, error) {
		return New(cfg.Firebase)
	}); err != nil {
		panic(err)
	}
}

// Backend stores values as nodes of a Firebase Realtime Database.
type Backend struct {
	client *firebase_client.FirebaseClient
	url    string
}

func New(cfg config.Firebase) (*Backend, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("firebase url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid firebase url %q", cfg.URL)
	}
	return &Backend{
		client: firebase_client.NewFirebaseClient(cfg.URL, cfg.Auth, cfg.Timeout),
		url:    u.Redacted(),
	}, nil
}

func (b *Backend) Connect(ctx context.Context) error {
	if err := b.client.Ping(ctx); err != nil {
		return err
	}
	log.Info().Str("url", b.url).Msg("Connected to Firebase")
	return nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	return b.client.PutValue(ctx, key, value)
}

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return b.client.GetValue(ctx, key)
}

func (b *Backend) Close() error {
	return nil
}
