package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration. It is loaded once at startup and
// treated as read-only afterwards.
type Config struct {
	Provider Provider `yaml:"provider"`
	Sync     Sync     `yaml:"sync"`
	Game     Game     `yaml:"game"`
	Local    Local    `yaml:"local"`
	Server   Server   `yaml:"server"`
	Log      Log      `yaml:"log"`
}

// Provider selects the remote backend and carries its connection parameters.
// Name is deliberately not validated here: a missing or unknown provider is a
// startup failure reported by the sync engine.
type Provider struct {
	Name         string          `yaml:"name" env:"CCSYNC_PROVIDER"`
	ReadyTimeout time.Duration   `yaml:"ready_timeout" env:"CCSYNC_PROVIDER_READY_TIMEOUT"`
	NATS         NATS            `yaml:"nats"`
	Postgres     dbconfig.Config `yaml:"postgres"`
	Firebase     Firebase        `yaml:"firebase"`
}

// NATS configures the JetStream key-value provider.
type NATS struct {
	URL           string        `yaml:"url" env:"NATS_URL"`
	Bucket        string        `yaml:"bucket" env:"CCSYNC_NATS_BUCKET"`
	Replicas      int           `yaml:"replicas" env:"CCSYNC_NATS_REPLICAS"`
	MaxReconnects int           `yaml:"max_reconnects" env:"CCSYNC_NATS_MAX_RECONNECTS"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"CCSYNC_NATS_RECONNECT_WAIT"`
}

// Firebase configures the Realtime Database provider.
type Firebase struct {
	URL     string        `yaml:"url" env:"CCSYNC_FIREBASE_URL"`
	Auth    string        `yaml:"auth" env:"CCSYNC_FIREBASE_AUTH"`
	Timeout time.Duration `yaml:"timeout" env:"CCSYNC_FIREBASE_TIMEOUT"`
}

// Sync holds the keys and cadence of synchronization.
type Sync struct {
	RemoteKey string        `yaml:"remote_key" env:"CCSYNC_REMOTE_KEY"`
	LocalKey  string        `yaml:"local_key" env:"CCSYNC_LOCAL_KEY"`
	BackupKey string        `yaml:"backup_key" env:"CCSYNC_BACKUP_KEY"`
	Interval  time.Duration `yaml:"interval" env:"CCSYNC_INTERVAL"`
}

// Game locates the live save.
type Game struct {
	SavePath string `yaml:"save_path" env:"CCSYNC_SAVE_PATH"`
}

// Local locates the device-scoped persistence slot.
type Local struct {
	DBPath string `yaml:"db_path" env:"CCSYNC_DB_PATH"`
}

// Server configures the status endpoint.
type Server struct {
	Enabled bool   `yaml:"enabled" env:"CCSYNC_SERVER_ENABLED"`
	Addr    string `yaml:"addr" env:"CCSYNC_SERVER_ADDR"`
}

// Log configures zerolog output.
type Log struct {
	Level   string `yaml:"level" env:"CCSYNC_LOG_LEVEL"`
	Console bool   `yaml:"console" env:"CCSYNC_LOG_CONSOLE"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Provider: Provider{
			ReadyTimeout: 30 * time.Second,
			NATS: NATS{
				URL:           "nats://127.0.0.1:4222",
				Bucket:        "ccsync",
				Replicas:      1,
				MaxReconnects: -1,
				ReconnectWait: 2 * time.Second,
			},
			Postgres: dbconfig.Default(),
			Firebase: Firebase{
				Timeout: 30 * time.Second,
			},
		},
		Sync: Sync{
			RemoteKey: "savegame",
			LocalKey:  "CCCloud.lastSave",
			BackupKey: "CCCloud.backupSaveString",
			Interval:  30 * time.Second,
		},
		Game: Game{
			SavePath: "cookieclicker.sav",
		},
		Local: Local{
			DBPath: "ccsync.db",
		},
		Server: Server{
			Enabled: true,
			Addr:    ":8090",
		},
		Log: Log{
			Level:   "info",
			Console: true,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if it
// exists), then environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.Provider.Name = strings.ToLower(strings.TrimSpace(cfg.Provider.Name))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Provider.ReadyTimeout <= 0 {
		return fmt.Errorf("provider ready timeout must be positive, got %s", c.Provider.ReadyTimeout)
	}
	if strings.TrimSpace(c.Sync.RemoteKey) == "" {
		return fmt.Errorf("remote key is required")
	}
	if strings.TrimSpace(c.Sync.LocalKey) == "" {
		return fmt.Errorf("local key is required")
	}
	if strings.TrimSpace(c.Sync.BackupKey) == "" {
		return fmt.Errorf("backup key is required")
	}
	if c.Sync.LocalKey == c.Sync.BackupKey {
		return fmt.Errorf("local key and backup key must differ")
	}
	if strings.TrimSpace(c.Game.SavePath) == "" {
		return fmt.Errorf("game save path is required")
	}
	if strings.TrimSpace(c.Local.DBPath) == "" {
		return fmt.Errorf("local db path is required")
	}
	if c.Server.Enabled && strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address is required when the server is enabled")
	}
	return nil
}
