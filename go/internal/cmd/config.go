package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type flags struct {
	ConfigPath string
	Provider   string
}

func parseFlags(args []string, output io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("ccsync", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.ConfigPath, "config", "ccsync.yaml", "path to the YAML config file")
	fs.StringVar(&f.Provider, "provider", "", fmt.Sprintf("storage provider, overrides the config file (%s)", strings.Join(providers.Names(), ", ")))
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func loadConfig(f flags) (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if f.Provider != "" {
		cfg.Provider.Name = strings.ToLower(strings.TrimSpace(f.Provider))
	}
	return cfg, nil
}

func setupLogging(cfg config.Log) {
	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
