package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/game"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/localcache"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/localcache/sqlite"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/notify"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/syncer"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	f, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("ccsync exited with error")
		os.Exit(1)
	}
}

// run wires the components and blocks until ctx is canceled. A failed engine
// start keeps the status server up so the failure stays visible, and is
// returned once the process is asked to stop.
func run(ctx context.Context, cfg *config.Config) error {
	clock := clockwork.NewRealClock()

	store, err := sqlite.Open(cfg.Local.DBPath, clock)
	if err != nil {
		return err
	}
	defer store.Close()

	hub := notify.NewHub(notify.DefaultHubConfig(), clock)
	metrics := syncer.NewMemoryMetrics()

	engine, err := syncer.NewEngine(*cfg, syncer.Dependencies{
		Cache:    localcache.New(store, cfg.Sync.LocalKey, cfg.Sync.BackupKey),
		Game:     game.NewFileAdapter(cfg.Game.SavePath),
		Notifier: notify.Multi{notify.LogNotifier{}, hub},
		Clock:    clock,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}
	defer engine.Stop()

	hubCtx, cancelHub := context.WithCancel(ctx)
	defer cancelHub()
	go hub.Start(hubCtx)

	var server *http.Server
	if cfg.Server.Enabled {
		checker := syncer.NewEngineHealthChecker(engine, clock, 3*cfg.Sync.Interval)
		server = setupServer(cfg.Server.Addr, &Status{
			engine:   engine,
			checker:  checker,
			exporter: syncer.NewPrometheusExporter(checker, metrics),
			hub:      hub,
			local:    store,
			localKey: cfg.Sync.LocalKey,
		})

		go func() {
			log.Info().Str("addr", server.Addr).Msg("status server starting")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("status server failed")
			}
		}()
	}

	log.Info().
		Str("provider", cfg.Provider.Name).
		Str("save_path", cfg.Game.SavePath).
		Str("db_path", cfg.Local.DBPath).
		Dur("interval", cfg.Sync.Interval).
		Msg("starting ccsync")

	startErr := engine.Start(ctx)
	if startErr != nil {
		log.Error().Err(startErr).Msg("sync engine failed to start")
		if server == nil {
			return startErr
		}
	}

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	engine.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("status server shutdown failed")
		}
	}

	log.Info().Msg("ccsync shutdown complete")
	return startErr
}
