package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/notify"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/syncer"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// LocalSlot reports when the local record was last written.
type LocalSlot interface {
	UpdatedAt(ctx context.Context, key string) (int64, bool, error)
}

// Status bundles what the status server reports on.
type Status struct {
	engine   *syncer.Engine
	checker  *syncer.EngineHealthChecker
	exporter *syncer.PrometheusExporter
	hub      *notify.Hub
	local    LocalSlot
	localKey string
}

func setupServer(addr string, status *Status) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	mux.Handle("/health", status.checker)
	mux.HandleFunc("/status", status.handleStatus)
	mux.HandleFunc("/metrics", status.handleMetrics)
	mux.Handle("/ws", status.hub)

	// Wrap with CORS
	handler := c.Handler(mux)

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

type statusResponse struct {
	InstanceID      string `json:"instance_id"`
	State           string `json:"state"`
	Provider        string `json:"provider"`
	ProviderReady   bool   `json:"provider_ready"`
	SchedulerActive bool   `json:"scheduler_active"`
	LastTimestamp   int64  `json:"last_timestamp,omitempty"`
	LastFingerprint string `json:"last_fingerprint,omitempty"`
	LastSyncAt      string `json:"last_sync_at,omitempty"`
	LastError       string `json:"last_error,omitempty"`
	LocalUpdatedAt  int64  `json:"local_updated_at,omitempty"`
	Overlays        int    `json:"overlays"`
}

func (s *Status) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()

	resp := statusResponse{
		InstanceID:      snap.InstanceID,
		State:           snap.State.String(),
		Provider:        snap.Provider,
		ProviderReady:   snap.ProviderReady,
		SchedulerActive: snap.SchedulerActive,
		LastError:       snap.LastError,
		Overlays:        s.hub.Count(),
	}
	if snap.LastLocal != nil {
		resp.LastTimestamp = snap.LastLocal.Timestamp
		resp.LastFingerprint = snap.LastLocal.FingerprintHex()
	}
	if !snap.LastSyncAt.IsZero() {
		resp.LastSyncAt = snap.LastSyncAt.UTC().Format(time.RFC3339)
	}
	if s.local != nil {
		updatedAt, ok, err := s.local.UpdatedAt(r.Context(), s.localKey)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read local slot timestamp")
		} else if ok {
			resp.LocalUpdatedAt = updatedAt
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("failed to encode status")
	}
}

func (s *Status) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.Write([]byte(s.exporter.Export(ctx)))
}
