package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthyAfterStart(t *testing.T) {
	h := newHarness(t)
	h.seedLocal(t, models.NewSaveRecord("A", 300))
	h.seedRemote(models.NewSaveRecord("A", 300))
	engine := h.build(t)
	require.NoError(t, engine.Start(context.Background()))

	checker := NewEngineHealthChecker(engine, h.clock, 5*time.Minute)
	status := checker.Check(context.Background())

	assert.True(t, status.Healthy)
	assert.Equal(t, StateActive, status.State)
	assert.True(t, status.ProviderReady)
	assert.True(t, status.SchedulerActive)
	assert.Equal(t, int64(300), status.LastTimestamp)
	assert.Equal(t, models.NewSaveRecord("A", 300).FingerprintHex(), status.LastFingerprint)
	assert.Empty(t, status.Errors)
}

func TestUnhealthyWhenFailed(t *testing.T) {
	h := newHarness(t)
	h.provider.testOK = false
	engine := h.build(t)
	require.Error(t, engine.Start(context.Background()))

	checker := NewEngineHealthChecker(engine, h.clock, time.Minute)

	rec := httptest.NewRecorder()
	checker.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["healthy"])
	assert.Equal(t, "failed", body["state"])
}

func TestUnhealthyWhenSyncIsStale(t *testing.T) {
	h := newHarness(t)
	engine := h.build(t)
	require.NoError(t, engine.Start(context.Background()))

	// Pushes start failing, so the last successful sync ages.
	h.game.setLive("", errors.New("game crashed"))
	h.clock.Advance(10 * time.Minute)

	status := NewEngineHealthChecker(engine, h.clock, 5*time.Minute).Check(context.Background())
	assert.False(t, status.Healthy)
	assert.NotEmpty(t, status.Errors)
}

func TestPrometheusExport(t *testing.T) {
	h := newHarness(t)
	engine := h.build(t)
	require.NoError(t, engine.Start(context.Background()))
	require.NoError(t, engine.Push(context.Background()))

	exporter := NewPrometheusExporter(NewEngineHealthChecker(engine, h.clock, time.Minute), h.metrics)
	out := exporter.Export(context.Background())

	assert.Contains(t, out, "ccsync_healthy 1")
	assert.Contains(t, out, "ccsync_scheduler_active 1")
	assert.Contains(t, out, `ccsync_pushes_total{status="success"} 1`)
	assert.Contains(t, out, `ccsync_reconciles_total{decision="seed"} 1`)
	assert.Contains(t, out, `ccsync_reconciles_total{decision="load_remote"} 0`)

	bare := NewPrometheusExporter(NewEngineHealthChecker(engine, h.clock, time.Minute), nil).Export(context.Background())
	assert.NotContains(t, bare, "ccsync_pushes_total")
}
