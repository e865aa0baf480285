package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type HealthStatus struct {
	Healthy         bool
	State           State
	Provider        string
	ProviderReady   bool
	SchedulerActive bool
	LastSyncTime    time.Time
	LastFingerprint string
	LastTimestamp   int64
	Errors          []string
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// EngineHealthChecker derives health from an engine snapshot.
type EngineHealthChecker struct {
	engine    *Engine
	clock     Clock
	threshold time.Duration // How long without a successful sync before unhealthy
}

func NewEngineHealthChecker(engine *Engine, clock Clock, threshold time.Duration) *EngineHealthChecker {
	return &EngineHealthChecker{
		engine:    engine,
		clock:     clock,
		threshold: threshold,
	}
}

func (h *EngineHealthChecker) Check(ctx context.Context) HealthStatus {
	snap := h.engine.Snapshot()

	status := HealthStatus{
		Healthy:         true,
		State:           snap.State,
		Provider:        snap.Provider,
		ProviderReady:   snap.ProviderReady,
		SchedulerActive: snap.SchedulerActive,
		LastSyncTime:    snap.LastSyncAt,
		Errors:          []string{},
	}
	if snap.LastLocal != nil {
		status.LastFingerprint = snap.LastLocal.FingerprintHex()
		status.LastTimestamp = snap.LastLocal.Timestamp
	}

	if snap.State != StateActive {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("engine is %s", snap.State))
	}
	if snap.State == StateActive && !snap.SchedulerActive {
		status.Healthy = false
		status.Errors = append(status.Errors, "periodic sync not running")
	}
	if snap.LastError != "" {
		status.Errors = append(status.Errors, snap.LastError)
	}

	if !snap.LastSyncAt.IsZero() {
		sinceLastSync := h.clock.Now().Sub(snap.LastSyncAt)
		if sinceLastSync > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no successful sync for %s", sinceLastSync))
		}
	}

	return status
}

// HTTP handler helper
func (h *EngineHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":          status.Healthy,
		"state":            status.State.String(),
		"provider":         status.Provider,
		"provider_ready":   status.ProviderReady,
		"scheduler_active": status.SchedulerActive,
		"last_sync_time":   status.LastSyncTime,
		"last_fingerprint": status.LastFingerprint,
		"last_timestamp":   status.LastTimestamp,
		"errors":           status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")

	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(response)
}

// Metrics exporter for Prometheus
type PrometheusExporter struct {
	checker HealthChecker
	metrics *MemoryMetrics
}

func NewPrometheusExporter(checker HealthChecker, metrics *MemoryMetrics) *PrometheusExporter {
	return &PrometheusExporter{checker: checker, metrics: metrics}
}

func (e *PrometheusExporter) Export(ctx context.Context) string {
	status := e.checker.Check(ctx)

	var b strings.Builder
	fmt.Fprintf(&b, `# HELP ccsync_healthy Whether the sync engine is healthy
# TYPE ccsync_healthy gauge
ccsync_healthy %d

# HELP ccsync_provider_ready Whether the storage provider is ready
# TYPE ccsync_provider_ready gauge
ccsync_provider_ready %d

# HELP ccsync_scheduler_active Whether periodic sync is running
# TYPE ccsync_scheduler_active gauge
ccsync_scheduler_active %d

# HELP ccsync_last_sync_timestamp Unix timestamp of the last successful sync
# TYPE ccsync_last_sync_timestamp gauge
ccsync_last_sync_timestamp %d
`,
		boolGauge(status.Healthy),
		boolGauge(status.ProviderReady),
		boolGauge(status.SchedulerActive),
		unixOrZero(status.LastSyncTime),
	)

	if e.metrics == nil {
		return b.String()
	}

	snap := e.metrics.Snapshot()
	fmt.Fprintf(&b, `
# HELP ccsync_pushes_total Periodic pushes by outcome
# TYPE ccsync_pushes_total counter
ccsync_pushes_total{status="success"} %d
ccsync_pushes_total{status="failure"} %d

# HELP ccsync_last_push_duration_seconds Duration of the last push
# TYPE ccsync_last_push_duration_seconds gauge
ccsync_last_push_duration_seconds %g

# HELP ccsync_reconcile_errors_total Reconciliations abandoned on error
# TYPE ccsync_reconcile_errors_total counter
ccsync_reconcile_errors_total %d

# HELP ccsync_state_changes_total Engine lifecycle transitions
# TYPE ccsync_state_changes_total counter
ccsync_state_changes_total %d

# HELP ccsync_reconciles_total Startup reconciliations by decision
# TYPE ccsync_reconciles_total counter
`,
		snap.PushesSucceeded,
		snap.PushesFailed,
		snap.LastPushDuration.Seconds(),
		snap.ReconcileErrors,
		snap.StateChanges,
	)
	for _, d := range []Decision{DecisionLoadRemote, DecisionPushLocal, DecisionAdoptRemote, DecisionRepublishLocal, DecisionSeed} {
		fmt.Fprintf(&b, "ccsync_reconciles_total{decision=%q} %d\n", d.String(), snap.Reconciles[d])
	}
	return b.String()
}

func boolGauge(v bool) int {
	if v {
		return 1
	}
	return 0
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
