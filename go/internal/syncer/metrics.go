package syncer

import (
	"sync"
	"time"
)

// MetricsCollector defines the interface for collecting sync metrics
type MetricsCollector interface {
	RecordPush(success bool, duration time.Duration)
	RecordReconcile(decision Decision, success bool)
	RecordStateChange(state State)
}

// NoOpMetricsCollector is a no-op implementation for when metrics aren't needed
type NoOpMetricsCollector struct{}

func (n *NoOpMetricsCollector) RecordPush(success bool, duration time.Duration) {}
func (n *NoOpMetricsCollector) RecordReconcile(decision Decision, success bool) {}
func (n *NoOpMetricsCollector) RecordStateChange(state State)                   {}

// MemoryMetrics keeps counters in memory for the status endpoints.
type MemoryMetrics struct {
	mu               sync.Mutex
	pushesSucceeded  uint64
	pushesFailed     uint64
	lastPushDuration time.Duration
	reconciles       map[Decision]uint64
	reconcileErrors  uint64
	stateChanges     uint64
}

func NewMemoryMetrics() *MemoryMetrics {
	return &MemoryMetrics{reconciles: make(map[Decision]uint64)}
}

func (m *MemoryMetrics) RecordPush(success bool, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.pushesSucceeded++
	} else {
		m.pushesFailed++
	}
	m.lastPushDuration = duration
}

func (m *MemoryMetrics) RecordReconcile(decision Decision, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciles[decision]++
	if !success {
		m.reconcileErrors++
	}
}

func (m *MemoryMetrics) RecordStateChange(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateChanges++
}

// MetricsSnapshot is a point-in-time copy of MemoryMetrics.
type MetricsSnapshot struct {
	PushesSucceeded  uint64
	PushesFailed     uint64
	LastPushDuration time.Duration
	Reconciles       map[Decision]uint64
	ReconcileErrors  uint64
	StateChanges     uint64
}

func (m *MemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	reconciles := make(map[Decision]uint64, len(m.reconciles))
	for d, n := range m.reconciles {
		reconciles[d] = n
	}
	return MetricsSnapshot{
		PushesSucceeded:  m.pushesSucceeded,
		PushesFailed:     m.pushesFailed,
		LastPushDuration: m.lastPushDuration,
		Reconciles:       reconciles,
		ReconcileErrors:  m.reconcileErrors,
		StateChanges:     m.stateChanges,
	}
}
