package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/game"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/localcache"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/notify"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// User-facing messages.
const (
	msgNoProvider       = "Failed to start: Provider not specified."
	msgUnknownProvider  = "Failed to start: Provider %s does not exist."
	msgCheckProvider    = "Failed to start: Check your provider configuration."
	msgProviderNotReady = "Failed to start: Provider %s is not ready."
	msgSynced           = "Save game synced"
)

// Dependencies are the collaborators an Engine drives. Open, Clock, Notifier
// and Metrics fall back to production defaults when nil.
type Dependencies struct {
	Open     providers.Opener
	Cache    *localcache.Cache
	Game     game.Adapter
	Notifier notify.Notifier
	Clock    Clock
	Metrics  MetricsCollector
}

// Engine owns the synchronization state of one game save. It runs the startup
// reconciliation once and then pushes the live save on every scheduler tick.
type Engine struct {
	providerConfig config.Provider
	remoteKey      string
	readyTimeout   time.Duration

	open     providers.Opener
	cache    *localcache.Cache
	game     game.Adapter
	notifier notify.Notifier
	clock    Clock
	metrics  MetricsCollector

	scheduler  *Scheduler
	instanceID string

	// opMu serializes startup and pushes.
	opMu sync.Mutex

	mu            sync.RWMutex
	state         State
	provider      base.Provider
	providerReady bool
	lastLocal     *models.SaveRecord
	lastSyncAt    time.Time
	lastError     string
}

// Snapshot is a read-only view of the engine.
type Snapshot struct {
	InstanceID      string
	State           State
	Provider        string
	ProviderReady   bool
	SchedulerActive bool
	LastLocal       *models.SaveRecord
	LastSyncAt      time.Time
	LastError       string
}

func NewEngine(cfg config.Config, deps Dependencies) (*Engine, error) {
	if deps.Cache == nil {
		return nil, fmt.Errorf("local cache is required")
	}
	if deps.Game == nil {
		return nil, fmt.Errorf("game adapter is required")
	}
	if cfg.Sync.Interval <= 0 {
		return nil, fmt.Errorf("sync interval must be positive, got %s", cfg.Sync.Interval)
	}
	if deps.Open == nil {
		deps.Open = providers.Open
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{}
	}
	if deps.Metrics == nil {
		deps.Metrics = &NoOpMetricsCollector{}
	}

	readyTimeout := cfg.Provider.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = config.Default().Provider.ReadyTimeout
	}

	e := &Engine{
		providerConfig: cfg.Provider,
		remoteKey:      cfg.Sync.RemoteKey,
		readyTimeout:   readyTimeout,
		open:           deps.Open,
		cache:          deps.Cache,
		game:           deps.Game,
		notifier:       deps.Notifier,
		clock:          deps.Clock,
		metrics:        deps.Metrics,
		instanceID:     uuid.New().String()[:8],
		state:          StateUninitialized,
	}
	e.scheduler = NewScheduler(deps.Clock, cfg.Sync.Interval, e.tick)
	return e, nil
}

// Start runs the startup sequence: provider lookup, readiness, connection test,
// reconciliation, then periodic sync. Each step starts only after the previous
// one completed. Errors are terminal for this engine.
func (e *Engine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if state := e.State(); state != StateUninitialized {
		return fmt.Errorf("%w (state %s)", ErrAlreadyStarted, state)
	}

	name := e.providerConfig.Name
	provider, err := e.open(e.providerConfig, e.remoteKey)
	if err != nil {
		return e.failConfig(name, err)
	}

	e.mu.Lock()
	e.provider = provider
	e.mu.Unlock()
	e.setState(StateAwaitingProvider)

	log.Info().
		Str("instance_id", e.instanceID).
		Str("provider", name).
		Dur("ready_timeout", e.readyTimeout).
		Msg("Waiting for provider")

	if err := e.awaitReady(ctx, provider.Init(ctx)); err != nil {
		log.Error().Err(err).Str("provider", name).Msg("Provider did not become ready")
		e.fail(fmt.Sprintf(msgProviderNotReady, name), err)
		e.closeProvider()
		return fmt.Errorf("%w: %w", ErrProviderNotReady, err)
	}

	e.mu.Lock()
	e.providerReady = true
	e.mu.Unlock()
	e.setState(StateTestingProvider)

	if !provider.TestConnection(ctx) {
		e.fail(msgCheckProvider, ErrConnectionTest)
		e.closeProvider()
		return ErrConnectionTest
	}

	e.setState(StateReconciling)
	e.reconcile(ctx, provider)

	e.setState(StateActive)
	e.scheduler.Start(ctx)
	return nil
}

func (e *Engine) failConfig(name string, err error) error {
	var message string
	switch {
	case errors.Is(err, providers.ErrNoProvider):
		message = msgNoProvider
	case errors.Is(err, providers.ErrUnknownProvider):
		message = fmt.Sprintf(msgUnknownProvider, name)
	default:
		message = msgCheckProvider
	}
	log.Error().Err(err).Str("provider", name).Msg("Invalid provider configuration")
	e.fail(message, err)
	return &ConfigError{Provider: name, Err: err}
}

func (e *Engine) fail(message string, err error) {
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()
	e.setState(StateFailed)
	e.notifier.Notify(message)
}

func (e *Engine) awaitReady(ctx context.Context, ready *base.Readiness) error {
	timer := e.clock.NewTimer(e.readyTimeout)
	defer stopAndDrainTimer(timer)

	select {
	case <-ready.Done():
		return ready.Err()
	case <-timer.Chan():
		return fmt.Errorf("no readiness signal after %s", e.readyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// reconcile runs once at startup. Failures are logged and abandon the
// reconciliation; they never stop the engine from going active.
func (e *Engine) reconcile(ctx context.Context, provider base.Provider) {
	local := e.cache.ReadLastSynced(ctx)
	e.setLastLocal(local)

	remote, err := provider.Load(ctx)
	if err != nil {
		e.recordError(err)
		log.Error().Err(err).Msg("Failed to load remote save, skipping reconciliation")
		return
	}

	decision := Decide(local, remote)
	logger := log.Info().
		Str("instance_id", e.instanceID).
		Str("decision", decision.String())
	if local != nil {
		logger = logger.Int64("local_time", local.Timestamp)
	}
	if remote != nil {
		logger = logger.Int64("remote_time", remote.Timestamp)
	}
	logger.Msg("Reconciling save")

	switch decision {
	case DecisionLoadRemote:
		err = e.loadRemote(ctx, *remote)
	case DecisionPushLocal:
		err = e.pushLocal(ctx, provider, *local)
	case DecisionAdoptRemote:
		err = e.adoptRemote(ctx, *remote)
	case DecisionRepublishLocal:
		err = e.saveFresh(ctx, provider, local.Payload)
	case DecisionSeed:
		err = e.seed(ctx, provider)
	}

	e.metrics.RecordReconcile(decision, err == nil)
	if err != nil {
		e.recordError(err)
		log.Error().Err(err).Str("decision", decision.String()).Msg("Reconciliation abandoned")
	}
}

func (e *Engine) loadRemote(ctx context.Context, remote models.SaveRecord) error {
	if err := e.game.LoadSave(remote.Payload); err != nil {
		return fmt.Errorf("load remote save into game: %w", err)
	}
	if err := e.cache.WriteLastSynced(ctx, remote); err != nil {
		return err
	}
	e.setSynced(remote)
	log.Info().Str("fingerprint", remote.FingerprintHex()).Msg("Loaded newer remote save")
	return nil
}

func (e *Engine) pushLocal(ctx context.Context, provider base.Provider, local models.SaveRecord) error {
	if err := provider.Save(ctx, local); err != nil {
		return err
	}
	e.setSynced(local)
	log.Info().Str("fingerprint", local.FingerprintHex()).Msg("Pushed local save to remote")
	return nil
}

func (e *Engine) adoptRemote(ctx context.Context, remote models.SaveRecord) error {
	if err := e.backupLive(ctx); err != nil {
		return err
	}
	return e.loadRemote(ctx, remote)
}

func (e *Engine) seed(ctx context.Context, provider base.Provider) error {
	live, err := e.game.CurrentSave()
	if err != nil {
		return fmt.Errorf("read live save: %w", err)
	}
	if err := e.cache.BackupCurrent(ctx, live); err != nil {
		return err
	}
	return e.saveFresh(ctx, provider, live)
}

// backupLive copies the live save aside before it is overwritten. A game with
// no save yet has nothing to lose.
func (e *Engine) backupLive(ctx context.Context) error {
	live, err := e.game.CurrentSave()
	if errors.Is(err, game.ErrNoSave) {
		log.Info().Msg("No live save to back up")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read live save: %w", err)
	}
	return e.cache.BackupCurrent(ctx, live)
}

// saveFresh pushes payload under a new timestamp and records it locally once
// the remote acknowledged it.
func (e *Engine) saveFresh(ctx context.Context, provider base.Provider, payload string) error {
	record := models.NewSaveRecord(payload, e.nextTimestamp())
	if err := provider.Save(ctx, record); err != nil {
		return err
	}
	if err := e.cache.WriteLastSynced(ctx, record); err != nil {
		return err
	}
	e.setSynced(record)
	return nil
}

// Push sends the live save to the remote. It only runs while the engine is
// active; failures are not retried until the next call.
func (e *Engine) Push(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if e.State() != StateActive {
		return ErrNotActive
	}

	e.mu.RLock()
	provider := e.provider
	e.mu.RUnlock()

	start := e.clock.Now()
	err := e.push(ctx, provider)
	e.metrics.RecordPush(err == nil, e.clock.Now().Sub(start))
	if err != nil {
		e.recordError(err)
		return err
	}

	e.notifier.QuickNotify(msgSynced)
	return nil
}

func (e *Engine) push(ctx context.Context, provider base.Provider) error {
	live, err := e.game.CurrentSave()
	if err != nil {
		return fmt.Errorf("read live save: %w", err)
	}
	if err := e.saveFresh(ctx, provider, live); err != nil {
		return err
	}
	return nil
}

func (e *Engine) tick(ctx context.Context) {
	if err := e.Push(ctx); err != nil {
		log.Error().Err(err).Str("instance_id", e.instanceID).Msg("Periodic sync failed")
		return
	}
	log.Debug().Str("instance_id", e.instanceID).Msg("Periodic sync completed")
}

// Stop halts periodic sync and releases the provider. A Start in progress
// finishes first, so the ticker it starts is the one stopped here.
func (e *Engine) Stop() {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.scheduler.Stop()
	if e.State() == StateActive {
		e.setState(StateStopped)
	}
	e.closeProvider()
}

func (e *Engine) closeProvider() {
	e.mu.Lock()
	provider := e.provider
	e.provider = nil
	e.providerReady = false
	e.mu.Unlock()

	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil {
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("Failed to close provider")
	}
}

// nextTimestamp returns the current time in epoch milliseconds, bumped past
// the last synced record so consecutive pushes never share a timestamp.
func (e *Engine) nextTimestamp() int64 {
	now := e.clock.Now().UnixMilli()
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.lastLocal != nil && now <= e.lastLocal.Timestamp {
		return e.lastLocal.Timestamp + 1
	}
	return now
}

func (e *Engine) setState(state State) {
	e.mu.Lock()
	prev := e.state
	e.state = state
	e.mu.Unlock()

	e.metrics.RecordStateChange(state)
	log.Debug().
		Str("instance_id", e.instanceID).
		Str("from", prev.String()).
		Str("to", state.String()).
		Msg("Sync engine state changed")
}

func (e *Engine) setLastLocal(record *models.SaveRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastLocal = record
}

func (e *Engine) setSynced(record models.SaveRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastLocal = &record
	e.lastSyncAt = e.clock.Now()
	e.lastError = ""
}

func (e *Engine) recordError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastError = err.Error()
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Snapshot returns a copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		InstanceID:      e.instanceID,
		State:           e.state,
		Provider:        e.providerConfig.Name,
		ProviderReady:   e.providerReady,
		SchedulerActive: e.scheduler.Active(),
		LastSyncAt:      e.lastSyncAt,
		LastError:       e.lastError,
	}
	if e.lastLocal != nil {
		rec := *e.lastLocal
		snap.LastLocal = &rec
	}
	return snap
}
