package syncer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fmartingr/CookieClickerCloudSave/go/internal/config"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/game"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/localcache"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/models"
	"github.com/fmartingr/CookieClickerCloudSave/go/internal/providers/base"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

const (
	testLocalKey  = "CCCloud.lastSave"
	testBackupKey = "CCCloud.backupSaveString"
)

// journal records collaborator calls in order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(entry string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, entry)
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.all() {
		if e == entry {
			n++
		}
	}
	return n
}

type fakeProvider struct {
	journal *journal

	mu        sync.Mutex
	remote    *models.SaveRecord
	loadErr   error
	saveErr   error
	testOK    bool
	readiness *base.Readiness
	saves     []models.SaveRecord
	closed    bool
}

func newFakeProvider(j *journal) *fakeProvider {
	return &fakeProvider{journal: j, testOK: true}
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Init(context.Context) *base.Readiness {
	p.journal.add("init")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.readiness == nil {
		return base.Resolved(nil)
	}
	return p.readiness
}

func (p *fakeProvider) TestConnection(context.Context) bool {
	p.journal.add("test")
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.testOK
}

func (p *fakeProvider) Save(_ context.Context, record models.SaveRecord) error {
	p.journal.add("save")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return &base.ProviderError{Op: "save", Provider: "fake", Err: p.saveErr}
	}
	p.saves = append(p.saves, record)
	rec := record
	p.remote = &rec
	return nil
}

func (p *fakeProvider) Load(context.Context) (*models.SaveRecord, error) {
	p.journal.add("load")
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, &base.ProviderError{Op: "load", Provider: "fake", Err: p.loadErr}
	}
	if p.remote == nil {
		return nil, nil
	}
	rec := *p.remote
	return &rec, nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeProvider) savedRecords() []models.SaveRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.SaveRecord(nil), p.saves...)
}

func (p *fakeProvider) setSaveErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saveErr = err
}

type fakeGame struct {
	journal *journal

	mu      sync.Mutex
	live    string
	liveErr error
	loaded  []string
}

func (g *fakeGame) CurrentSave() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.liveErr != nil {
		return "", g.liveErr
	}
	if g.live == "" {
		return "", game.ErrNoSave
	}
	return g.live, nil
}

func (g *fakeGame) LoadSave(payload string) error {
	g.journal.add("game_load")
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loaded = append(g.loaded, payload)
	g.live = payload
	return nil
}

func (g *fakeGame) loads() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.loaded...)
}

func (g *fakeGame) setLive(payload string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.live = payload
	g.liveErr = err
}

// journaledStore tags every write with the slot it hits.
type journaledStore struct {
	*localcache.MemoryStore
	journal *journal
}

func (s *journaledStore) Set(ctx context.Context, key, value string) error {
	switch key {
	case testBackupKey:
		s.journal.add("backup")
	case testLocalKey:
		s.journal.add("write_local")
	}
	return s.MemoryStore.Set(ctx, key, value)
}

type fakeNotifier struct {
	mu     sync.Mutex
	notes  []string
	quicks []string
}

func (n *fakeNotifier) Notify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, message)
}

func (n *fakeNotifier) QuickNotify(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.quicks = append(n.quicks, message)
}

func (n *fakeNotifier) notifications() ([]string, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notes...), append([]string(nil), n.quicks...)
}

type harness struct {
	engine   *Engine
	clock    *clockwork.FakeClock
	provider *fakeProvider
	game     *fakeGame
	cache    *localcache.Cache
	store    *localcache.MemoryStore
	notifier *fakeNotifier
	metrics  *MemoryMetrics
	journal  *journal
}

var testEpoch = time.UnixMilli(1_000_000)

func newHarness(t *testing.T) *harness {
	t.Helper()

	j := &journal{}
	h := &harness{
		clock:    clockwork.NewFakeClockAt(testEpoch),
		provider: newFakeProvider(j),
		game:     &fakeGame{journal: j, live: "LIVE"},
		notifier: &fakeNotifier{},
		metrics:  NewMemoryMetrics(),
		journal:  j,
	}
	h.store = localcache.NewMemoryStore()
	h.cache = localcache.New(&journaledStore{MemoryStore: h.store, journal: j}, testLocalKey, testBackupKey)
	return h
}

func (h *harness) build(t *testing.T, mutate ...func(*config.Config)) *Engine {
	t.Helper()

	cfg := config.Default()
	cfg.Provider.Name = "fake"
	for _, m := range mutate {
		m(&cfg)
	}

	engine, err := NewEngine(cfg, Dependencies{
		Open: func(config.Provider, string) (base.Provider, error) {
			return h.provider, nil
		},
		Cache:    h.cache,
		Game:     h.game,
		Notifier: h.notifier,
		Clock:    h.clock,
		Metrics:  h.metrics,
	})
	require.NoError(t, err)
	h.engine = engine
	t.Cleanup(engine.Stop)
	return engine
}

// seedLocal stores a last-synced record without journaling it.
func (h *harness) seedLocal(t *testing.T, record models.SaveRecord) {
	t.Helper()
	data, err := models.MarshalRecord(record)
	require.NoError(t, err)
	require.NoError(t, h.store.Set(context.Background(), testLocalKey, string(data)))
}

func (h *harness) localRecord() *models.SaveRecord {
	return h.cache.ReadLastSynced(context.Background())
}

func (h *harness) seedRemote(record models.SaveRecord) {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	rec := record
	h.provider.remote = &rec
}
