package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Scheduler runs a task on a single repeating ticker.
type Scheduler struct {
	clock    Clock
	interval time.Duration
	task     func(ctx context.Context)

	mu     sync.Mutex
	ticker clockwork.Ticker
	cancel context.CancelFunc
}

func NewScheduler(clock Clock, interval time.Duration, task func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		clock:    clock,
		interval: interval,
		task:     task,
	}
}

// Start begins ticking at the configured interval. An active ticker is
// stopped first, so at most one is ever live.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.stopLocked()
		log.Debug().Msg("replaced existing sync ticker")
	}

	tickCtx, cancel := context.WithCancel(ctx)
	ticker := s.clock.NewTicker(s.interval)
	s.ticker = ticker
	s.cancel = cancel

	go s.loop(tickCtx, ticker)

	log.Info().Dur("interval", s.interval).Msg("Periodic sync started")
}

// Stop cancels the active ticker. It is a no-op when none is running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.stopLocked()
	log.Info().Msg("Periodic sync stopped")
}

// Active reports whether a ticker is running.
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker != nil
}

func (s *Scheduler) stopLocked() {
	s.cancel()
	s.ticker.Stop()
	select {
	case <-s.ticker.Chan():
	default:
	}
	s.ticker = nil
	s.cancel = nil
}

func (s *Scheduler) loop(ctx context.Context, ticker clockwork.Ticker) {
	defer s.release(ticker)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			// A tick that raced with Stop is dropped.
			if ctx.Err() != nil {
				return
			}
			s.task(ctx)
		}
	}
}

// release clears ticker if it is still the current one. Stop and Start have
// already cleared or replaced it otherwise.
func (s *Scheduler) release(ticker clockwork.Ticker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != ticker {
		return
	}
	s.stopLocked()
	log.Info().Msg("Periodic sync stopped with its context")
}
