// Package scheduler drives periodic capture cycles with a non-reentrant guard.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/screensub/platform/internal/region"
)

// Cycle states. A tick that lands while a cycle is running is dropped, never
// queued, so cycles cannot pile up behind a slow stage.
const (
	stateIdle uint32 = iota
	stateRunning
)

// DefaultStopTimeout bounds how long Stop waits for an in-flight cycle.
const DefaultStopTimeout = 5 * time.Second

// CycleFunc executes one capture cycle for a region.
type CycleFunc func(ctx context.Context, r region.Rect, profileID string) error

// Scheduler fires cycles at a fixed period. Stop blocks until any in-flight
// cycle completes, bounded by the stop timeout.
type Scheduler struct {
	cycle       CycleFunc
	onError     func(error)
	stopTimeout time.Duration

	mu       sync.Mutex
	active   bool
	loopStop context.CancelFunc
	loopDone chan struct{}

	// cycleState is shared across loop generations so a replaced loop's
	// in-flight cycle still excludes the new loop's ticks.
	cycleState atomic.Uint32
}

// New creates a scheduler around cycle. onError receives cycle failures; a
// failed cycle never halts ticking. A zero stopTimeout uses the default.
func New(cycle CycleFunc, onError func(error), stopTimeout time.Duration) *Scheduler {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Scheduler{
		cycle:       cycle,
		onError:     onError,
		stopTimeout: stopTimeout,
	}
}

// Start begins firing cycles every interval for the region. Calling Start
// while running replaces the previous timer and region, last-call-wins.
func (s *Scheduler) Start(interval time.Duration, r region.Rect, profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		slog.Info("scheduler restarting with new region", "area", r.AreaID(), "interval", interval)
		s.loopStop()
	} else {
		slog.Info("scheduler starting", "area", r.AreaID(), "interval", interval)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.active = true
	s.loopStop = cancel
	s.loopDone = done

	go s.run(loopCtx, interval, r, profileID, done)
}

// Stop halts future ticks and waits for any in-flight cycle, bounded by the
// stop timeout. Past the bound the cycle is abandoned to finish on its own,
// never forcibly killed. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	cancel := s.loopStop
	done := s.loopDone
	s.loopStop = nil
	s.loopDone = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		slog.Info("scheduler stopped")
	case <-time.After(s.stopTimeout):
		slog.Warn("scheduler stop timed out, abandoning in-flight cycle", "timeout", s.stopTimeout)
	}
}

// IsRunning reports whether the scheduler is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, r region.Rect, profileID string, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(r, profileID)
		}
	}
}

// tick runs one guarded cycle. Overlapping ticks are dropped.
func (s *Scheduler) tick(r region.Rect, profileID string) {
	if !s.cycleState.CompareAndSwap(stateIdle, stateRunning) {
		slog.Debug("dropping tick, cycle still running", "area", r.AreaID())
		return
	}
	defer s.cycleState.Store(stateIdle)

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("cycle panicked", "panic", rec)
		}
	}()

	// The cycle gets a fresh context: a replaced or stopped loop abandons
	// its in-flight cycle rather than cancelling mid-stage.
	if err := s.cycle(context.Background(), r, profileID); err != nil {
		slog.Error("cycle failed", "area", r.AreaID(), "error", err)
		if s.onError != nil {
			s.onError(err)
		}
	}
}
