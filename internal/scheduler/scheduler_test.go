package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/screensub/platform/internal/region"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSchedulerFiresCycles(t *testing.T) {
	var count atomic.Int32
	s := New(func(context.Context, region.Rect, string) error {
		count.Add(1)
		return nil
	}, nil, time.Second)

	s.Start(5*time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return count.Load() >= 3 })
}

func TestSchedulerNeverOverlapsCycles(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	s := New(func(context.Context, region.Rect, string) error {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond) // several tick periods
		return nil
	}, nil, time.Second)

	s.Start(2*time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent cycles = %d, want 1", got)
	}
}

func TestSchedulerStopWaitsForInFlightCycle(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	s := New(func(context.Context, region.Rect, string) error {
		close(started)
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return nil
	}, nil, time.Second)

	s.Start(time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	<-started
	s.Stop()

	if !finished.Load() {
		t.Error("Stop returned before the in-flight cycle completed")
	}
	if s.IsRunning() {
		t.Error("IsRunning should be false after Stop")
	}
}

func TestSchedulerStopPreventsNewCycles(t *testing.T) {
	var count atomic.Int32
	s := New(func(context.Context, region.Rect, string) error {
		count.Add(1)
		return nil
	}, nil, time.Second)

	s.Start(5*time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	waitFor(t, time.Second, func() bool { return count.Load() >= 1 })
	s.Stop()

	after := count.Load()
	time.Sleep(30 * time.Millisecond)
	if got := count.Load(); got != after {
		t.Errorf("cycles fired after Stop: %d -> %d", after, got)
	}
}

func TestSchedulerStopTimeoutAbandonsCycle(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	s := New(func(context.Context, region.Rect, string) error {
		close(started)
		<-release
		return nil
	}, nil, 10*time.Millisecond)

	s.Start(time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	<-started

	stopReturned := make(chan struct{})
	go func() {
		s.Stop()
		close(stopReturned)
	}()

	select {
	case <-stopReturned:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return within the bounded wait")
	}
	close(release)
}

func TestSchedulerRestartIsLastCallWins(t *testing.T) {
	var mu sync.Mutex
	var regions []string
	s := New(func(_ context.Context, r region.Rect, _ string) error {
		mu.Lock()
		regions = append(regions, r.AreaID())
		mu.Unlock()
		return nil
	}, nil, time.Second)

	first := region.Rect{X: 1, Width: 10, Height: 10}
	second := region.Rect{X: 2, Width: 20, Height: 20}

	s.Start(5*time.Millisecond, first, "p1")
	s.Start(5*time.Millisecond, second, "p1")
	defer s.Stop()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(regions) >= 3
	})
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	// Cycles fired close to the restart may still carry the first region;
	// everything afterwards must use the replacement.
	last := regions[len(regions)-1]
	if last != second.AreaID() {
		t.Errorf("last cycle used region %s, want %s", last, second.AreaID())
	}
}

func TestSchedulerCycleErrorDoesNotHaltTicks(t *testing.T) {
	var count atomic.Int32
	var reported atomic.Int32
	s := New(func(context.Context, region.Rect, string) error {
		count.Add(1)
		return errors.New("stage blew up")
	}, func(error) { reported.Add(1) }, time.Second)

	s.Start(5*time.Millisecond, region.Rect{Width: 10, Height: 10}, "p1")
	defer s.Stop()

	waitFor(t, time.Second, func() bool { return count.Load() >= 3 })
	if reported.Load() < 3 {
		t.Errorf("error callback fired %d times, want >= 3", reported.Load())
	}
}

func TestSchedulerStopWhenIdleIsNoop(t *testing.T) {
	s := New(func(context.Context, region.Rect, string) error { return nil }, nil, time.Second)

	s.Stop() // must not panic or block
	if s.IsRunning() {
		t.Error("IsRunning on never-started scheduler should be false")
	}
}

func TestSchedulerIsRunning(t *testing.T) {
	s := New(func(context.Context, region.Rect, string) error { return nil }, nil, time.Second)

	if s.IsRunning() {
		t.Error("new scheduler should not be running")
	}
	s.Start(time.Hour, region.Rect{Width: 10, Height: 10}, "p1")
	if !s.IsRunning() {
		t.Error("started scheduler should be running")
	}
	s.Stop()
	if s.IsRunning() {
		t.Error("stopped scheduler should not be running")
	}
}
