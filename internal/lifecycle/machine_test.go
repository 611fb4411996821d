package lifecycle

import (
	"sync"
	"testing"
	"time"

	"github.com/control-theory/venue/internal/window"
)

// fakeClock is a mutable clock safe for concurrent reads from the tick loop.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func testWindow() window.Window {
	start := time.Date(2025, 7, 21, 21, 0, 0, 0, time.UTC)
	return window.Window{Start: start, End: start.Add(2 * time.Hour)}
}

func TestInitialStatus(t *testing.T) {
	w := testWindow()

	cases := []struct {
		name string
		now  time.Time
		want window.Status
	}{
		{"before start", w.Start.Add(-10 * time.Minute), window.StatusPending},
		{"during event", w.Start.Add(time.Hour), window.StatusLive},
		{"after end", w.End.Add(time.Second), window.StatusConcluded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clock := &fakeClock{now: tc.now}
			m := New(w, Config{Tick: time.Hour, Clock: clock.Now})
			m.Start()
			defer m.Stop()

			if got := m.Status(); got != tc.want {
				t.Errorf("initial status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestTickTransitions(t *testing.T) {
	w := testWindow()
	clock := &fakeClock{now: w.Start.Add(-50 * time.Millisecond)}
	m := New(w, Config{Tick: 5 * time.Millisecond, Clock: clock.Now})
	m.Start()
	defer m.Stop()

	if got := m.Status(); got != window.StatusPending {
		t.Fatalf("initial status = %s, want pending", got)
	}

	clock.Set(w.Start.Add(time.Minute))
	waitForUpdate(t, m, window.StatusLive)

	clock.Set(w.End.Add(time.Minute))
	waitForUpdate(t, m, window.StatusConcluded)
}

func TestConcludeIsDirectAndTerminal(t *testing.T) {
	w := testWindow()
	clock := &fakeClock{now: w.Start.Add(time.Minute)}
	// Huge tick: the transition must come from Conclude, not the poll.
	m := New(w, Config{Tick: time.Hour, Clock: clock.Now})
	m.Start()
	defer m.Stop()

	if got := m.Status(); got != window.StatusLive {
		t.Fatalf("initial status = %s, want live", got)
	}

	m.Conclude()
	if got := m.Status(); got != window.StatusConcluded {
		t.Fatalf("status after Conclude = %s, want concluded", got)
	}

	// Terminal: a second request changes nothing and sends no update.
	m.Conclude()
	if got := m.Status(); got != window.StatusConcluded {
		t.Fatalf("status after second Conclude = %s", got)
	}
}

func TestNeverMovesBackwards(t *testing.T) {
	w := testWindow()
	clock := &fakeClock{now: w.End.Add(time.Minute)}
	m := New(w, Config{Tick: 5 * time.Millisecond, Clock: clock.Now})
	m.Start()
	defer m.Stop()

	if got := m.Status(); got != window.StatusConcluded {
		t.Fatalf("initial status = %s, want concluded", got)
	}

	// Clock skewing backwards must not resurrect the event.
	clock.Set(w.Start.Add(time.Minute))
	time.Sleep(30 * time.Millisecond)
	if got := m.Status(); got != window.StatusConcluded {
		t.Errorf("status after clock skew = %s, want concluded", got)
	}
}

func TestConcludeAfterStopIsInert(t *testing.T) {
	w := testWindow()
	clock := &fakeClock{now: w.Start.Add(time.Hour)}
	m := New(w, Config{Tick: time.Hour, Clock: clock.Now})
	m.Start()
	m.Stop()

	// The updates channel is closed; a late conclude must not send on it.
	m.Conclude()

	if got := m.Status(); got != window.StatusLive {
		t.Errorf("status after stopped conclude = %s, want live", got)
	}
	if _, ok := <-m.Updates(); ok {
		t.Error("updates channel delivered after Stop")
	}
}

func TestConcludeRacingStopDoesNotPanic(t *testing.T) {
	w := testWindow()
	for i := 0; i < 50; i++ {
		clock := &fakeClock{now: w.Start.Add(time.Hour)}
		m := New(w, Config{Tick: time.Hour, Clock: clock.Now})
		m.Start()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.Conclude()
		}()
		go func() {
			defer wg.Done()
			m.Stop()
		}()
		wg.Wait()
	}
}

func waitForUpdate(t *testing.T, m *Machine, want window.Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case got, ok := <-m.Updates():
			if !ok {
				t.Fatalf("updates channel closed while waiting for %s", want)
			}
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s (current %s)", want, m.Status())
		}
	}
}
