package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/window"
)

// Clock supplies the current time. Tests substitute a fake.
type Clock func() time.Time

// Config holds tunable parameters for the lifecycle machine.
type Config struct {
	Tick  time.Duration
	Clock Clock
}

var statusOrder = map[window.Status]int{
	window.StatusPending:   0,
	window.StatusLive:      1,
	window.StatusConcluded: 2,
}

// Machine re-evaluates the event status against the clock on a fixed tick and
// publishes transitions. Concluded is terminal; the status never moves
// backwards even if the clock does.
type Machine struct {
	win   window.Window
	tick  time.Duration
	clock Clock

	mu      sync.Mutex
	status  window.Status
	closed  bool
	updates chan window.Status

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a lifecycle machine for the given window. The initial status is
// computed on Start, not here.
func New(win window.Window, conf ...Config) *Machine {
	tick := model.DefaultLifecycleTick
	clock := time.Now
	if len(conf) > 0 {
		if conf[0].Tick > 0 {
			tick = conf[0].Tick
		}
		if conf[0].Clock != nil {
			clock = conf[0].Clock
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Machine{
		win:     win,
		tick:    tick,
		clock:   clock,
		updates: make(chan window.Status, 4),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start computes the initial status and begins the periodic re-evaluation.
// Safe to call more than once; only the first call has effect.
func (m *Machine) Start() {
	m.startOnce.Do(func() {
		now := m.clock()
		m.mu.Lock()
		m.status = m.win.StatusAt(now)
		initial := m.status
		m.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"status": initial,
			"start":  m.win.Start.Format(time.RFC3339),
			"end":    m.win.End.Format(time.RFC3339),
		}).Info("event lifecycle started")

		if initial == window.StatusConcluded {
			return
		}

		m.wg.Add(1)
		go m.run()
	})
}

// Stop halts re-evaluation and closes the updates channel.
func (m *Machine) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		m.wg.Wait()
		m.mu.Lock()
		m.closed = true
		close(m.updates)
		m.mu.Unlock()
	})
}

// Status returns the current lifecycle status.
func (m *Machine) Status() window.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Window returns the immutable event window driving this machine.
func (m *Machine) Window() window.Window {
	return m.win
}

// Updates delivers status transitions as they happen. Only changes are sent;
// the channel is closed by Stop.
func (m *Machine) Updates() <-chan window.Status {
	return m.updates
}

// Conclude requests the terminal transition directly, without waiting for the
// next tick. Used by the end countdown when it reaches zero.
func (m *Machine) Conclude() {
	m.advance(window.StatusConcluded)
}

func (m *Machine) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if m.advance(m.win.StatusAt(m.clock())) == window.StatusConcluded {
				return
			}
		}
	}
}

// advance moves the status forward to next if that is a forward transition,
// returning the status after the attempt. The send happens under the mutex
// that also guards the close in Stop, so a Conclude racing Stop cannot hit a
// closed channel. Forward-only ordering bounds the sends below the buffer
// size, so the non-blocking send never actually drops.
func (m *Machine) advance(next window.Status) window.Status {
	m.mu.Lock()
	if m.closed || statusOrder[next] <= statusOrder[m.status] {
		cur := m.status
		m.mu.Unlock()
		return cur
	}
	m.status = next
	select {
	case m.updates <- next:
	default:
	}
	m.mu.Unlock()

	logrus.WithField("status", next).Info("event status changed")
	return next
}
