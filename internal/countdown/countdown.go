// Package countdown drives the end-of-event countdown: a 1s re-evaluation of
// the remaining time that requests the concluded transition directly when it
// hits zero, and fires ending-soon notifications at fixed thresholds.
package countdown

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/notify"
	"github.com/control-theory/venue/internal/window"
)

// NotificationTitle heads every ending-soon notification.
const NotificationTitle = "Event Ending Soon!"

// Concluder receives the direct transition request when the countdown
// reaches zero, without waiting for the next lifecycle poll.
type Concluder interface {
	Conclude()
}

// Clock supplies the current time.
type Clock func() time.Time

// Config holds optional countdown dependencies.
type Config struct {
	Tick  time.Duration
	Clock Clock
}

// End counts down to the event window's end. Thresholds fire at most once
// per countdown instance; the sent set is never reset.
type End struct {
	win      window.Window
	gate     *notify.Gate
	notifier notify.Notifier
	tick     time.Duration
	clock    Clock

	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup

	mu        sync.Mutex
	sent      map[int]struct{}
	remaining time.Duration
}

// NewEnd creates an end countdown for win.
func NewEnd(win window.Window, gate *notify.Gate, notifier notify.Notifier, conf ...Config) *End {
	tick := model.DefaultLifecycleTick
	clock := Clock(time.Now)
	if len(conf) > 0 {
		if conf[0].Tick > 0 {
			tick = conf[0].Tick
		}
		if conf[0].Clock != nil {
			clock = conf[0].Clock
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &End{
		win:      win,
		gate:     gate,
		notifier: notifier,
		tick:     tick,
		clock:    clock,
		ctx:      ctx,
		cancel:   cancel,
		sent:     map[int]struct{}{},
	}
}

// Start requests notification permission once and begins ticking. When the
// countdown reaches zero it calls concluder.Conclude and stops.
func (e *End) Start(concluder Concluder) {
	e.startOnce.Do(func() {
		if e.gate != nil {
			e.gate.Request()
		}
		if e.Evaluate(e.clock()) {
			concluder.Conclude()
			return
		}
		e.wg.Add(1)
		go e.run(concluder)
	})
}

func (e *End) run(concluder Concluder) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			if e.Evaluate(e.clock()) {
				log.Info("end countdown reached zero, concluding event")
				concluder.Conclude()
				return
			}
		}
	}
}

// Evaluate folds one tick: records the remaining time, fires any due
// notifications, and reports whether the countdown has concluded.
func (e *End) Evaluate(now time.Time) bool {
	remaining := e.win.UntilEnd(now)

	e.mu.Lock()
	e.remaining = remaining
	if remaining <= 0 {
		e.mu.Unlock()
		return true
	}
	title, body, key, due := dueNotification(remaining, e.sent)
	if due {
		e.sent[key] = struct{}{}
	}
	e.mu.Unlock()

	if due {
		notify.Send(e.gate, e.notifier, title, body)
	}
	return false
}

// Remaining returns the formatted remaining time as of the last evaluation.
func (e *End) Remaining() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return window.FormatRemaining(e.remaining)
}

// Stop halts the tick loop. A countdown that already concluded needs no Stop
// but tolerates one.
func (e *End) Stop() {
	e.stopOnce.Do(func() {
		e.cancel()
		e.wg.Wait()
	})
}

// dueNotification picks the notification owed at the given remaining time.
// Keys 1..5 are the whole-minute thresholds; 60 and 30 are the second-level
// ones. sent must be checked and updated under the caller's lock.
func dueNotification(remaining time.Duration, sent map[int]struct{}) (title, body string, key int, due bool) {
	seconds := int(remaining / time.Second)
	switch {
	case seconds <= 30 && seconds > 0:
		if _, done := sent[30]; done {
			return "", "", 0, false
		}
		return NotificationTitle, fmt.Sprintf("Event will end in %d seconds.", seconds), 30, true
	case seconds <= 60 && seconds > 30:
		if _, done := sent[60]; done {
			return "", "", 0, false
		}
		return NotificationTitle, "Event will end in 1 minute.", 60, true
	}

	minutes := seconds / 60
	if minutes >= 1 && minutes <= 5 {
		if _, done := sent[minutes]; done {
			return "", "", 0, false
		}
		return NotificationTitle, fmt.Sprintf("Event will end in %d minutes.", minutes), minutes, true
	}
	return "", "", 0, false
}
