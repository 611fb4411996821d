package window

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a gated event at a point in time.
type Status string

const (
	StatusPending   Status = "pending"
	StatusLive      Status = "live"
	StatusConcluded Status = "concluded"
)

// Window bounds when gated content is viewable. Immutable; supplied by
// configuration.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects windows whose end does not come after their start.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("event window end %s is not after start %s", w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// StatusAt derives the lifecycle status purely from the window bounds and the
// given time. Exactly one status holds for any instant: concluded from End
// onward, live within [Start, End), pending before Start.
func (w Window) StatusAt(now time.Time) Status {
	if !now.Before(w.End) {
		return StatusConcluded
	}
	if !now.Before(w.Start) {
		return StatusLive
	}
	return StatusPending
}

// UntilStart returns the time remaining before the event starts. Zero or
// negative means the start has passed.
func (w Window) UntilStart(now time.Time) time.Duration {
	return w.Start.Sub(now)
}

// UntilEnd returns the time remaining before the event concludes.
func (w Window) UntilEnd(now time.Time) time.Duration {
	return w.End.Sub(now)
}

// Duration is the total length of the event window.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// FormatRemaining renders a countdown as "2d 3h 4m 5s", collapsing the
// leading units that would be zero. Non-positive durations render as "".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
