// Package booking prices and validates viewing-time selections against an
// event window. Selections snap to a 30-minute grid anchored at the window
// start; pricing is per started slot.
package booking

import (
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/window"
)

var (
	ErrEndNotAfterStart = errors.New("booking: end time must be after start time")
	ErrTooShort         = errors.New("booking: selection must be at least one slot long")
	ErrOffGrid          = errors.New("booking: selection must land on the slot grid")
)

// Config sets the slot length and unit price. Zero values take the defaults
// (30-minute slots, 50 per slot).
type Config struct {
	SlotMinutes int
	UnitPrice   int
}

// Desk computes slots, quotes and validation for one event window.
type Desk struct {
	win       window.Window
	slotLen   time.Duration
	unitPrice int
}

// Selection is one candidate viewing range.
type Selection struct {
	Start time.Time
	End   time.Time
}

// Quote is a priced, validated selection.
type Quote struct {
	Selection       Selection
	DurationMinutes int
	Amount          int
}

// NewDesk creates a booking desk for win.
func NewDesk(win window.Window, conf ...Config) *Desk {
	slotMinutes := model.DefaultSlotMinutes
	unitPrice := model.DefaultUnitPrice
	if len(conf) > 0 {
		if conf[0].SlotMinutes > 0 {
			slotMinutes = conf[0].SlotMinutes
		}
		if conf[0].UnitPrice > 0 {
			unitPrice = conf[0].UnitPrice
		}
	}
	return &Desk{
		win:       win,
		slotLen:   time.Duration(slotMinutes) * time.Minute,
		unitPrice: unitPrice,
	}
}

// Slots returns the grid of selectable boundary times, from the window start
// to its end inclusive.
func (d *Desk) Slots() []time.Time {
	var slots []time.Time
	for t := d.win.Start; !t.After(d.win.End); t = t.Add(d.slotLen) {
		slots = append(slots, t)
	}
	return slots
}

// DefaultSelection is the initial offer: the first slot of the event.
func (d *Desk) DefaultSelection() Selection {
	return Selection{Start: d.win.Start, End: d.win.Start.Add(d.slotLen)}
}

// Validate checks a selection against the grid.
func (d *Desk) Validate(sel Selection) error {
	if !sel.End.After(sel.Start) {
		return ErrEndNotAfterStart
	}
	if sel.End.Sub(sel.Start) < d.slotLen {
		return ErrTooShort
	}
	if !d.onGrid(sel.Start) || !d.onGrid(sel.End) {
		return ErrOffGrid
	}
	return nil
}

func (d *Desk) onGrid(t time.Time) bool {
	if t.Before(d.win.Start) || t.After(d.win.End) {
		return false
	}
	return t.Sub(d.win.Start)%d.slotLen == 0
}

// Price quotes a selection without validating it. Partial slots are charged
// as whole slots.
func (d *Desk) Price(sel Selection) Quote {
	minutes := int(math.Round(sel.End.Sub(sel.Start).Minutes()))
	slots := int(math.Ceil(float64(minutes) / d.slotLen.Minutes()))
	return Quote{
		Selection:       sel,
		DurationMinutes: minutes,
		Amount:          slots * d.unitPrice,
	}
}

// Register validates and prices a selection, then hands the quote to the
// payment callback. The callback stands in for an external payment gateway.
func (d *Desk) Register(sel Selection, pay func(Quote) error) (Quote, error) {
	if err := d.Validate(sel); err != nil {
		return Quote{}, err
	}
	q := d.Price(sel)
	log.WithFields(log.Fields{
		"start":   q.Selection.Start,
		"end":     q.Selection.End,
		"minutes": q.DurationMinutes,
		"amount":  q.Amount,
	}).Info("registering viewing selection")
	if pay != nil {
		if err := pay(q); err != nil {
			return Quote{}, fmt.Errorf("payment failed: %w", err)
		}
	}
	return q, nil
}

// FormatDuration renders minutes as "1h 30m" or "45m".
func FormatDuration(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	if hours > 0 {
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dm", mins)
}
