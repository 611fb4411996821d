// Package tui renders the venue console: the access gate, the event
// lifecycle branches and the live playback telemetry view.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/control-theory/venue/internal/booking"
	"github.com/control-theory/venue/internal/identity"
	"github.com/control-theory/venue/internal/lifecycle"
	"github.com/control-theory/venue/internal/playerbind"
	"github.com/control-theory/venue/internal/profile"
	"github.com/control-theory/venue/internal/telemetry"
	"github.com/control-theory/venue/internal/window"
)

// Deps wires the console to the running engine.
type Deps struct {
	Auth      identity.Authenticator
	Lifecycle *lifecycle.Machine
	Desk      *booking.Desk
	Session   *telemetry.Session
	Binder    *playerbind.Binder
	Profile   *profile.Syncer
}

// registrationState tracks the booking dialog on the pending branch.
type registrationState struct {
	open     bool
	slots    []time.Time
	startIdx int
	endIdx   int
	booked   *booking.Quote
}

// Model is the top-level Bubble Tea model.
type Model struct {
	deps Deps
	win  window.Window

	width  int
	height int

	auth   identity.State
	status window.Status

	registration registrationState

	// rebufferHistory holds per-tick rebuffer deltas for the live chart.
	rebufferHistory []float64
	lastRebuffer    time.Duration
	stats           telemetry.SessionStats

	spin     spinner.Model
	quitting bool
}

type tickMsg time.Time

type authMsg identity.State

type statusMsg window.Status

// maxRebufferHistory bounds the live chart's sliding window.
const maxRebufferHistory = 60

// NewModel creates the console model.
func NewModel(deps Deps) *Model {
	m := &Model{
		deps:   deps,
		win:    deps.Lifecycle.Window(),
		auth:   deps.Auth.Current(),
		status: deps.Lifecycle.Status(),
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(mutedStyle)),
	}
	m.resetRegistration()
	return m
}

func (m *Model) resetRegistration() {
	slots := m.deps.Desk.Slots()
	m.registration = registrationState{
		slots:    slots,
		startIdx: 0,
		endIdx:   1,
	}
	if len(slots) < 2 {
		m.registration.endIdx = 0
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.spin.Tick, m.waitAuth(), m.waitStatus())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitAuth() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.deps.Auth.Updates()
		if !ok {
			return nil
		}
		return authMsg(st)
	}
}

func (m *Model) waitStatus() tea.Cmd {
	return func() tea.Msg {
		st, ok := <-m.deps.Lifecycle.Updates()
		if !ok {
			return nil
		}
		return statusMsg(st)
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.onTick()
		return m, m.tick()

	case authMsg:
		m.auth = identity.State(msg)
		if m.auth.Authenticated && m.auth.User != nil && m.deps.Profile != nil {
			m.deps.Profile.Sync(context.Background(), *m.auth.User)
		}
		return m, m.waitAuth()

	case statusMsg:
		m.status = window.Status(msg)
		return m, m.waitStatus()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *Model) onTick() {
	m.status = m.deps.Lifecycle.Status()
	if m.deps.Session != nil {
		m.stats = m.deps.Session.Snapshot()
	}
	if m.deps.Binder != nil && m.status == window.StatusLive {
		total := m.deps.Binder.TotalRebuffer()
		delta := (total - m.lastRebuffer).Seconds()
		if delta < 0 {
			delta = 0
		}
		m.lastRebuffer = total
		m.rebufferHistory = append(m.rebufferHistory, delta)
		if len(m.rebufferHistory) > maxRebufferHistory {
			m.rebufferHistory = m.rebufferHistory[len(m.rebufferHistory)-maxRebufferHistory:]
		}
	}
}

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	}

	switch identity.Gate(m.auth) {
	case identity.BranchSignIn:
		if msg.String() == "s" {
			auth := m.deps.Auth
			return m, func() tea.Msg {
				_ = auth.SignIn(context.Background())
				return nil
			}
		}
	case identity.BranchContent:
		if m.status == window.StatusPending {
			return m.onPendingKey(msg)
		}
	}
	return m, nil
}

func (m *Model) onPendingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	reg := &m.registration
	if !reg.open {
		if msg.String() == "r" && reg.booked == nil {
			reg.open = true
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		reg.open = false
	case "left":
		if reg.endIdx > reg.startIdx+1 {
			reg.endIdx--
		}
	case "right":
		if reg.endIdx < len(reg.slots)-1 {
			reg.endIdx++
		}
	case "shift+left":
		if reg.startIdx > 0 {
			reg.startIdx--
		}
	case "shift+right":
		if reg.startIdx < reg.endIdx-1 {
			reg.startIdx++
		}
	case "enter":
		sel := m.selection()
		quote, err := m.deps.Desk.Register(sel, nil)
		if err != nil {
			// Selection stays open; the dialog shows why it is invalid.
			return m, nil
		}
		reg.booked = &quote
		reg.open = false
	}
	return m, nil
}

// selection returns the currently highlighted viewing range.
func (m *Model) selection() booking.Selection {
	reg := m.registration
	if len(reg.slots) == 0 {
		return booking.Selection{}
	}
	return booking.Selection{
		Start: reg.slots[reg.startIdx],
		End:   reg.slots[reg.endIdx],
	}
}
