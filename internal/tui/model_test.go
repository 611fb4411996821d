package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/control-theory/venue/internal/booking"
	"github.com/control-theory/venue/internal/identity"
	"github.com/control-theory/venue/internal/lifecycle"
	"github.com/control-theory/venue/internal/window"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "shift+right":
		return tea.KeyMsg{Type: tea.KeyShiftRight}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func newTestModel(t *testing.T, win window.Window, authState identity.State) (*Model, func()) {
	t.Helper()

	auth := identity.NewStatic(identity.StaticConfig{Email: "viewer@example.com"})
	if authState.Authenticated {
		if err := auth.SignIn(context.Background()); err != nil {
			t.Fatalf("SignIn: %v", err)
		}
	} else if authState.Err == nil && !authState.Loading {
		auth.Resolve(context.Background())
	}

	machine := lifecycle.New(win, lifecycle.Config{Tick: time.Hour})
	machine.Start()

	m := NewModel(Deps{
		Auth:      auth,
		Lifecycle: machine,
		Desk:      booking.NewDesk(win),
	})
	m.auth = auth.Current()
	m.status = machine.Status()

	return m, func() {
		machine.Stop()
		auth.Close()
	}
}

func pendingWindow() window.Window {
	now := time.Now()
	return window.Window{Start: now.Add(time.Hour), End: now.Add(3 * time.Hour)}
}

func TestSignInBranchRendersPrompt(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{})
	defer cleanup()

	out := m.View()
	if !strings.Contains(out, "Login Required") {
		t.Fatalf("expected sign-in prompt, got:\n%s", out)
	}
}

func TestPendingBranchShowsCountdownAndRegisterHint(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{Authenticated: true})
	defer cleanup()

	out := m.View()
	if !strings.Contains(out, "Event starts in:") {
		t.Fatalf("expected start countdown, got:\n%s", out)
	}
	if !strings.Contains(out, "r: register") {
		t.Fatalf("expected register hint, got:\n%s", out)
	}
}

func TestRegistrationFlowBooksDefaultSlot(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{Authenticated: true})
	defer cleanup()

	m.Update(key("r"))
	if !m.registration.open {
		t.Fatal("expected registration dialog to open")
	}

	out := m.View()
	if !strings.Contains(out, "Choose your viewing time") {
		t.Fatalf("expected registration dialog, got:\n%s", out)
	}
	if !strings.Contains(out, "Amount: 50") {
		t.Fatalf("expected default 30m quote, got:\n%s", out)
	}

	m.Update(key("enter"))
	if m.registration.booked == nil {
		t.Fatal("expected booking after enter")
	}
	if m.registration.booked.Amount != 50 {
		t.Fatalf("amount = %d, want 50", m.registration.booked.Amount)
	}
	if m.registration.open {
		t.Fatal("dialog must close after booking")
	}
}

func TestRegistrationExtendingSelectionRaisesQuote(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{Authenticated: true})
	defer cleanup()

	m.Update(key("r"))
	m.Update(key("right")) // 30m -> 60m

	out := m.View()
	if !strings.Contains(out, "Amount: 100") {
		t.Fatalf("expected 60m quote of 100, got:\n%s", out)
	}

	m.Update(key("esc"))
	if m.registration.open {
		t.Fatal("esc must close the dialog")
	}
}

func TestRegistrationEndCannotCrossStart(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{Authenticated: true})
	defer cleanup()

	m.Update(key("r"))
	m.Update(key("left")) // already minimal, must stay one slot wide

	sel := m.selection()
	if sel.End.Sub(sel.Start) != 30*time.Minute {
		t.Fatalf("selection = %v, want 30m", sel.End.Sub(sel.Start))
	}
}

func TestLiveBranchShowsEndCountdownAndStats(t *testing.T) {
	now := time.Now()
	win := window.Window{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	m, cleanup := newTestModel(t, win, identity.State{Authenticated: true})
	defer cleanup()

	out := m.View()
	if !strings.Contains(out, "LIVE") {
		t.Fatalf("expected live marker, got:\n%s", out)
	}
	if !strings.Contains(out, "Event ends in:") {
		t.Fatalf("expected end countdown, got:\n%s", out)
	}
}

func TestConcludedBranchRendersTerminalMessage(t *testing.T) {
	now := time.Now()
	win := window.Window{Start: now.Add(-3 * time.Hour), End: now.Add(-time.Hour)}
	m, cleanup := newTestModel(t, win, identity.State{Authenticated: true})
	defer cleanup()

	out := m.View()
	if !strings.Contains(out, "Event Concluded") {
		t.Fatalf("expected concluded message, got:\n%s", out)
	}
}

func TestQuitKey(t *testing.T) {
	m, cleanup := newTestModel(t, pendingWindow(), identity.State{Authenticated: true})
	defer cleanup()

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}
