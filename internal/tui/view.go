package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/control-theory/venue/internal/booking"
	"github.com/control-theory/venue/internal/identity"
	"github.com/control-theory/venue/internal/window"
)

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch identity.Gate(m.auth) {
	case identity.BranchLoading:
		body = m.viewLoading()
	case identity.BranchError:
		body = m.viewAuthError()
	case identity.BranchSignIn:
		body = m.viewSignIn()
	case identity.BranchContent:
		body = m.viewEvent()
	}

	header := titleStyle.Render("venue")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m *Model) viewLoading() string {
	return m.spin.View() + mutedStyle.Render(" Loading...")
}

func (m *Model) viewAuthError() string {
	return errorStyle.Render(fmt.Sprintf("Encountering error... %v", m.auth.Err))
}

func (m *Model) viewSignIn() string {
	lines := []string{
		titleStyle.Render("Login Required"),
		"",
		"You need to be signed in to access the event.",
		"",
		helpStyle.Render("s: sign in  q: quit"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewEvent() string {
	switch m.status {
	case window.StatusPending:
		return m.viewPending()
	case window.StatusLive:
		return m.viewLive()
	default:
		return m.viewConcluded()
	}
}

func (m *Model) viewPending() string {
	now := time.Now()
	lines := []string{
		statusPendingStyle.Render("Event starts in: ") + countdownStyle.Render(window.FormatRemaining(m.win.UntilStart(now))),
		mutedStyle.Render("Scheduled " + m.win.Start.Local().Format("Mon Jan 2 15:04") + " to " + m.win.End.Local().Format("15:04")),
		"",
	}

	switch {
	case m.registration.open:
		lines = append(lines, m.viewRegistration())
	case m.registration.booked != nil:
		q := m.registration.booked
		lines = append(lines,
			statusLiveStyle.Render("Registered!"),
			fmt.Sprintf("Viewing %s to %s (%s), paid %d",
				q.Selection.Start.Local().Format("15:04"),
				q.Selection.End.Local().Format("15:04"),
				booking.FormatDuration(q.DurationMinutes),
				q.Amount),
		)
	default:
		lines = append(lines, helpStyle.Render("r: register  q: quit"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewRegistration() string {
	sel := m.selection()
	quote := m.deps.Desk.Price(sel)
	err := m.deps.Desk.Validate(sel)

	var slotCells []string
	for i, slot := range m.registration.slots {
		cell := slot.Local().Format("15:04")
		switch {
		case i == m.registration.startIdx || i == m.registration.endIdx:
			cell = selectedStyle.Render(cell)
		case i > m.registration.startIdx && i < m.registration.endIdx:
			cell = statusLiveStyle.Render(cell)
		default:
			cell = mutedStyle.Render(cell)
		}
		slotCells = append(slotCells, cell)
	}

	lines := []string{
		titleStyle.Render("Choose your viewing time"),
		strings.Join(slotCells, "  "),
		fmt.Sprintf("Duration: %s   Amount: %d", booking.FormatDuration(quote.DurationMinutes), quote.Amount),
	}
	if err != nil {
		lines = append(lines, errorStyle.Render("Invalid selection: end must be at least one slot after start"))
	} else {
		lines = append(lines, helpStyle.Render("enter: pay and register"))
	}
	lines = append(lines, helpStyle.Render("←/→: end  shift+←/→: start  esc: cancel"))
	return strings.Join(lines, "\n")
}

func (m *Model) viewLive() string {
	now := time.Now()
	lines := []string{
		statusLiveStyle.Render("● LIVE"),
		countdownStyle.Render("Event ends in: " + window.FormatRemaining(m.win.UntilEnd(now))),
		"",
		fmt.Sprintf("records %d   batches %d   pending %d", m.stats.Recorded, m.stats.FlushedBatches, m.stats.Pending),
		fmt.Sprintf("play %d   pause %d   rebuffer %.1fs", m.stats.PlayCount, m.stats.PauseCount, m.lastRebuffer.Seconds()),
	}
	if chart := m.viewRebufferChart(); chart != "" {
		lines = append(lines, "", mutedStyle.Render("rebuffer (s/tick)"), chart)
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewRebufferChart() string {
	if len(m.rebufferHistory) == 0 {
		return ""
	}
	width := m.width - 6
	if width < 20 {
		width = 20
	}
	if width > maxRebufferHistory {
		width = maxRebufferHistory
	}

	bc := barchart.New(width, 4,
		barchart.WithBarGap(0),
		barchart.WithBarWidth(1),
		barchart.WithNoAxis(),
	)
	barStyle := lipgloss.NewStyle().Foreground(ColorRed).Background(ColorRed)

	start := 0
	if len(m.rebufferHistory) > width {
		start = len(m.rebufferHistory) - width
	}
	for _, v := range m.rebufferHistory[start:] {
		bc.Push(barchart.BarData{
			Label:  "",
			Values: []barchart.BarValue{{Name: "rebuffer", Value: v, Style: barStyle}},
		})
	}
	bc.Draw()
	return bc.View()
}

func (m *Model) viewConcluded() string {
	lines := []string{
		titleStyle.Render("Event Concluded"),
		mutedStyle.Render("Thank you for watching. This event ended " + m.win.End.Local().Format("Mon Jan 2 15:04") + "."),
		"",
		helpStyle.Render("q: quit"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
