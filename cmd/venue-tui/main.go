package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/control-theory/venue/internal/booking"
	"github.com/control-theory/venue/internal/countdown"
	"github.com/control-theory/venue/internal/identity"
	"github.com/control-theory/venue/internal/lifecycle"
	"github.com/control-theory/venue/internal/notify"
	"github.com/control-theory/venue/internal/player"
	"github.com/control-theory/venue/internal/playerbind"
	"github.com/control-theory/venue/internal/playersource"
	"github.com/control-theory/venue/internal/profile"
	"github.com/control-theory/venue/internal/telemetry"
	"github.com/control-theory/venue/internal/tui"
	"github.com/control-theory/venue/internal/window"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/venue/config.yml)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Venue Console - Event Viewer\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	// The console owns the terminal, keep log output out of it.
	logrus.SetOutput(io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	win := cfg.Window()

	auth := identity.NewStatic(identity.StaticConfig{
		Provider:   identity.DefaultProviderConfig(),
		Email:      cfg.AuthEmail,
		Username:   cfg.AuthUsername,
		AutoSignIn: cfg.AutoSignIn,
	})
	defer auth.Close()

	profileSyncer := profile.NewSyncer(cfg.ProfileEndpoint)

	metrics := telemetry.NewMetrics()
	sink := telemetry.NewHTTPSink(cfg.LogEndpoint)
	session := telemetry.NewSession(sink, metrics, telemetry.BatcherConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	})
	defer session.Close()

	remote := player.NewRemote(player.RemoteConfig{
		QualityLevels: cfg.QualityLevels,
		NetworkInfo:   cfg.NetworkInfo,
	})
	binder := playerbind.NewBinder(session, remote.Surface(), playerbind.BinderConfig{Metrics: metrics})

	machine := lifecycle.New(win)
	machine.Start()
	defer machine.Stop()

	desk := booking.NewDesk(win, booking.Config{
		SlotMinutes: cfg.SlotMinutes,
		UnitPrice:   cfg.UnitPrice,
	})

	gate := notify.NewGate(notify.Permission(cfg.NotifyPermission))
	var notifier notify.Notifier
	if cfg.NotifyWebhook != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhook)
	} else {
		notifier = notify.NewTerminalNotifier()
	}
	end := countdown.NewEnd(win, gate, notifier)
	defer end.Stop()

	var pipeline *playerbind.Pipeline
	if cfg.TCPEnabled {
		source := playersource.NewTCPSource(cfg.TCPAddr)
		if err := source.Start(); err != nil {
			return fmt.Errorf("starting tcp event source: %w", err)
		}
		defer source.Stop()

		pipeline = playerbind.NewPipeline(binder, remote, source.Events())
		defer pipeline.Stop()
	}

	go driveLiveComponents(ctx, machine, end, pipeline)

	auth.Resolve(ctx)

	model := tui.NewModel(tui.Deps{
		Auth:      auth,
		Lifecycle: machine,
		Desk:      desk,
		Session:   session,
		Binder:    binder,
		Profile:   profileSyncer,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	session.Flush()
	return nil
}

// driveLiveComponents starts the event pipeline and the end countdown once
// the window goes live, and tears the countdown down on conclusion. It polls
// the machine status; the console model owns the Updates channel.
func driveLiveComponents(ctx context.Context, machine *lifecycle.Machine, end *countdown.End, pipeline *playerbind.Pipeline) {
	started := false
	check := func() bool {
		switch machine.Status() {
		case window.StatusLive:
			if !started {
				started = true
				if pipeline != nil {
					pipeline.Start()
				}
				end.Start(machine)
			}
		case window.StatusConcluded:
			if started {
				end.Stop()
			}
			return true
		}
		return false
	}

	if check() {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if check() {
				return
			}
		}
	}
}
