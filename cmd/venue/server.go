package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/control-theory/venue/internal/countdown"
	"github.com/control-theory/venue/internal/httpserver"
	"github.com/control-theory/venue/internal/identity"
	"github.com/control-theory/venue/internal/lifecycle"
	"github.com/control-theory/venue/internal/notify"
	"github.com/control-theory/venue/internal/player"
	"github.com/control-theory/venue/internal/playerbind"
	"github.com/control-theory/venue/internal/profile"
	"github.com/control-theory/venue/internal/telemetry"
	"github.com/control-theory/venue/internal/window"
)

// runServer starts the headless venue engine with the HTTP API.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	win := cfg.Window()

	// Identity and profile sync.
	auth := identity.NewStatic(identity.StaticConfig{
		Provider:   identity.DefaultProviderConfig(),
		Email:      cfg.AuthEmail,
		Username:   cfg.AuthUsername,
		AutoSignIn: cfg.AutoSignIn,
	})
	defer auth.Close()

	profileSyncer := profile.NewSyncer(cfg.ProfileEndpoint)

	// Telemetry session: batcher, retrying sink, metrics.
	metrics := telemetry.NewMetrics()
	sink := telemetry.NewHTTPSink(cfg.LogEndpoint)
	session := telemetry.NewSession(sink, metrics, telemetry.BatcherConfig{
		BatchSize:     cfg.BatchSize,
		FlushInterval: cfg.FlushInterval,
	})
	defer session.Close()

	// Player mirror and event binder.
	remote := player.NewRemote(player.RemoteConfig{
		QualityLevels: cfg.QualityLevels,
		NetworkInfo:   cfg.NetworkInfo,
	})
	binder := playerbind.NewBinder(session, remote.Surface(), playerbind.BinderConfig{
		Metrics: metrics,
	})

	// Event lifecycle and end countdown.
	machine := lifecycle.New(win)
	machine.Start()
	defer machine.Stop()

	gate := notify.NewGate(notify.Permission(cfg.NotifyPermission))
	var notifier notify.Notifier = notify.NewTerminalNotifier()
	if cfg.NotifyWebhook != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhook)
	}
	end := countdown.NewEnd(win, gate, notifier)
	defer end.Stop()

	// HTTP API with the development log collector and the metrics surface.
	var collector *httpserver.Collector
	if cfg.APIEnabled {
		collector = httpserver.NewCollector(0)
		apiServer := httpserver.NewServer(cfg.APIAddr, httpserver.Config{
			Window:    win,
			Status:    machine.Status,
			Stats:     session.Snapshot,
			Collector: collector,
			Metrics:   metrics.Handler(),
		})
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now — not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	// Build input plugins and source multiplexer
	plugins := buildInputPlugins(InputPluginConfig{
		TCPEnabled: cfg.TCPEnabled,
		TCPAddr:    cfg.TCPAddr,
	})

	sources := make([]NamedEventSource, 0, len(plugins))
	for _, plugin := range plugins {
		if !plugin.Enabled() {
			continue
		}
		src, err := plugin.Build(ctx)
		if err != nil {
			log.WithFields(log.Fields{
				"plugin": plugin.Name(),
				"error":  err,
			}).Error("initializing input plugin")
			continue
		}
		sources = append(sources, src)
	}

	mux := NewSourceMultiplexer(ctx, sources, cfg.MuxBufferSize)
	mux.Start()

	pipeline := playerbind.NewPipeline(binder, remote, mux.Events())

	printStartupBanner(cfg, mux.HasSources())

	// Resolve identity and hold at the access gate: the lifecycle watcher and
	// pipeline only start for an authenticated viewer.
	auth.Resolve(ctx)
	if err := awaitAccess(ctx, auth); err != nil {
		pipeline.Stop()
		mux.Stop()
		return fmt.Errorf("access gate refused: %w", err)
	}
	if st := auth.Current(); st.Authenticated && st.User != nil {
		profileSyncer.Sync(ctx, *st.User)
	}

	// Use errgroup for concurrent goroutine lifecycle management.
	g, gctx := errgroup.WithContext(ctx)

	// Player event pipeline: attach instrumentation only while live.
	g.Go(func() error {
		watchLifecycle(gctx, machine, end, pipeline)
		return nil
	})

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithField("error", err).Error("errgroup exited")
	}

	cancel()
	pipeline.Stop()
	mux.Stop()
	session.Flush()

	signal.Stop(sigCh)

	return nil
}

// awaitAccess blocks until the identity settles on the content branch. An
// unauthenticated or errored identity refuses the gated surface instead of
// running it anonymously.
func awaitAccess(ctx context.Context, auth identity.Authenticator) error {
	for {
		st := auth.Current()
		switch identity.Gate(st) {
		case identity.BranchContent:
			user := ""
			if st.User != nil {
				user = st.User.Username
			}
			log.WithField("user", user).Info("access gate passed")
			return nil
		case identity.BranchError:
			return st.Err
		case identity.BranchSignIn:
			return errors.New("no signed-in viewer; set auth-email and auto-sign-in")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-auth.Updates():
			if !ok {
				return errors.New("identity closed before sign-in")
			}
		}
	}
}

// watchLifecycle drives the live-only components: the pipeline and the end
// countdown start on the live transition and stop on conclusion.
func watchLifecycle(ctx context.Context, machine *lifecycle.Machine, end *countdown.End, pipeline *playerbind.Pipeline) {
	started := false
	maybeStart := func(status window.Status) bool {
		switch status {
		case window.StatusLive:
			if !started {
				started = true
				pipeline.Start()
				end.Start(machine)
				log.Info("event live, player instrumentation attached")
			}
		case window.StatusConcluded:
			if started {
				end.Stop()
			}
			log.Info("event concluded")
			return true
		}
		return false
	}

	if maybeStart(machine.Status()) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-machine.Updates():
			if !ok {
				return
			}
			if maybeStart(status) {
				return
			}
		}
	}
}

func configureRuntimeLogger() func() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "venue")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "venue.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, hasSources bool) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╦  ╦╔═╗╔╗╔╦ ╦╔═╗
    ╚╗╔╝║╣ ║║║║ ║║╣
     ╚╝ ╚═╝╝╚╝╚═╝╚═╝`)

	ver := dim.Render("v" + version)
	win := cfg.Window()

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Event"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Starts         %s", check, cyan.Render(win.Start.Local().Format(time.RFC1123))))
	lines = append(lines, fmt.Sprintf("    %s  Ends           %s", check, cyan.Render(win.End.Local().Format(time.RFC1123))))
	lines = append(lines, fmt.Sprintf("    %s  Status         %s", check, cyan.Render(string(win.StatusAt(time.Now())))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}

	if cfg.TCPEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Player Events  %s", check, cyan.Render(cfg.TCPAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Player Events  %s", dot, dim.Render("disabled")))
	}

	if hasSources {
		lines = append(lines, fmt.Sprintf("    %s  Sources        %s", check, dim.Render("attached")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sources        %s", dot, dim.Render("none")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Telemetry"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  Log Endpoint   %s", check, dim.Render(cfg.LogEndpoint)))
	lines = append(lines, fmt.Sprintf("    %s  Batch          %s", check, dim.Render(fmt.Sprintf("%d records / %s", cfg.BatchSize, cfg.FlushInterval))))

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
