package main

import (
	"context"
	"fmt"
	"os"

	"github.com/control-theory/venue/internal/playersource"
)

// NamedEventSource aliases the shared source abstraction to keep app-layer APIs explicit.
type NamedEventSource = playersource.Source

// InputSourcePlugin is a small plugin primitive for wiring player event inputs.
type InputSourcePlugin interface {
	Name() string
	Enabled() bool
	Build(ctx context.Context) (NamedEventSource, error)
}

// InputPluginConfig defines runtime input selection.
type InputPluginConfig struct {
	TCPEnabled bool
	TCPAddr    string
}

func buildInputPlugins(cfg InputPluginConfig) []InputSourcePlugin {
	plugins := make([]InputSourcePlugin, 0, 2)
	plugins = append(plugins, tcpInputPlugin{
		addr:    cfg.TCPAddr,
		enabled: cfg.TCPEnabled,
	})
	plugins = append(plugins, stdinInputPlugin{})
	return plugins
}

type tcpInputPlugin struct {
	addr    string
	enabled bool
}

func (p tcpInputPlugin) Name() string { return "tcp" }

func (p tcpInputPlugin) Enabled() bool { return p.enabled }

func (p tcpInputPlugin) Build(_ context.Context) (NamedEventSource, error) {
	src := playersource.NewTCPSource(p.addr)
	if err := src.Start(); err != nil {
		return nil, fmt.Errorf("start tcp event source: %w", err)
	}
	return src, nil
}

type stdinInputPlugin struct{}

func (p stdinInputPlugin) Name() string { return "stdin" }

func (p stdinInputPlugin) Enabled() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func (p stdinInputPlugin) Build(ctx context.Context) (NamedEventSource, error) {
	return playersource.NewStdinSource(ctx), nil
}
