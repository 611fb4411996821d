package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/window"
)

const (
	defaultBindHost      = "127.0.0.1"
	defaultTCPPort       = 4000
	defaultAPIPort       = 3000
	defaultMuxBufferSize = DefaultMuxBuffer
	defaultLogEndpoint   = "http://localhost:3000/api/log-event"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	EventStart string `mapstructure:"event-start"`
	EventEnd   string `mapstructure:"event-end"`

	Host          string `mapstructure:"host"`
	TCPEnabled    bool   `mapstructure:"tcp-enabled"`
	TCPPort       int    `mapstructure:"tcp-port"`
	TCPAddr       string `mapstructure:"tcp-addr"`
	MuxBufferSize int    `mapstructure:"mux-buffer-size"`

	APIEnabled bool   `mapstructure:"api-enabled"`
	APIPort    int    `mapstructure:"api-port"`
	APIAddr    string `mapstructure:"api-addr"`

	LogEndpoint   string        `mapstructure:"log-endpoint"`
	BatchSize     int           `mapstructure:"log-batch-size"`
	FlushInterval time.Duration `mapstructure:"log-flush-interval"`

	QualityLevels bool `mapstructure:"player-quality-levels"`
	NetworkInfo   bool `mapstructure:"player-network-info"`

	SlotMinutes int `mapstructure:"slot-minutes"`
	UnitPrice   int `mapstructure:"unit-price"`

	NotifyPermission string `mapstructure:"notify-permission"`
	NotifyWebhook    string `mapstructure:"notify-webhook"`

	AuthEmail       string `mapstructure:"auth-email"`
	AuthUsername    string `mapstructure:"auth-username"`
	AutoSignIn      bool   `mapstructure:"auto-sign-in"`
	ProfileEndpoint string `mapstructure:"profile-endpoint"`

	ConfigPath string `mapstructure:"-"` // not from config file

	win window.Window
}

// Window returns the parsed event window.
func (c appConfig) Window() window.Window { return c.win }

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VENUE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("tcp-enabled", true)
	v.SetDefault("tcp-port", defaultTCPPort)
	v.SetDefault("mux-buffer-size", defaultMuxBufferSize)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("log-endpoint", defaultLogEndpoint)
	v.SetDefault("log-batch-size", model.DefaultLogBatchSize)
	v.SetDefault("log-flush-interval", model.DefaultFlushInterval)
	v.SetDefault("player-quality-levels", true)
	v.SetDefault("player-network-info", true)
	v.SetDefault("slot-minutes", model.DefaultSlotMinutes)
	v.SetDefault("unit-price", model.DefaultUnitPrice)
	v.SetDefault("notify-permission", "default")
	v.SetDefault("auth-email", "viewer@localhost")
	v.SetDefault("auto-sign-in", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "venue", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.TCPPort <= 0 || cfg.TCPPort > 65535 {
		return cfg, fmt.Errorf("invalid tcp-port: %d", cfg.TCPPort)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}

	host := cfg.Host
	if host == "" {
		host = defaultBindHost
		cfg.Host = host
	}
	if cfg.TCPAddr == "" {
		cfg.TCPAddr = net.JoinHostPort(host, strconv.Itoa(cfg.TCPPort))
	}
	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(host, strconv.Itoa(cfg.APIPort))
	}

	cfg.win, err = parseWindow(cfg.EventStart, cfg.EventEnd)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

// parseWindow builds the event window from the configured timestamps. With no
// configuration, a demo window opens now and runs for two hours.
func parseWindow(start, end string) (window.Window, error) {
	if start == "" && end == "" {
		now := time.Now()
		return window.Window{Start: now, End: now.Add(2 * time.Hour)}, nil
	}

	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return window.Window{}, fmt.Errorf("invalid event-start %q: %w", start, err)
	}
	endAt, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return window.Window{}, fmt.Errorf("invalid event-end %q: %w", end, err)
	}

	win := window.Window{Start: startAt, End: endAt}
	if err := win.Validate(); err != nil {
		return window.Window{}, err
	}
	return win, nil
}
