package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/window"
)

// cliConfig holds only console-relevant configuration.
type cliConfig struct {
	EventStart string `mapstructure:"event-start"`
	EventEnd   string `mapstructure:"event-end"`

	TCPEnabled bool   `mapstructure:"tcp-enabled"`
	TCPAddr    string `mapstructure:"tcp-addr"`

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

	win window.Window
}

func (c cliConfig) Window() window.Window { return c.win }

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("VENUE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("tcp-enabled", true)
	v.SetDefault("tcp-addr", "127.0.0.1:4000")
	v.SetDefault("log-endpoint", "http://localhost:3000/api/log-event")
	v.SetDefault("log-batch-size", model.DefaultLogBatchSize)
	v.SetDefault("log-flush-interval", model.DefaultFlushInterval)
	v.SetDefault("player-quality-levels", true)
	v.SetDefault("player-network-info", true)
	v.SetDefault("slot-minutes", model.DefaultSlotMinutes)
	v.SetDefault("unit-price", model.DefaultUnitPrice)
	v.SetDefault("notify-permission", "granted")
	v.SetDefault("auto-sign-in", false)

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

	cfg.win, err = parseWindow(cfg.EventStart, cfg.EventEnd)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

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
