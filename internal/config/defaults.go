package config

import "time"

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// Default returns a configuration populated with defaults. Required fields stay empty.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":3000", ShutdownTimeout: 5 * time.Second},
		Dev:    DevConfig{CheckInterval: 5 * time.Second},
		UI:     UIConfig{Stylesheet: "/css/main.css", Script: "/js/main.js"},
		Render: RenderConfig{CacheSize: 128},
		Export: ExportConfig{OutputDir: "out", CreateOutputDir: true, Concurrency: 4},
		Watch:  WatchConfig{Debounce: 100 * time.Millisecond},
		Events: EventsConfig{Subject: "fest.events"},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
	}
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":3000"
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 5 * time.Second
	}
	if cfg.Dev.CheckInterval <= 0 {
		cfg.Dev.CheckInterval = 5 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	return nil
}

type exportDefaults struct{}

func (exportDefaults) Domain() string { return "export" }

func (exportDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Export.OutputDir == "" {
		cfg.Export.OutputDir = "out"
	}
	if cfg.Export.Concurrency <= 0 {
		cfg.Export.Concurrency = 4
	}
	if cfg.Render.CacheSize < 0 {
		cfg.Render.CacheSize = 0
	}
	return nil
}

type watchDefaults struct{}

func (watchDefaults) Domain() string { return "watch" }

func (watchDefaults) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 100 * time.Millisecond
	}
	if cfg.Watch.ResyncInterval < 0 {
		cfg.Watch.ResyncInterval = 0
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "fest.events"
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	appliers := []DefaultApplier{serverDefaults{}, exportDefaults{}, watchDefaults{}}
	for _, a := range appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	if cfg.UI.Stylesheet == "" {
		cfg.UI.Stylesheet = "/css/main.css"
	}
	if cfg.UI.Script == "" {
		cfg.UI.Script = "/js/main.js"
	}
	return nil
}
