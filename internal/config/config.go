package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

// DefaultFileNames lists the configuration files looked up in order.
var DefaultFileNames = []string{"fest.yaml", "fest.yml"}

// DevEnvVar selects development mode when set to "development".
const DevEnvVar = "FEST_ENV"

// Config is the site configuration. It is created once by Load and must be
// treated as read-only afterwards.
type Config struct {
	StaticDir string `yaml:"static_dir"`
	PagesDir  string `yaml:"pages_dir"`
	UseFestUI bool   `yaml:"use_fest_ui"`

	Server  ServerConfig  `yaml:"server"`
	Dev     DevConfig     `yaml:"dev"`
	UI      UIConfig      `yaml:"ui"`
	Render  RenderConfig  `yaml:"render"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
	Events  EventsConfig  `yaml:"events"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DevConfig configures development mode overlays.
type DevConfig struct {
	Enabled       bool          `yaml:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval"` // meta refresh period
	LiveReload    bool          `yaml:"live_reload"`    // SSE reload instead of meta refresh
}

// UIConfig names the assets injected when UseFestUI is set.
type UIConfig struct {
	Stylesheet string `yaml:"stylesheet"`
	Script     string `yaml:"script"`
}

// RenderConfig configures the template engine.
type RenderConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// ExportConfig configures the static exporter.
type ExportConfig struct {
	OutputDir       string `yaml:"output_dir"`
	CreateOutputDir bool   `yaml:"create_output_dir"`
	Concurrency     int    `yaml:"concurrency"`
	HistoryDB       string `yaml:"history_db,omitempty"`
}

// WatchConfig configures the pages directory watcher.
type WatchConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	ResyncInterval time.Duration `yaml:"resync_interval,omitempty"`
}

// EventsConfig configures the optional NATS event sink.
type EventsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Find returns the first default configuration file present in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultFileNames {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", ferrors.ConfigError(fmt.Sprintf("configuration file %s or %s is missing", DefaultFileNames[0], DefaultFileNames[1])).
		WithContext("dir", dir).
		Build()
}

// Load reads the configuration file at path, expands environment variables,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(filepath.Dir(path)); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("file", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").Fatal().WithContext("file", path).Build()
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes YAML configuration data, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	if os.Getenv(DevEnvVar) == "development" {
		cfg.Dev.Enabled = true
	}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
