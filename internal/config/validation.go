package config

import (
	"strings"

	ferrors "git.home.luguber.info/inful/fest/internal/foundation/errors"
)

// Validate checks the required fields and cross-field constraints.
func Validate(cfg *Config) error {
	if cfg.StaticDir == "" || cfg.PagesDir == "" {
		return ferrors.ConfigError("both static_dir and pages_dir must be specified in the configuration file").Build()
	}
	if cfg.UseFestUI {
		for field, v := range map[string]string{"ui.stylesheet": cfg.UI.Stylesheet, "ui.script": cfg.UI.Script} {
			if !strings.HasPrefix(v, "/") {
				return ferrors.ConfigError("ui asset paths must be absolute URL paths").
					WithContext("field", field).
					WithContext("value", v).
					Build()
			}
		}
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return ferrors.ConfigError("metrics.path must start with /").WithContext("value", cfg.Metrics.Path).Build()
	}
	return nil
}
