// Package config loads the run defaults a hashcopy invocation starts from:
// worker count, whether to save copied/errored lists, and log level. CLI
// flags always override whatever this package resolves.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the resolved defaults for one invocation of hashcopy.
type Config struct {
	Workers   int    `json:"workers,omitempty"`
	SaveLists bool   `json:"save_lists,omitempty"`
	LogLevel  string `json:"log_level,omitempty"`
}

var validLevels = map[string]struct{}{
	"trace": {}, "debug": {}, "info": {}, "warn": {}, "error": {},
}

// Load reads an optional JSON file at path. A missing file is not an
// error — the caller gets the defaults (workers=0 meaning "use
// runtime.NumCPU()", save_lists=false, log_level="info").
func Load(path string) (*Config, error) {
	cfg := &Config{LogLevel: "info"}
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// LoadEnvDefaults overlays HASHCOPY_WORKERS, HASHCOPY_SAVE_LISTS, and
// HASHCOPY_LOG_LEVEL from a .env file at envPath, if present, onto cfg.
// A missing .env file is not an error. Values already set by the JSON
// config file are not overridden — the precedence order is CLI flags >
// JSON config file > .env > built-in defaults.
func (c *Config) LoadEnvDefaults(envPath string) error {
	vars, err := godotenv.Read(envPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if c.Workers == 0 {
		if raw, ok := vars["HASHCOPY_WORKERS"]; ok {
			var n int
			if _, err := fmt.Sscanf(raw, "%d", &n); err != nil {
				return fmt.Errorf("HASHCOPY_WORKERS: %w", err)
			}
			c.Workers = n
		}
	}
	if raw, ok := vars["HASHCOPY_SAVE_LISTS"]; ok && !c.SaveLists {
		c.SaveLists = raw == "1" || strings.EqualFold(raw, "true")
	}
	if raw, ok := vars["HASHCOPY_LOG_LEVEL"]; ok && c.LogLevel == "info" {
		c.LogLevel = raw
	}
	return nil
}

// Validate checks Workers >= 0 and that LogLevel, compared
// case-insensitively, is one of trace, debug, info, warn or error. An empty
// LogLevel is accepted.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	level := strings.ToLower(c.LogLevel)
	if level == "" {
		return nil
	}
	if _, ok := validLevels[level]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
