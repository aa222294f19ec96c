package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version:      1,
		InstancesDir: DefaultInstancesDir(),
		CacheDir:     DefaultCacheDir(),
		HTTP: HTTP{
			Timeout:   5 * time.Minute,
			UserAgent: "packinstall",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Load reads and validates a packinstall.yaml configuration file.
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	ApplyEnv(cfg)
	cfg.InstancesDir = ExpandHome(cfg.InstancesDir)
	cfg.CacheDir = ExpandHome(cfg.CacheDir)
	cfg.Metrics.Textfile = ExpandHome(cfg.Metrics.Textfile)

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// LoadOrDefault is Load, except a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		ApplyEnv(cfg)
		if errs := Validate(cfg); len(errs) > 0 {
			return nil, &ValidationError{Errors: errs}
		}
		return cfg, nil
	}
	return cfg, err
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d — only version 1 is supported", cfg.Version))
	}
	if strings.TrimSpace(cfg.InstancesDir) == "" {
		errs = append(errs, "'instances_dir' is required")
	}

	if cfg.HTTP.Timeout < 0 {
		errs = append(errs, "http: 'timeout' must not be negative")
	}
	if cfg.HTTP.MaxSize < 0 {
		errs = append(errs, "http: 'max_size' must not be negative")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log: invalid level '%s' — must be one of: debug, info, warn, error", cfg.Log.Level))
	}
	switch strings.ToLower(cfg.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log: invalid format '%s' — must be one of: text, json", cfg.Log.Format))
	}

	return errs
}
