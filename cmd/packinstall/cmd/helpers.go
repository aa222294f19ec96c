package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bianoble/packinstall/internal/config"
	"github.com/bianoble/packinstall/internal/logging"
	"github.com/bianoble/packinstall/internal/metrics"
	"github.com/bianoble/packinstall/pkg/packinstall"
)

// resolvedConfigPath returns --config or the platform default.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultPath()
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	path := resolvedConfigPath()
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		// An explicit --config must exist.
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}
	if err != nil {
		return nil, err
	}

	if instancesDir != "" {
		cfg.InstancesDir = instancesDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	switch {
	case verbose:
		cfg.Log.Level = "debug"
	case quiet:
		cfg.Log.Level = "error"
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, &config.ValidationError{Errors: errs}
	}
	return cfg, nil
}

// newLogger builds the structured logger for a command run.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Writer: os.Stderr})
}

// session bundles a client with the metrics sink that must be flushed
// once the command finishes.
type session struct {
	cfg     *config.Config
	client  *packinstall.Client
	logger  *slog.Logger
	metrics *metrics.Prom
}

// newSession loads config and builds a client.
func newSession(opts ...func(*packinstall.Options)) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	o := packinstall.Options{
		InstancesDir:     cfg.InstancesDir,
		CacheDir:         cfg.CacheDir,
		NoCache:          cfg.CacheDir == "",
		HTTPTimeout:      cfg.HTTP.Timeout,
		MaxSize:          cfg.HTTP.MaxSize,
		UserAgent:        userAgent(cfg.HTTP.UserAgent),
		DisableSnapshots: cfg.Snapshots.Disabled,
		Logger:           logger,
	}
	if cfg.Metrics.Textfile != "" {
		s.metrics = metrics.NewProm("packinstall")
		o.Metrics = s.metrics
	}
	for _, fn := range opts {
		fn(&o)
	}

	s.client, err = packinstall.New(o)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// close flushes the metrics textfile, if configured.
func (s *session) close() {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.Metrics.Textfile); err != nil {
		s.logger.Warn("writing metrics textfile failed", logging.Meta("path", s.cfg.Metrics.Textfile, "error", err.Error()))
	}
}

func userAgent(base string) string {
	if base == "" {
		return ""
	}
	return base + "/" + version
}

// info prints a line unless quiet mode is active.
func info(format string, args ...any) {
	if !quiet {
		fmt.Printf(format+"\n", args...)
	}
}

// detail prints a line only in verbose mode.
func detail(format string, args ...any) {
	if verbose {
		fmt.Printf("  "+format+"\n", args...)
	}
}

func humanSize(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d B", bytes)
	}
	return fmt.Sprintf("%.1f %s", size, units[i])
}
