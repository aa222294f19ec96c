package config

import "time"

// Config represents the packinstall.yaml configuration file.
type Config struct {
	Version      int       `yaml:"version"`
	InstancesDir string    `yaml:"instances_dir"`
	CacheDir     string    `yaml:"cache_dir,omitempty"`
	HTTP         HTTP      `yaml:"http"`
	Log          Log       `yaml:"log"`
	Metrics      Metrics   `yaml:"metrics,omitempty"`
	Snapshots    Snapshots `yaml:"snapshots,omitempty"`
}

// HTTP configures the default download client.
type HTTP struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxSize   int64         `yaml:"max_size,omitempty"` // bytes, 0 = unlimited
	UserAgent string        `yaml:"user_agent,omitempty"`
}

// Log configures structured logging.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Metrics configures the Prometheus textfile export.
type Metrics struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Snapshots controls post-install snapshot creation.
type Snapshots struct {
	Disabled bool `yaml:"disabled,omitempty"`
}
