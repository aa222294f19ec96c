package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const configFileName = "packinstall.yaml"
const appDirName = "packinstall"

// Environment overrides, applied after the file is read.
const (
	EnvInstancesDir = "PACKINSTALL_INSTANCES_DIR"
	EnvCacheDir     = "PACKINSTALL_CACHE_DIR"
	EnvLogLevel     = "PACKINSTALL_LOG_LEVEL"
	EnvLogFormat    = "PACKINSTALL_LOG_FORMAT"
	EnvNoSnapshots  = "PACKINSTALL_NO_SNAPSHOTS"
)

// DefaultPath returns the platform-standard user config path.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(dir, appDirName, configFileName)
}

// DefaultInstancesDir uses XDG_DATA_HOME if set, otherwise ~/.local/share/packinstall/instances.
func DefaultInstancesDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName, "instances")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName, "instances")
	}
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("LOCALAPPDATA"); appData != "" {
			return filepath.Join(appData, appDirName, "instances")
		}
	}
	return filepath.Join(home, ".local", "share", appDirName, "instances")
}

// DefaultCacheDir uses XDG_CACHE_HOME if set, otherwise ~/.cache/packinstall.
func DefaultCacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName+"-cache")
	}
	return filepath.Join(home, ".cache", appDirName)
}

// ApplyEnv overlays PACKINSTALL_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvInstancesDir)); v != "" {
		cfg.InstancesDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.CacheDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Log.Format = v
	}
	if envBoolTrue(EnvNoSnapshots) {
		cfg.Snapshots.Disabled = true
	}
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// envBoolTrue returns true if the env var is set to "1" or "true" (case-insensitive).
func envBoolTrue(key string) bool {
	v := os.Getenv(key)
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true"
}
