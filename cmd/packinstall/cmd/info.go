package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bianoble/packinstall/internal/cache"
	"github.com/bianoble/packinstall/internal/layout"
	"github.com/bianoble/packinstall/internal/lock"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show packinstall configuration and cache usage",
	Long: `Displays the packinstall version, the configuration file in effect, the
instances and cache directories, cache size, and the instances found.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		path := resolvedConfigPath()
		status := "loaded"
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			status = "not found, using defaults"
		}

		fmt.Printf("packinstall %s\n", version)
		fmt.Printf("  config:        %s (%s)\n", path, status)
		fmt.Printf("  instances dir: %s\n", cfg.InstancesDir)

		var c *cache.Cache
		if cfg.CacheDir == "" {
			fmt.Printf("  cache dir:     (disabled)\n")
		} else if opened, cacheErr := cache.New(cfg.CacheDir); cacheErr == nil {
			c = opened
			size, _ := c.Size()
			fmt.Printf("  cache dir:     %s\n", c.Path())
			fmt.Printf("  cache size:    %s\n", humanSize(size))
		}
		if cfg.Metrics.Textfile != "" {
			fmt.Printf("  metrics:       %s\n", cfg.Metrics.Textfile)
		}

		instances, err := listInstances(cfg.InstancesDir)
		if err != nil {
			return err
		}
		if len(instances) > 0 {
			fmt.Println("\nInstances:")
			for _, name := range instances {
				fmt.Printf("  %-20s %s\n", name, instanceSummary(cfg.InstancesDir, name, c))
			}
		}
		return nil
	},
}

// listInstances returns the directories under base that hold a lockfile.
func listInstances(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading instances directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(base, e.Name(), "pack", "lock.json")); err == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// instanceSummary describes an instance's lockfile and how much of it the
// shared cache already holds.
func instanceSummary(base, name string, c *cache.Cache) string {
	l, err := layout.ForInstance(base, name)
	if err != nil {
		return err.Error()
	}
	lf, err := lock.Load(l.LockPath())
	if err != nil {
		return "invalid lockfile"
	}
	installable := lf.Installable()
	summary := fmt.Sprintf("%s, %d artifact(s)", strings.TrimSpace(lf.PackID+" "+lf.PackVersion), len(installable))
	if c == nil {
		return summary
	}
	cached := 0
	for _, a := range installable {
		if c.Has(a.Checksum.Algorithm, a.Checksum.Value) {
			cached++
		}
	}
	return fmt.Sprintf("%s, %d cached", summary, cached)
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
