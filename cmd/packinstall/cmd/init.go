package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initForce bool

// initTemplate is the default packinstall.yaml scaffold.
const initTemplate = `# packinstall configuration
version: 1

# One subdirectory per instance; each holds pack/lock.json.
instances_dir: ~/.local/share/packinstall/instances

# Shared, content-addressed download cache. Remove to disable.
cache_dir: ~/.cache/packinstall

http:
  timeout: 5m
  # max_size: 2147483648   # bytes, 0 = unlimited
  user_agent: packinstall

log:
  level: info     # debug, info, warn, error
  format: text    # text, json

# metrics:
#   textfile: /var/lib/node_exporter/textfile/packinstall.prom

# snapshots:
#   disabled: false
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter packinstall.yaml configuration",
	Long: `Creates a packinstall.yaml at the --config path (or the platform default)
with documented settings for the instances directory, download cache, HTTP
client, logging and metrics.

Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := resolvedConfigPath()
		if !filepath.IsAbs(outPath) {
			abs, err := filepath.Abs(outPath)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			outPath = abs
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", outPath)
			}
		}

		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", outPath)
		info("")
		info("Next steps:")
		info("  1. Place a lockfile at <instances_dir>/<instance>/pack/lock.json")
		info("  2. Run 'packinstall install <instance>'")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
