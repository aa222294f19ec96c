package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath   string
	instancesDir string
	logLevel     string
	logFormat    string
	verbose      bool
	quiet        bool
)

var rootCmd = &cobra.Command{
	Use:   "packinstall",
	Short: "Deterministic, lockfile-driven artifact installer",
	Long: `packinstall installs the artifacts pinned by an instance's lockfile
(pack/lock.json) byte-for-byte. Downloads are staged and verified before
they are promoted into the live tree, corrupt files are quarantined rather
than deleted, and every successful install records a snapshot that can be
rolled back to.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("packinstall %s\n", version)
		fmt.Printf("  commit:    %s\n", commit)
		fmt.Printf("  built:     %s\n", date)
		fmt.Printf("  lockfile:  schema v1\n")
		fmt.Printf("  snapshots: schema v2\n")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&instancesDir, "instances-dir", "", "directory holding one subdirectory per instance")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text, json")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
