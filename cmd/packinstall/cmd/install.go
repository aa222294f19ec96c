package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bianoble/packinstall/internal/lock"
	"github.com/bianoble/packinstall/pkg/packinstall"
)

var (
	installLockfile    string
	installForceVerify bool
	installNoSnapshot  bool
	installNoCache     bool
)

var installCmd = &cobra.Command{
	Use:   "install <instance>",
	Short: "Install or repair an instance from its lockfile",
	Long: `Reads <instances-dir>/<instance>/pack/lock.json and makes the instance's
files match it exactly. Valid staged downloads from an interrupted run are
resumed, corrupt files are quarantined and fetched again, and a snapshot of
the validated set is recorded on success.

Use --lockfile to install from a lockfile stored elsewhere; it is read, never
copied or modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		instance := args[0]
		s, err := newSession(func(o *packinstall.Options) {
			o.ForceVerify = installForceVerify
			if installNoSnapshot {
				o.DisableSnapshots = true
			}
			if installNoCache {
				o.NoCache = true
			}
		})
		if err != nil {
			return err
		}
		defer s.close()

		var result *packinstall.InstallResult
		if installLockfile != "" {
			lf, loadErr := lock.Load(installLockfile)
			if loadErr != nil {
				return loadErr
			}
			result, err = s.client.InstallLockfile(cmd.Context(), instance, lf)
		} else {
			result, err = s.client.Install(cmd.Context(), instance)
		}
		if err != nil {
			return fmt.Errorf("install %s: %w", instance, err)
		}

		for _, a := range result.Actions {
			detail("%-11s %s", a.Action, a.Path)
		}
		info("Installed %d, verified %d, skipped %d, promoted %d, quarantined %d.",
			result.Installed, result.Verified, result.Skipped, result.Promoted, result.Quarantined)
		if result.SnapshotID != "" {
			info("Snapshot: %s", result.SnapshotID)
		}
		detail("run id: %s", result.RunID)
		return nil
	},
}

func init() {
	installCmd.Flags().StringVar(&installLockfile, "lockfile", "", "install from this lockfile instead of the instance's pack/lock.json")
	installCmd.Flags().BoolVar(&installForceVerify, "force-verify", false, "re-hash every present file through the verification path")
	installCmd.Flags().BoolVar(&installNoSnapshot, "no-snapshot", false, "do not record a snapshot after a successful install")
	installCmd.Flags().BoolVar(&installNoCache, "no-cache", false, "bypass the shared download cache")
	rootCmd.AddCommand(installCmd)
}
