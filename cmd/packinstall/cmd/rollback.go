package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <instance> [snapshot-id]",
	Short: "Restore an instance from a snapshot",
	Long: `Copies every file recorded in a snapshot back over the instance's live
tree and re-verifies it. Without a snapshot id the newest valid snapshot is
used. Snapshots written under an older manifest schema are refused.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		instance := args[0]
		snapshotID := ""
		if len(args) == 2 {
			snapshotID = args[1]
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		result, err := s.client.Rollback(cmd.Context(), instance, snapshotID)
		if err != nil {
			return fmt.Errorf("rollback %s: %w", instance, err)
		}
		info("Restored %d file(s) from snapshot %s.", result.RestoredCount, result.SnapshotID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rollbackCmd)
}
