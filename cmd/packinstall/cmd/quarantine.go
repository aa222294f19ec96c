package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bianoble/packinstall/pkg/packinstall"
)

var quarantineCmd = &cobra.Command{
	Use:   "quarantine <instance>",
	Short: "List files moved to quarantine",
	Long: `Lists corrupt files that were moved out of the instance's live tree.
Quarantined files are kept for inspection and never deleted by packinstall.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(func(o *packinstall.Options) { o.NoCache = true })
		if err != nil {
			return err
		}
		defer s.close()

		entries, err := s.client.Quarantined(args[0])
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			info("Quarantine is empty.")
			return nil
		}
		for _, e := range entries {
			info("  %s  %-20s %s", e.QuarantinedAt.Format(time.RFC3339), e.OriginalName, e.Reason)
			detail("from: %s", e.OriginalPath)
			detail("kept: %s", e.QuarantinePath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quarantineCmd)
}
