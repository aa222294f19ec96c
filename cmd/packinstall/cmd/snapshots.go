package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/packinstall/pkg/packinstall"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots <instance>",
	Short: "List the snapshots of an instance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(func(o *packinstall.Options) { o.NoCache = true })
		if err != nil {
			return err
		}
		defer s.close()

		snaps, err := s.client.Snapshots(args[0])
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			info("No snapshots.")
			return nil
		}
		for _, sn := range snaps {
			if sn.Err != nil {
				info("  %s  (not restorable: %v)", sn.ID, sn.Err)
				continue
			}
			info("  %s  %d artifact(s)  pack %s %s", sn.ID, sn.Manifest.ArtifactCount, sn.Manifest.PackID, sn.Manifest.PackVersion)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotsCmd)
}
