package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <instance>",
	Short: "Verify that installed files match the lockfile",
	Long: `Hashes every installed file and compares it against the instance lockfile.
Reports drifted and missing files without changing anything.
Exit 0 if everything matches; exit non-zero on drift. Suitable for CI pipelines.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		result, err := s.client.Check(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if result.Clean {
			info("All files match the lockfile.")
			return nil
		}

		for _, d := range result.Drifted {
			info("  drifted   %s", d.Path)
			detail("expected: %s", d.Expected)
			detail("actual:   %s", d.Actual)
		}
		for _, m := range result.Missing {
			info("  missing   %s", m)
		}

		total := len(result.Drifted) + len(result.Missing)
		return fmt.Errorf("check failed: %d file(s) out of sync", total)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
