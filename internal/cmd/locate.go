package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/waabox/stagerun/internal/artifact"
)

func newLocateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "locate DIR PATTERN",
		Short: "Print the newest file in DIR matching PATTERN",
		Long: `Print the newest file in DIR whose name ends with PATTERN, or matches it
when PATTERN contains a glob character (*, ? or [). This is the lookup the
runner performs before starting a stage.

Examples:
  stagerun locate data _epochs-epo.fif
  stagerun locate data 'cleaned_*_epochs-epo.fif' --all`,
		Args: exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, pattern := args[0], args[1]
			out := cmd.OutOrStdout()
			if !all {
				path, err := artifact.Locate(dir, pattern)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, path)
				return nil
			}

			candidates, err := artifact.Candidates(dir, pattern)
			if err != nil {
				return err
			}
			for _, c := range candidates {
				fmt.Fprintf(out, "%s  %s\n", c.ModTime.Format(time.RFC3339), c.Path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "list every match, newest first")
	return cmd
}
