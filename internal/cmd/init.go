package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/waabox/stagerun/internal/config"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config for the seven-stage EEG pipeline",
		Long: `Write a starter config describing the seven-stage EEG analysis pipeline
(preprocessing, epoching, ICA, ERP, PSD, visualizations and source
localization) to the path given by --config. The encoding follows the file
extension. An existing file is kept unless --force is set.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(opts.configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", opts.configPath)
			}
			if err := config.Save(opts.configPath, config.Starter()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", opts.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}
