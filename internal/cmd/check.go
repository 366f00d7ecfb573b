package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/waabox/stagerun/internal/artifact"
	"github.com/waabox/stagerun/internal/gate"
	"github.com/waabox/stagerun/internal/runlog"
)

func newCheckCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and report which stage inputs resolve today",
		Long: `Validate the config file and the artifact directory without running anything.
For each stage, report the artifacts its requirements currently resolve to.
Requirements that do not resolve yet are expected for stages whose inputs an
earlier stage produces; they are reported but do not fail the check.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := artifact.CheckDir(cfg.ArtifactDir); err != nil {
				return err
			}
			stages, err := cfg.Pipeline()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config:       %s\n", opts.configPath)
			fmt.Fprintf(out, "artifact dir: %s\n", cfg.ArtifactDir)
			fmt.Fprintf(out, "work dir:     %s\n", cfg.WorkDir)
			fmt.Fprintf(out, "log file:     %s (level %s, format %s)\n\n", cfg.LogFileOrDefault(),
				runlog.ParseLevel(cfg.LogLevel), runlog.ParseFormat(cfg.LogFormat))

			g := gate.New(cfg.ArtifactDir)
			for i, stage := range stages {
				decision, err := g.Check(stage)
				if err != nil {
					return err
				}
				switch {
				case len(stage.Requires) == 0:
					fmt.Fprintf(out, "%d. %-25s no requirements\n", i+1, stage.Name)
				case decision.Ready:
					fmt.Fprintf(out, "%d. %-25s ready: %s\n", i+1, stage.Name, strings.Join(decision.Inputs, ", "))
				default:
					fmt.Fprintf(out, "%d. %-25s waiting: %s\n", i+1, stage.Name, decision.Reason())
				}
			}
			return nil
		},
	}
}
