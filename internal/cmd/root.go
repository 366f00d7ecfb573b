package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/waabox/stagerun/internal/config"
	"github.com/waabox/stagerun/internal/exitcode"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	version    string
}

// NewRootCommand builds the stagerun command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &globalOptions{version: version}

	root := &cobra.Command{
		Use:   "stagerun",
		Short: "Sequential runner for multi-stage analysis pipelines",
		Long: `stagerun executes an ordered list of analysis scripts, one at a time.
Before each stage starts, the artifact its predecessor should have produced is
located in the artifact directory and passed to the stage as an argument.
The run stops at the first missing artifact or failing stage, and every event
is appended to a durable log file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultConfigPath(), "path to the pipeline config file (.toml, .yaml or .yml)")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
	})

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newLocateCmd(),
		newInitCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// ExecuteContext runs the root command with the given context.
func ExecuteContext(ctx context.Context, version string) error {
	return NewRootCommand(version).ExecuteContext(ctx)
}

// loadConfig reads and validates the config file named by --config.
func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("%s: %w", opts.configPath, err)
	}
	return cfg, nil
}

// exactArgs wraps cobra.ExactArgs so that argument errors map to a usage exit code.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", exitcode.ErrUsage, err)
		}
		return nil
	}
}
