package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/waabox/stagerun/internal/config"
	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/executor"
	"github.com/waabox/stagerun/internal/pipeline"
	"github.com/waabox/stagerun/internal/runlog"
	"github.com/waabox/stagerun/internal/tui"
)

func newRunCmd(opts *globalOptions) *cobra.Command {
	var useTUI bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configured stage in order",
		Long: `Run every configured stage in order, stopping at the first missing
artifact or failing stage. Log records stream to stderr and are appended to
the configured log file. With --tui, progress is shown in a live terminal view
and records go to the log file only.

Exit status is 0 when every stage succeeded, 1 when the run failed, 2 on a
configuration error and 130 when interrupted.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts, useTUI)
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a live terminal view of the run")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts *globalOptions, useTUI bool) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	stages, err := cfg.Pipeline()
	if err != nil {
		return err
	}

	var console io.Writer = cmd.ErrOrStderr()
	if useTUI {
		console = nil
	}
	logger, err := runlog.Open(runlog.Config{
		Level:    runlog.ParseLevel(cfg.LogLevel),
		Format:   runlog.ParseFormat(cfg.LogFormat),
		FilePath: cfg.LogFileOrDefault(),
		Console:  console,
	})
	if err != nil {
		return err
	}
	defer logger.Close()

	exec := buildExecutor(cfg, logger)
	newController := func(extra ...pipeline.Option) *pipeline.Controller {
		return pipeline.New(pipeline.Config{ArtifactDir: cfg.ArtifactDir, WorkDir: cfg.WorkDir}, exec, logger, extra...)
	}

	var run domain.PipelineRun
	if useTUI {
		run, err = tui.Run(cmd.Context(), opts.configPath, stages, func(ctx context.Context, obs pipeline.Observer) domain.PipelineRun {
			return newController(pipeline.WithObserver(obs)).Run(ctx, stages)
		})
		if err != nil {
			return err
		}
	} else {
		run = newController().Run(cmd.Context(), stages)
	}

	fmt.Fprint(cmd.OutOrStdout(), tui.RenderSummary(run, stages))
	if run.Status != domain.RunCompleted {
		return fmt.Errorf("pipeline failed: %w", run.Err)
	}
	return nil
}

// buildExecutor assembles the process executor from the config, wrapping it
// with the output archive when capture_dir is set.
func buildExecutor(cfg config.Config, logger *runlog.Logger) domain.StageExecutor {
	registry := executor.DefaultRegistry()
	for ext, argv := range cfg.Interpreters {
		registry.Register(ext, argv...)
	}
	var exec domain.StageExecutor = executor.NewProcessExecutor(
		executor.WithRegistry(registry),
		executor.WithWorkDir(cfg.WorkDir),
		executor.WithArtifactDir(cfg.ArtifactDir),
		executor.WithLogger(logger),
	)
	if cfg.CaptureDir != "" {
		exec = executor.NewArchivingExecutor(exec, cfg.CaptureDir, logger)
	}
	return exec
}
