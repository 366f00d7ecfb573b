// Package pipeline drives the configured stages in order, gating each on its
// input artifacts and stopping at the first failure.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/waabox/stagerun/internal/artifact"
	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/gate"
	"github.com/waabox/stagerun/internal/runlog"
)

// Config is the run-level configuration handed to the controller.
type Config struct {
	ArtifactDir string
	// WorkDir is where stages run; logged at start. Empty means the cwd.
	WorkDir string
}

// Controller executes a stage list sequentially. It holds no run state between
// calls to Run.
type Controller struct {
	cfg      Config
	gate     *gate.Gate
	executor domain.StageExecutor
	logger   *runlog.Logger
	observer Observer
	newID    func() string
	now      func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver registers an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithIDGenerator replaces the run id generator (uuid v4 by default).
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) { c.newID = fn }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithGate replaces the dependency gate built from cfg.ArtifactDir.
func WithGate(g *gate.Gate) Option {
	return func(c *Controller) { c.gate = g }
}

// New creates a controller. A nil logger discards every record.
func New(cfg Config, executor domain.StageExecutor, logger *runlog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = runlog.Discard()
	}
	c := &Controller{
		cfg:      cfg,
		gate:     gate.New(cfg.ArtifactDir),
		executor: executor,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes stages in order and returns the finalized run. The returned run
// is always terminal: Completed when every stage exited 0, Failed otherwise,
// with EndTime set in both cases.
func (c *Controller) Run(ctx context.Context, stages []domain.Stage) (run domain.PipelineRun) {
	run = domain.PipelineRun{ID: c.newID(), Status: domain.RunIdle}
	log := c.logger.With("run_id", run.ID)

	run.StartTime = c.now()
	run.Status = domain.RunRunning
	log.Info("pipeline execution started",
		"stages", len(stages),
		"artifact_dir", c.cfg.ArtifactDir,
		"work_dir", c.workDir(),
	)
	c.notify(Event{Kind: EventRunStarted, Index: -1, Stages: stages, Run: run})

	defer c.finalize(&run, log)

	if err := c.preflight(stages); err != nil {
		log.WithError(err).Error("pipeline configuration rejected")
		fail(&run, err)
		return run
	}

	ctx = domain.WithRunID(ctx, run.ID)
	for i, stage := range stages {
		stageLog := log.With("stage", stage.Name)

		if err := ctx.Err(); err != nil {
			fail(&run, fmt.Errorf("run interrupted before stage %q: %w", stage.Name, err))
			stageLog.Warn("stage not started", "reason", run.Reason)
			return run
		}

		decision, err := c.gate.Check(stage)
		if err != nil {
			stageLog.WithError(err).Error("dependency check failed")
			fail(&run, err)
			c.notify(Event{Kind: EventStageFinished, Index: i, Stage: stage, Status: domain.StageBlocked, Reason: run.Reason, Run: run})
			return run
		}
		if !decision.Ready {
			stageLog.WithError(decision.Blocked).Error("stage blocked by missing artifact")
			fail(&run, decision.Blocked)
			c.notify(Event{Kind: EventStageFinished, Index: i, Stage: stage, Status: domain.StageBlocked, Reason: run.Reason, Run: run})
			return run
		}

		stageLog.Debug("stage inputs resolved", "inputs", strings.Join(decision.Inputs, ","))
		c.notify(Event{Kind: EventStageGated, Index: i, Stage: stage, Status: domain.StageGated, Inputs: decision.Inputs, Run: run})

		stageLog.Info("stage started", "position", fmt.Sprintf("%d/%d", i+1, len(stages)), "inputs", strings.Join(decision.Inputs, ","))
		c.notify(Event{Kind: EventStageStarted, Index: i, Stage: stage, Status: domain.StageRunning, Inputs: decision.Inputs, Run: run})

		result, execErr := c.executor.Execute(ctx, stage, decision.Inputs)
		result.StageName = stage.Name
		if result.Duration < 0 {
			result.Duration = 0
		}
		run.Results = append(run.Results, result)

		stageErr := execErr
		if stageErr == nil && result.ExitCode != 0 {
			stageErr = &domain.StageFailureError{Stage: stage.Name, ExitCode: result.ExitCode, Stderr: result.Stderr}
		}
		logOutput(stageLog, result, stageErr == nil)

		if stageErr != nil {
			stageLog.WithError(stageErr).Error("stage failed", "exit_code", result.ExitCode, "duration", result.Duration.String())
			fail(&run, stageErr)
			c.notify(Event{Kind: EventStageFinished, Index: i, Stage: stage, Status: domain.StageFailed, Result: &result, Reason: run.Reason, Run: run})
			return run
		}

		stageLog.Info("stage finished", "duration", result.Duration.String())
		c.notify(Event{Kind: EventStageFinished, Index: i, Stage: stage, Status: domain.StageSucceeded, Result: &result, Run: run})
	}

	run.Status = domain.RunCompleted
	return run
}

func (c *Controller) preflight(stages []domain.Stage) error {
	if err := domain.ValidateStages(stages); err != nil {
		return err
	}
	return artifact.CheckDir(c.gate.Dir())
}

// finalize runs on every exit path from Run.
func (c *Controller) finalize(run *domain.PipelineRun, log *runlog.Logger) {
	if !run.Status.Terminal() {
		fail(run, errors.New("run aborted"))
	}
	run.EndTime = c.now()
	if run.EndTime.Before(run.StartTime) {
		run.EndTime = run.StartTime
	}

	total := run.Duration().String()
	if run.Status == domain.RunCompleted {
		log.Info("pipeline executed successfully", "stages", len(run.Results), "total_duration", total)
	} else {
		log.Error("pipeline execution stopped due to an error", "reason", run.Reason, "stages_attempted", len(run.Results), "total_duration", total)
	}
	log.Info("total pipeline execution time", "status", string(run.Status), "total_duration", total, "summary", run.Summary())
	c.notify(Event{Kind: EventRunFinished, Index: -1, Run: *run, Reason: run.Reason})
}

func (c *Controller) notify(e Event) {
	if c.observer == nil {
		return
	}
	e.Run.Results = append([]domain.ExecutionResult(nil), e.Run.Results...)
	c.observer.Observe(e)
}

func (c *Controller) workDir() string {
	if c.cfg.WorkDir != "" {
		return c.cfg.WorkDir
	}
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
}

func fail(run *domain.PipelineRun, err error) {
	run.Status = domain.RunFailed
	run.Err = err
	run.Reason = err.Error()
}

func logOutput(log *runlog.Logger, result domain.ExecutionResult, ok bool) {
	if out := strings.TrimRight(result.Stdout, "\n"); out != "" {
		log.Info("stage stdout", "output", out)
	}
	errOut := strings.TrimRight(result.Stderr, "\n")
	switch {
	case errOut == "":
	case ok:
		log.Warn("stage stderr", "output", errOut)
	default:
		log.Error("stage stderr", "output", errOut)
	}
}
