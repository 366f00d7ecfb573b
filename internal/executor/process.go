// Package executor launches pipeline stages as independent processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/runlog"
)

// Environment variables every stage receives.
const (
	EnvArtifactDir = "STAGERUN_ARTIFACT_DIR"
	EnvStage       = "STAGERUN_STAGE"
	EnvRunID       = "STAGERUN_RUN_ID"
	EnvInput       = "STAGERUN_INPUT"
)

// defaultWaitDelay bounds how long Wait keeps reading output after the stage
// exits or is killed, in case a grandchild still holds the pipes open.
const defaultWaitDelay = 5 * time.Second

// ProcessExecutor runs each stage as a child process and buffers its output.
type ProcessExecutor struct {
	registry    *Registry
	workDir     string
	artifactDir string
	environ     func() []string
	waitDelay   time.Duration
	logger      *runlog.Logger
}

// Ensure ProcessExecutor implements StageExecutor.
var _ domain.StageExecutor = (*ProcessExecutor)(nil)

// Option configures a ProcessExecutor.
type Option func(*ProcessExecutor)

// WithRegistry sets the interpreter registry. A nil registry runs commands as given.
func WithRegistry(r *Registry) Option {
	return func(e *ProcessExecutor) { e.registry = r }
}

// WithWorkDir sets the directory stages run in. Empty means the runner's cwd.
func WithWorkDir(dir string) Option {
	return func(e *ProcessExecutor) { e.workDir = dir }
}

// WithArtifactDir exports the artifact directory to stages.
func WithArtifactDir(dir string) Option {
	return func(e *ProcessExecutor) { e.artifactDir = dir }
}

// WithEnviron replaces the inherited environment source.
func WithEnviron(fn func() []string) Option {
	return func(e *ProcessExecutor) { e.environ = fn }
}

// WithWaitDelay replaces the delay after which output pipes still held open
// by a stage's background children are closed.
func WithWaitDelay(d time.Duration) Option {
	return func(e *ProcessExecutor) { e.waitDelay = d }
}

// WithLogger sets the logger used for stage-level warnings.
func WithLogger(l *runlog.Logger) Option {
	return func(e *ProcessExecutor) { e.logger = l }
}

// NewProcessExecutor creates an executor using DefaultRegistry and the
// inherited environment unless overridden.
func NewProcessExecutor(opts ...Option) *ProcessExecutor {
	e := &ProcessExecutor{
		registry:  DefaultRegistry(),
		environ:   os.Environ,
		waitDelay: defaultWaitDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = runlog.Discard()
	}
	return e
}

// Command returns the argv the stage will be launched with.
func (e *ProcessExecutor) Command(stage domain.Stage, inputs []string) []string {
	argv := e.registry.Resolve(stage.Command)
	return append(argv, inputs...)
}

// Execute launches the stage with inputs appended to its argv and blocks until
// it exits. Stdout and stderr are captured in full.
func (e *ProcessExecutor) Execute(ctx context.Context, stage domain.Stage, inputs []string) (domain.ExecutionResult, error) {
	result := domain.ExecutionResult{
		StageName: stage.Name,
		Inputs:    inputs,
		ExitCode:  -1,
	}
	argv := e.Command(stage, inputs)
	if len(argv) == 0 {
		result.Err = &domain.SpawnError{Stage: stage.Name, Err: errors.New("empty command")}
		return result, result.Err
	}

	runCtx := ctx
	if stage.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, stage.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = e.workDir
	cmd.Env = e.env(ctx, stage, inputs)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcess(cmd)
	cmd.Cancel = func() error { return terminateProcess(cmd) }
	cmd.WaitDelay = e.waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		result.Err = &domain.SpawnError{Stage: stage.Name, Command: argv, Err: err}
		return result, result.Err
	}
	waitErr := cmd.Wait()
	result.Duration = time.Since(start)
	if result.Duration < 0 {
		result.Duration = 0
	}
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if runErr := runCtx.Err(); runErr != nil {
		if errors.Is(runErr, context.DeadlineExceeded) && ctx.Err() == nil {
			result.Err = &domain.TimeoutError{Stage: stage.Name, Timeout: stage.Timeout}
		} else {
			result.Err = fmt.Errorf("stage %q interrupted: %w", stage.Name, runErr)
		}
		return result, result.Err
	}
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil, errors.As(waitErr, &exitErr):
		return result, nil
	case errors.Is(waitErr, exec.ErrWaitDelay) && result.ExitCode == 0:
		// The stage itself exited 0; a background child kept the pipes open.
		e.logger.Warn("stage output may be truncated: a child process kept stdout or stderr open",
			"stage", stage.Name, "wait_delay", e.waitDelay.String())
		return result, nil
	}
	result.Err = fmt.Errorf("waiting for stage %q: %w", stage.Name, waitErr)
	return result, result.Err
}

func (e *ProcessExecutor) env(ctx context.Context, stage domain.Stage, inputs []string) []string {
	env := append([]string(nil), e.environ()...)
	env = append(env, EnvStage+"="+stage.Name)
	if e.artifactDir != "" {
		env = append(env, EnvArtifactDir+"="+e.artifactDir)
	}
	if id := domain.RunIDFrom(ctx); id != "" {
		env = append(env, EnvRunID+"="+id)
	}
	if len(inputs) > 0 {
		env = append(env, EnvInput+"="+inputs[0])
	}
	keys := make([]string, 0, len(stage.Env))
	for k := range stage.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+stage.Env[k])
	}
	return env
}
