package domain

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus represents the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunIdle      RunStatus = "idle"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// StageStatus represents the state of a single stage within a run.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageGated     StageStatus = "gated"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageBlocked   StageStatus = "blocked"
	StageSkipped   StageStatus = "skipped"
)

// Stage is one ordered step of the pipeline. Stages are values; build them
// with NewStage so the invariants below hold.
type Stage struct {
	Name    string
	Command []string
	// Requires lists the artifact patterns (filename suffix or glob) that must
	// resolve before the stage may start. Empty for the first stage.
	Requires []string
	Timeout  time.Duration
	Env      map[string]string
}

// NewStage validates and builds a Stage.
func NewStage(name string, command []string, requires ...string) (Stage, error) {
	s := Stage{Name: name, Command: command, Requires: requires}
	if err := s.Validate(); err != nil {
		return Stage{}, err
	}
	return s, nil
}

// Validate reports structural problems with the stage as a ConfigError.
func (s Stage) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ConfigError{Field: "stages.name", Reason: "stage name is empty"}
	}
	if len(s.Command) == 0 || strings.TrimSpace(s.Command[0]) == "" {
		return &ConfigError{Field: "stages." + s.Name + ".command", Reason: "command is empty"}
	}
	for _, p := range s.Requires {
		if strings.TrimSpace(p) == "" {
			return &ConfigError{Field: "stages." + s.Name + ".requires", Reason: "empty artifact pattern"}
		}
	}
	if s.Timeout < 0 {
		return &ConfigError{Field: "stages." + s.Name + ".timeout", Reason: "timeout is negative"}
	}
	return nil
}

// ValidateStages checks every stage and that names are unique.
func ValidateStages(stages []Stage) error {
	if len(stages) == 0 {
		return &ConfigError{Field: "stages", Reason: "no stages configured"}
	}
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if err := s.Validate(); err != nil {
			return err
		}
		if seen[s.Name] {
			return &ConfigError{Field: "stages." + s.Name, Reason: "duplicate stage name"}
		}
		seen[s.Name] = true
	}
	return nil
}

// ExecutionResult is the outcome of one stage invocation.
type ExecutionResult struct {
	StageName string
	Inputs    []string
	ExitCode  int
	Stdout    string
	Stderr    string
	Duration  time.Duration
	// Err is set when the process could not be spawned or was killed
	// (timeout, interrupt). A plain non-zero exit leaves it nil.
	Err error
}

// Succeeded reports whether the stage launched and exited 0.
func (r ExecutionResult) Succeeded() bool {
	return r.Err == nil && r.ExitCode == 0
}

// PipelineRun aggregates one end-to-end execution.
type PipelineRun struct {
	ID        string
	StartTime time.Time
	EndTime   time.Time
	Results   []ExecutionResult
	Status    RunStatus
	// Reason is a human-readable explanation, set when Status is RunFailed.
	Reason string
	Err    error
}

// Duration returns the total wall-clock time of the run.
func (r PipelineRun) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Summary returns the one-line run summary used in the final log entry.
func (r PipelineRun) Summary() string {
	if r.Status == RunFailed {
		return fmt.Sprintf("pipeline %s after %d stage(s) in %s: %s",
			r.Status, len(r.Results), r.Duration().Round(time.Millisecond), r.Reason)
	}
	return fmt.Sprintf("pipeline %s: %d stage(s) in %s",
		r.Status, len(r.Results), r.Duration().Round(time.Millisecond))
}
