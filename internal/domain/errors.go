package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrArtifactNotFound is returned by the artifact locator when no file matches.
// Callers check for it with errors.Is to tell "absent" apart from I/O failures.
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrInvalidConfig is matched by every ConfigError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigError reports a structural problem in the stage list or a configured
// directory. A run cannot succeed while one exists.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingArtifactError is raised by the dependency gate before a stage spawns.
type MissingArtifactError struct {
	Stage   string
	Pattern string
	Dir     string
}

func (e *MissingArtifactError) Error() string {
	return fmt.Sprintf("stage %q blocked: no artifact matching %q in %s", e.Stage, e.Pattern, e.Dir)
}

func (e *MissingArtifactError) Unwrap() error { return ErrArtifactNotFound }

// SpawnError means the stage program could not be launched at all.
type SpawnError struct {
	Stage   string
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("stage %q could not be started (%s): %v", e.Stage, strings.Join(e.Command, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// StageFailureError means the stage launched and exited non-zero.
type StageFailureError struct {
	Stage    string
	ExitCode int
	Stderr   string
}

func (e *StageFailureError) Error() string {
	return fmt.Sprintf("stage %q exited with code %d", e.Stage, e.ExitCode)
}

// TimeoutError means the stage exceeded its configured timeout and was killed.
type TimeoutError struct {
	Stage   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("stage %q timed out after %s", e.Stage, e.Timeout)
}
