package exitcode

import (
	"context"
	"errors"
	"os"

	"github.com/waabox/stagerun/internal/domain"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates every stage completed
	Success = 0

	// Failed indicates a failed pipeline run or a general error
	Failed = 1

	// ConfigError indicates invalid configuration, bad flags or a missing directory
	ConfigError = 2

	// Interrupted indicates the run was stopped by SIGINT or SIGTERM
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// DetermineExitCode maps an error returned by a command to an exit code.
func DetermineExitCode(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, context.Canceled):
		return Interrupted
	case errors.Is(err, domain.ErrInvalidConfig), errors.Is(err, ErrUsage):
		return ConfigError
	default:
		return Failed
	}
}

// ErrUsage marks command-line usage problems.
var ErrUsage = errors.New("usage error")

// Description returns a human-readable description of an exit code
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case Failed:
		return "Pipeline failed"
	case ConfigError:
		return "Configuration error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
