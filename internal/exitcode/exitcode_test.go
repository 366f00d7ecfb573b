package exitcode

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/waabox/stagerun/internal/domain"
)

func TestDetermineExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, Success},
		{"stage failure", &domain.StageFailureError{Stage: "ica", ExitCode: 1}, Failed},
		{"missing artifact", &domain.MissingArtifactError{Stage: "ica", Pattern: "_epochs-epo.fif", Dir: "/data"}, Failed},
		{"config error", fmt.Errorf("pipeline failed: %w", &domain.ConfigError{Field: "artifact_dir", Reason: "does not exist"}), ConfigError},
		{"usage", fmt.Errorf("%w: accepts 2 args", ErrUsage), ConfigError},
		{"interrupted", fmt.Errorf("run interrupted: %w", context.Canceled), Interrupted},
		{"generic", errors.New("boom"), Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetermineExitCode(tt.err); got != tt.expected {
				t.Errorf("DetermineExitCode(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestDescription(t *testing.T) {
	if Description(Interrupted) != "Interrupted" {
		t.Errorf("unexpected description %q", Description(Interrupted))
	}
	if Description(42) != "Unknown error" {
		t.Errorf("unexpected description %q", Description(42))
	}
}
