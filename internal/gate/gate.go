// Package gate decides whether a stage's input artifacts are present before it
// is allowed to start.
package gate

import (
	"errors"
	"fmt"

	"github.com/waabox/stagerun/internal/artifact"
	"github.com/waabox/stagerun/internal/domain"
)

// Decision is the outcome of a gate check.
type Decision struct {
	Ready bool
	// Inputs holds the resolved artifact paths, in the order the stage
	// declared its patterns. Empty when the stage requires nothing.
	Inputs []string
	// Blocked is set when Ready is false.
	Blocked *domain.MissingArtifactError
}

// Reason returns the human-readable block reason, or "" when ready.
func (d Decision) Reason() string {
	if d.Blocked == nil {
		return ""
	}
	return d.Blocked.Error()
}

// LocateFunc resolves a pattern to a single path inside dir.
type LocateFunc func(dir, pattern string) (string, error)

// Gate checks stage preconditions against one artifact directory.
type Gate struct {
	dir    string
	locate LocateFunc
}

// New creates a gate that searches dir with artifact.Locate.
func New(dir string) *Gate {
	return &Gate{dir: dir, locate: artifact.Locate}
}

// NewWithLocator creates a gate with a custom locate function.
func NewWithLocator(dir string, locate LocateFunc) *Gate {
	return &Gate{dir: dir, locate: locate}
}

// Dir returns the artifact directory the gate searches.
func (g *Gate) Dir() string {
	return g.dir
}

// Check resolves every pattern the stage requires. A missing artifact yields
// a blocked Decision with a nil error; any other failure (missing directory,
// bad pattern, I/O) is returned as an error.
func (g *Gate) Check(stage domain.Stage) (Decision, error) {
	if len(stage.Requires) == 0 {
		return Decision{Ready: true}, nil
	}
	inputs := make([]string, 0, len(stage.Requires))
	for _, pattern := range stage.Requires {
		path, err := g.locate(g.dir, pattern)
		if errors.Is(err, domain.ErrArtifactNotFound) {
			return Decision{Blocked: &domain.MissingArtifactError{
				Stage:   stage.Name,
				Pattern: pattern,
				Dir:     g.dir,
			}}, nil
		}
		if err != nil {
			return Decision{}, fmt.Errorf("checking %q for stage %q: %w", pattern, stage.Name, err)
		}
		inputs = append(inputs, path)
	}
	return Decision{Ready: true, Inputs: inputs}, nil
}
