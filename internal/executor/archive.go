package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/runlog"
)

// ArchivingExecutor wraps a StageExecutor and writes each stage's captured
// output to <dir>/<run id>/<NN>-<stage>.log. Archive failures are logged and
// never change the stage result.
type ArchivingExecutor struct {
	inner  domain.StageExecutor
	dir    string
	logger *runlog.Logger
	seq    map[string]int
}

// Ensure ArchivingExecutor implements StageExecutor.
var _ domain.StageExecutor = (*ArchivingExecutor)(nil)

// NewArchivingExecutor creates an ArchivingExecutor rooted at dir.
func NewArchivingExecutor(inner domain.StageExecutor, dir string, logger *runlog.Logger) *ArchivingExecutor {
	if logger == nil {
		logger = runlog.Discard()
	}
	return &ArchivingExecutor{
		inner:  inner,
		dir:    dir,
		logger: logger,
		seq:    make(map[string]int),
	}
}

func (a *ArchivingExecutor) Execute(ctx context.Context, stage domain.Stage, inputs []string) (domain.ExecutionResult, error) {
	result, err := a.inner.Execute(ctx, stage, inputs)

	runID := domain.RunIDFrom(ctx)
	if runID == "" {
		runID = "unscoped"
	}
	a.seq[runID]++
	path, archiveErr := a.write(runID, a.seq[runID], result, err)
	if archiveErr != nil {
		a.logger.Warn("could not archive stage output", "stage", stage.Name, "error", archiveErr.Error())
	} else {
		a.logger.Debug("archived stage output", "stage", stage.Name, "path", path)
	}
	return result, err
}

func (a *ArchivingExecutor) write(runID string, seq int, result domain.ExecutionResult, execErr error) (string, error) {
	dir := filepath.Join(a.dir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%02d-%s.log", seq, safeName(result.StageName)))

	var sb strings.Builder
	fmt.Fprintf(&sb, "stage: %s\n", result.StageName)
	if len(result.Inputs) > 0 {
		fmt.Fprintf(&sb, "inputs: %s\n", strings.Join(result.Inputs, " "))
	}
	fmt.Fprintf(&sb, "exit_code: %d\nduration: %s\n", result.ExitCode, result.Duration)
	if execErr != nil {
		fmt.Fprintf(&sb, "error: %v\n", execErr)
	}
	fmt.Fprintf(&sb, "\n--- stdout ---\n%s\n--- stderr ---\n%s\n", result.Stdout, result.Stderr)

	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	return path, nil
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
