package runlog_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/runlog"
)

func TestOpen_WritesToFileAndConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pipeline_log.txt")
	var console bytes.Buffer

	l, err := runlog.Open(runlog.Config{Level: runlog.LevelInfo, FilePath: path, Console: &console})
	require.NoError(t, err)
	l.Info("stage started", "stage", "load")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, out := range []string{string(data), console.String()} {
		assert.Contains(t, out, "level=INFO")
		assert.Contains(t, out, `msg="stage started"`)
		assert.Contains(t, out, "stage=load")
		assert.Contains(t, out, "time=")
	}
}

func TestOpen_AppendsToExistingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline_log.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous run\n"), 0o644))

	l, err := runlog.Open(runlog.Config{FilePath: path})
	require.NoError(t, err)
	l.Info("next run")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "previous run\n"))
	assert.Contains(t, string(data), "next run")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := runlog.New(&buf, runlog.LevelWarn, runlog.FormatText)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_MultilineOutputStaysOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	l := runlog.New(&buf, runlog.LevelInfo, runlog.FormatText)
	l.Info("stage output", "stream", "stdout", "output", "line one\nline two\n")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestWithError_AddsKind(t *testing.T) {
	var buf bytes.Buffer
	l := runlog.New(&buf, runlog.LevelInfo, runlog.FormatJSON)
	l.WithError(&domain.MissingArtifactError{Stage: "epochs", Pattern: "_filtered", Dir: "/data"}).Error("stage blocked")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "missing_artifact", rec["kind"])
	assert.Equal(t, "_filtered", rec["pattern"])
	assert.Equal(t, "ERROR", rec["level"])
}

func TestParseLevelAndFormat(t *testing.T) {
	assert.Equal(t, runlog.LevelDebug, runlog.ParseLevel("DEBUG"))
	assert.Equal(t, runlog.LevelWarn, runlog.ParseLevel("warning"))
	assert.Equal(t, runlog.LevelInfo, runlog.ParseLevel("bogus"))
	assert.Equal(t, runlog.FormatJSON, runlog.ParseFormat("JSON"))
	assert.Equal(t, runlog.FormatText, runlog.ParseFormat(""))
}
