package gate_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waabox/stagerun/internal/domain"
	"github.com/waabox/stagerun/internal/gate"
)

func TestCheck_NoRequirementIsAlwaysReady(t *testing.T) {
	g := gate.NewWithLocator("/nowhere", func(string, string) (string, error) {
		t.Fatal("locator must not be called for a stage without requirements")
		return "", nil
	})
	d, err := g.Check(domain.Stage{Name: "load", Command: []string{"./load.py"}})
	require.NoError(t, err)
	assert.True(t, d.Ready)
	assert.Empty(t, d.Inputs)
	assert.Empty(t, d.Reason())
}

func TestCheck_ResolvesAllPatternsInOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"s_filtered_raw.fif", "s_epochs-epo.fif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	g := gate.New(dir)
	d, err := g.Check(domain.Stage{
		Name:     "ica",
		Command:  []string{"./ica.py"},
		Requires: []string{"_epochs-epo.fif", "_filtered_raw.fif"},
	})
	require.NoError(t, err)
	assert.True(t, d.Ready)
	assert.Equal(t, []string{
		filepath.Join(dir, "s_epochs-epo.fif"),
		filepath.Join(dir, "s_filtered_raw.fif"),
	}, d.Inputs)
}

func TestCheck_MissingArtifactBlocks(t *testing.T) {
	dir := t.TempDir()
	g := gate.New(dir)
	d, err := g.Check(domain.Stage{Name: "epochs", Command: []string{"x"}, Requires: []string{"_filtered"}})
	require.NoError(t, err)
	assert.False(t, d.Ready)
	require.NotNil(t, d.Blocked)
	assert.Contains(t, d.Reason(), "_filtered")
	assert.Contains(t, d.Reason(), dir)
	assert.ErrorIs(t, d.Blocked, domain.ErrArtifactNotFound)
}

func TestCheck_MissingDirectoryIsError(t *testing.T) {
	g := gate.New(filepath.Join(t.TempDir(), "absent"))
	_, err := g.Check(domain.Stage{Name: "epochs", Command: []string{"x"}, Requires: []string{"_filtered"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestCheck_LocatorFailurePropagates(t *testing.T) {
	boom := errors.New("permission denied")
	g := gate.NewWithLocator("/data", func(string, string) (string, error) { return "", boom })
	_, err := g.Check(domain.Stage{Name: "x", Command: []string{"x"}, Requires: []string{"_a"}})
	assert.ErrorIs(t, err, boom)
}

func TestCheck_UsesNewestCandidate(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "run_epochs-epo.fif")
	newer := filepath.Join(dir, "run2_epochs-epo.fif")
	require.NoError(t, os.WriteFile(old, nil, 0o644))
	require.NoError(t, os.WriteFile(newer, nil, 0o644))
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(time.Minute), base.Add(time.Minute)))

	d, err := gate.New(dir).Check(domain.Stage{Name: "ica", Command: []string{"x"}, Requires: []string{"_epochs-epo.fif"}})
	require.NoError(t, err)
	assert.Equal(t, []string{newer}, d.Inputs)
}
