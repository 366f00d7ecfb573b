// Package artifact finds the files stages exchange through the artifact directory.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/waabox/stagerun/internal/domain"
)

// Candidate is a file that matched a pattern.
type Candidate struct {
	Path    string
	Name    string
	ModTime time.Time
}

// IsGlob reports whether pattern is matched as a glob rather than a suffix.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// Matches reports whether a file name satisfies pattern. Glob patterns are
// matched against the whole name; anything else is a filename suffix.
func Matches(name, pattern string) (bool, error) {
	if IsGlob(pattern) {
		ok, err := filepath.Match(pattern, name)
		if err != nil {
			return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		return ok, nil
	}
	return strings.HasSuffix(name, pattern), nil
}

// CheckDir verifies that dir exists and is a directory. A failure is a
// ConfigError, never an artifact-not-found condition.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &domain.ConfigError{Field: "artifact_dir", Reason: fmt.Sprintf("directory %s does not exist", dir), Err: err}
		}
		return fmt.Errorf("stat artifact directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return &domain.ConfigError{Field: "artifact_dir", Reason: fmt.Sprintf("%s is not a directory", dir)}
	}
	return nil
}

// Candidates lists regular files in dir matching pattern, newest first.
// Equal modification times are ordered by descending name.
func Candidates(dir, pattern string) ([]Candidate, error) {
	if err := CheckDir(dir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading artifact directory %s: %w", dir, err)
	}
	var found []Candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := Matches(e.Name(), pattern)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// Stat follows symlinks: the target must be a regular file and its
		// mtime is the one compared.
		info, err := os.Stat(path)
		if err != nil {
			// Removed since ReadDir, or a dangling symlink.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		found = append(found, Candidate{
			Path:    path,
			Name:    e.Name(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].ModTime.Equal(found[j].ModTime) {
			return found[i].ModTime.After(found[j].ModTime)
		}
		return found[i].Name > found[j].Name
	})
	return found, nil
}

// Locate returns the path of the most recently modified file in dir whose
// name matches pattern. It returns an error wrapping domain.ErrArtifactNotFound
// when nothing matches, and a domain.ConfigError when dir is missing.
func Locate(dir, pattern string) (string, error) {
	found, err := Candidates(dir, pattern)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: no file matching %q in %s", domain.ErrArtifactNotFound, pattern, dir)
	}
	return found[0].Path, nil
}
