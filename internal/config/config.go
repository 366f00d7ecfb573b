package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/waabox/stagerun/internal/domain"
)

// StageConfig describes one pipeline stage as written in the config file.
type StageConfig struct {
	Name     string            `toml:"name" yaml:"name"`
	Command  []string          `toml:"command" yaml:"command"`
	Requires []string          `toml:"requires,omitempty" yaml:"requires,omitempty"`
	Timeout  string            `toml:"timeout,omitempty" yaml:"timeout,omitempty"`
	Env      map[string]string `toml:"env,omitempty" yaml:"env,omitempty"`
}

// Config holds all stagerun configuration.
type Config struct {
	ArtifactDir  string              `toml:"artifact_dir" yaml:"artifact_dir"`
	WorkDir      string              `toml:"work_dir,omitempty" yaml:"work_dir,omitempty"`
	CaptureDir   string              `toml:"capture_dir,omitempty" yaml:"capture_dir,omitempty"`
	LogFile      string              `toml:"log_file" yaml:"log_file"`
	LogLevel     string              `toml:"log_level,omitempty" yaml:"log_level,omitempty"`
	LogFormat    string              `toml:"log_format,omitempty" yaml:"log_format,omitempty"`
	Interpreters map[string][]string `toml:"interpreters,omitempty" yaml:"interpreters,omitempty"`
	Stages       []StageConfig       `toml:"stages" yaml:"stages"`
}

const defaultLogFile = "pipeline_log.txt"

// LogFileOrDefault returns LogFile if set, otherwise defaultLogFile.
func (c Config) LogFileOrDefault() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return defaultLogFile
}

// LoadFrom reads configuration from the given file path. Files ending in
// .yaml or .yml are decoded as YAML, anything else as TOML.
// If the file does not exist, it returns an empty config without error.
// Relative directories in the file are resolved against the file's directory.
// Environment variables always take precedence over file values:
//   - STAGERUN_ARTIFACT_DIR overrides artifact_dir
//   - STAGERUN_LOG_FILE     overrides log_file
//   - STAGERUN_LOG_LEVEL    overrides log_level
func LoadFrom(path string) (Config, error) {
	var cfg Config
	if data, err := os.ReadFile(path); err == nil {
		if isYAML(path) {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("decoding %s: %w", path, err)
			}
		} else if _, err := toml.Decode(string(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("decoding %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// DefaultConfigPath returns the default path for the stagerun config file.
func DefaultConfigPath() string {
	return "stagerun.toml"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STAGERUN_ARTIFACT_DIR"); v != "" {
		cfg.ArtifactDir = v
	}
	if v := os.Getenv("STAGERUN_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("STAGERUN_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	c.ArtifactDir = resolve(c.ArtifactDir)
	c.CaptureDir = resolve(c.CaptureDir)
	c.LogFile = resolve(c.LogFile)
	if c.WorkDir == "" {
		c.WorkDir = base
	} else {
		c.WorkDir = resolve(c.WorkDir)
	}
}

// Validate checks the configuration without touching the stage programs.
// Every problem is reported as a *domain.ConfigError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ArtifactDir) == "" {
		return &domain.ConfigError{Field: "artifact_dir", Reason: "not set"}
	}
	_, err := c.Pipeline()
	return err
}

// Pipeline converts the stage entries into validated domain stages, in order.
func (c Config) Pipeline() ([]domain.Stage, error) {
	stages := make([]domain.Stage, 0, len(c.Stages))
	for i, sc := range c.Stages {
		var timeout time.Duration
		if sc.Timeout != "" {
			d, err := time.ParseDuration(sc.Timeout)
			if err != nil {
				return nil, &domain.ConfigError{Field: fmt.Sprintf("stages[%d].timeout", i), Reason: "invalid duration", Err: err}
			}
			timeout = d
		}
		stages = append(stages, domain.Stage{
			Name:     sc.Name,
			Command:  append([]string(nil), sc.Command...),
			Requires: append([]string(nil), sc.Requires...),
			Timeout:  timeout,
			Env:      copyEnv(sc.Env),
		})
	}
	if err := domain.ValidateStages(stages); err != nil {
		return nil, err
	}
	return stages, nil
}

// Save writes cfg to the given path, creating parent directories as needed.
// The encoding follows the file extension as in LoadFrom.
// Existing file contents are overwritten.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var buf bytes.Buffer
	if isYAML(path) {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
	} else if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Starter returns the EEG analysis pipeline the runner was built for: seven
// Python scripts chained through MNE .fif artifacts.
func Starter() Config {
	return Config{
		ArtifactDir: ".",
		LogFile:     defaultLogFile,
		LogLevel:    "info",
		LogFormat:   "text",
		Interpreters: map[string][]string{
			".py": {"python"},
		},
		Stages: []StageConfig{
			{Name: "load_and_preprocess", Command: []string{"./load_and_preprocess.py"}},
			{Name: "extract_epochs", Command: []string{"./extract_epochs.py"}, Requires: []string{"_filtered_raw.fif"}},
			{Name: "ica_analysis", Command: []string{"./ica_analysis.py"}, Requires: []string{"_epochs-epo.fif"}},
			{Name: "erp_analysis", Command: []string{"./erp_analysis.py"}, Requires: []string{"cleaned_*_epochs-epo.fif"}},
			{Name: "psd_analysis", Command: []string{"./psd_analysis.py"}, Requires: []string{"cleaned_*_epochs-epo.fif"}},
			{Name: "visualizations", Command: []string{"./visualizations.py"}, Requires: []string{"_epochs-epo.fif"}},
			{Name: "source_localization", Command: []string{"./source_localization.py"}, Requires: []string{"cleaned_*_epochs-epo.fif"}, Timeout: "2h"},
		},
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func copyEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
