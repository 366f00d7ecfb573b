package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/waabox/stagerun/internal/config"
	"github.com/waabox/stagerun/internal/domain"
)

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stagerun.toml")
	content := `
artifact_dir = "data"
log_file = "/var/log/pipeline_log.txt"
log_level = "debug"

[interpreters]
".py" = ["python3", "-u"]

[[stages]]
name = "load_and_preprocess"
command = ["./load_and_preprocess.py"]

[[stages]]
name = "extract_epochs"
command = ["./extract_epochs.py", "--tmin", "-0.2"]
requires = ["_filtered_raw.fif"]
timeout = "30m"

[stages.env]
L_FREQ = "1.0"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArtifactDir != filepath.Join(dir, "data") {
		t.Errorf("expected artifact dir resolved against config dir, got '%s'", cfg.ArtifactDir)
	}
	if cfg.LogFile != "/var/log/pipeline_log.txt" {
		t.Errorf("expected absolute log file kept, got '%s'", cfg.LogFile)
	}
	if cfg.WorkDir != dir {
		t.Errorf("expected work dir to default to config dir, got '%s'", cfg.WorkDir)
	}
	if got := cfg.Interpreters[".py"]; len(got) != 2 || got[0] != "python3" {
		t.Errorf("expected python3 interpreter, got %v", got)
	}

	stages, err := cfg.Pipeline()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(stages))
	}
	if stages[1].Requires[0] != "_filtered_raw.fif" {
		t.Errorf("expected requirement '_filtered_raw.fif', got %v", stages[1].Requires)
	}
	if stages[1].Timeout != 30*time.Minute {
		t.Errorf("expected 30m timeout, got %s", stages[1].Timeout)
	}
	if stages[1].Env["L_FREQ"] != "1.0" {
		t.Errorf("expected stage env L_FREQ=1.0, got %v", stages[1].Env)
	}
	if len(stages[0].Requires) != 0 {
		t.Errorf("expected first stage to require nothing, got %v", stages[0].Requires)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stagerun.yaml")
	content := `
artifact_dir: /data/eeg
stages:
  - name: load
    command: ["./load.py"]
  - name: ica
    command: ["./ica.py"]
    requires: ["_epochs-epo.fif"]
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArtifactDir != "/data/eeg" {
		t.Errorf("expected '/data/eeg', got '%s'", cfg.ArtifactDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_EnvVarsTakePrecedence(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "stagerun.toml")
	content := `
artifact_dir = "/from/file"
log_file = "/from/file.log"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("STAGERUN_ARTIFACT_DIR", "/from/env")
	t.Setenv("STAGERUN_LOG_FILE", "/from/env.log")
	t.Setenv("STAGERUN_LOG_LEVEL", "warn")

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArtifactDir != "/from/env" {
		t.Errorf("expected env artifact dir, got '%s'", cfg.ArtifactDir)
	}
	if cfg.LogFile != "/from/env.log" {
		t.Errorf("expected env log file, got '%s'", cfg.LogFile)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected env log level, got '%s'", cfg.LogLevel)
	}
}

func TestLoad_MissingFileReturnsEmptyConfig(t *testing.T) {
	cfg, err := config.LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Stages) != 0 {
		t.Errorf("expected no stages, got %d", len(cfg.Stages))
	}
	if cfg.LogFileOrDefault() != "pipeline_log.txt" {
		t.Errorf("expected default log file, got '%s'", cfg.LogFileOrDefault())
	}
	if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "stagerun.toml")
	if err := os.WriteFile(configPath, []byte("artifact_dir = ["), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := config.LoadFrom(configPath); err == nil {
		t.Error("expected decode error")
	}
}

func TestPipeline_InvalidTimeout(t *testing.T) {
	cfg := config.Config{
		ArtifactDir: "/data",
		Stages:      []config.StageConfig{{Name: "a", Command: []string{"x"}, Timeout: "soon"}},
	}
	_, err := cfg.Pipeline()
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Field != "stages[0].timeout" {
		t.Errorf("expected field 'stages[0].timeout', got '%s'", cfgErr.Field)
	}
}

func TestValidate_RequiresArtifactDir(t *testing.T) {
	cfg := config.Config{Stages: []config.StageConfig{{Name: "a", Command: []string{"x"}}}}
	if err := cfg.Validate(); !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSave_RoundTripsStarter(t *testing.T) {
	for _, name := range []string{"stagerun.toml", "stagerun.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			if err := config.Save(path, config.Starter()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			cfg, err := config.LoadFrom(path)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			stages, err := cfg.Pipeline()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(stages) != 7 {
				t.Fatalf("expected 7 stages, got %d", len(stages))
			}
			if stages[3].Name != "erp_analysis" || stages[3].Requires[0] != "cleaned_*_epochs-epo.fif" {
				t.Errorf("unexpected erp stage: %+v", stages[3])
			}
			if stages[6].Timeout != 2*time.Hour {
				t.Errorf("expected 2h timeout on source_localization, got %s", stages[6].Timeout)
			}
		})
	}
}
