// Package appconfig holds the orchestrator's persisted configuration,
// loaded from <data_dir>/config.yaml with sensible defaults when the file
// is absent, in the same style as the teacher's internal/config package.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all auto-iflow orchestrator configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	DebugMode bool `yaml:"debug_mode"`

	Models     ModelsConfig     `yaml:"models"`
	Security   SecurityConfig   `yaml:"security"`
	Phases     PhasesConfig     `yaml:"phases"`
	PostTest   PostTestConfig   `yaml:"post_test"`
	Session    SessionConfig    `yaml:"session"`
	ProjectIdx ProjectIndexConf `yaml:"project_index"`
	Logging    LoggingConfig    `yaml:"logging"`

	// Env-only overrides (spec.md §6): these are never persisted to
	// config.yaml, only ever set from the process environment at Load
	// time, mirroring the teacher's convention of keeping one-shot CLI
	// overrides out of the saved config document.
	ProjectDir         string   `yaml:"-"`
	SpecDirOverride    string   `yaml:"-"`
	TaskTypeOverride   string   `yaml:"-"`
	NoiseProfile       string   `yaml:"-"`
	ManualVerification bool     `yaml:"-"`
	BlockTestCommands  bool     `yaml:"-"`
	TestPlanOverride   []string `yaml:"-"`
}

// ModelsConfig configures the model registry/resolver layer.
type ModelsConfig struct {
	RegistryPath    string `yaml:"registry_path"`
	ProjectEnvPath  string `yaml:"project_env_path"`
	AppSettingsPath string `yaml:"app_settings_path"`
}

// SecurityConfig configures the command gate.
type SecurityConfig struct {
	AllowlistFilename string `yaml:"allowlist_filename"`
	ProfileFilename   string `yaml:"profile_filename"`
}

// PhasesConfig configures phase orchestration (the per-phase summary word
// limit).
type PhasesConfig struct {
	SummaryMaxWords int `yaml:"summary_max_words"`
}

// PostTestConfig configures the post-code test runner defaults.
type PostTestConfig struct {
	DefaultTimeoutSec float64 `yaml:"default_timeout_sec"`
	DefaultOutputCap  int     `yaml:"default_output_cap"`
	SmartCap          int     `yaml:"smart_cap"`
}

// SessionConfig configures the agent session runtime.
type SessionConfig struct {
	IdleTimeoutSec int `yaml:"idle_timeout_sec"`
}

// ProjectIndexConf configures the project-index cache.
type ProjectIndexConf struct {
	TTLSeconds int `yaml:"ttl_seconds"`
}

// LoggingConfig mirrors the teacher's logging section.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in default configuration, used whenever
// no config.yaml exists on disk yet.
func DefaultConfig() *Config {
	return &Config{
		Name:      "auto-iflow",
		Version:   "1.0.0",
		DebugMode: false,
		Models: ModelsConfig{
			RegistryPath:    "models.json",
			ProjectEnvPath:  "project.env.json",
			AppSettingsPath: "",
		},
		Security: SecurityConfig{
			AllowlistFilename: ".auto-iflow-allowlist",
			ProfileFilename:   ".auto-iflow-security.json",
		},
		Phases: PhasesConfig{
			SummaryMaxWords: 500,
		},
		PostTest: PostTestConfig{
			DefaultTimeoutSec: 1200,
			DefaultOutputCap:  8000,
			SmartCap:          2,
		},
		Session: SessionConfig{
			IdleTimeoutSec: 300,
		},
		ProjectIdx: ProjectIndexConf{
			TTLSeconds: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads config.yaml from dataDir, falling back to DefaultConfig when
// the file does not exist. Any env var overrides (see applyEnvOverrides)
// are applied on top.
func Load(dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(dataDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("appconfig: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("appconfig: parsing %s: %w", path, err)
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Save writes cfg to dataDir/config.yaml.
func Save(dataDir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("appconfig: marshaling config: %w", err)
	}
	path := filepath.Join(dataDir, "config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func envInt(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var parsed int
	if _, err := fmt.Sscanf(v, "%d", &parsed); err == nil {
		*dst = parsed
	}
}

func envFloat(name string, dst *float64) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	var parsed float64
	if _, err := fmt.Sscanf(v, "%g", &parsed); err == nil {
		*dst = parsed
	}
}

// applyEnvOverrides applies every environment-variable override documented
// in spec.md §6, on top of whatever config.yaml (or DefaultConfig)
// produced. Env vars always win over the file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTO_IFLOW_DEBUG"); v == "1" || v == "true" {
		cfg.DebugMode = true
	}

	envInt("IFLOW_STREAM_IDLE_TIMEOUT_SEC", &cfg.Session.IdleTimeoutSec)
	envFloat("IFLOW_POST_CODE_TEST_TIMEOUT_SEC", &cfg.PostTest.DefaultTimeoutSec)
	envInt("IFLOW_POST_CODE_TEST_OUTPUT_LIMIT", &cfg.PostTest.DefaultOutputCap)
	envInt("IFLOW_POST_CODE_TEST_CAP", &cfg.PostTest.SmartCap)
	envInt("AUTO_IFLOW_PROJECT_INDEX_TTL_SEC", &cfg.ProjectIdx.TTLSeconds)

	if v := os.Getenv("AUTO_IFLOW_PROJECT_DIR"); v != "" {
		cfg.ProjectDir = v
	}
	if v := os.Getenv("AUTO_IFLOW_SPEC_DIR"); v != "" {
		cfg.SpecDirOverride = v
	}
	if v := os.Getenv("AUTO_IFLOW_TASK_TYPE"); v != "" {
		cfg.TaskTypeOverride = v
	}
	if v := os.Getenv("AUTO_IFLOW_NOISE_PROFILE"); v != "" {
		cfg.NoiseProfile = v
	}
	if v := os.Getenv("AUTO_IFLOW_MANUAL_VERIFICATION"); v == "1" || v == "true" {
		cfg.ManualVerification = true
	}
	if v := os.Getenv("AUTO_IFLOW_BLOCK_TEST_COMMANDS"); v == "1" || v == "true" {
		cfg.BlockTestCommands = true
	}
	if v := os.Getenv("AUTO_IFLOW_TEST_PLAN"); v != "" {
		cfg.TestPlanOverride = strings.Split(v, ",")
	}

	// POST_SESSION_INSIGHTS_TIMEOUT_SEC and POST_SESSION_MEMORY_TIMEOUT_SEC
	// bound the post-session processor's async steps directly (see
	// internal/postsession), rather than living on Config; the processor
	// reads them itself each time it runs.
}

// IdleTimeout returns the configured agent-session idle timeout as a
// time.Duration, defaulting to 300s like the teacher's STREAM_IDLE_TIMEOUT_SEC.
func (c *Config) IdleTimeout() time.Duration {
	if c.Session.IdleTimeoutSec <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.Session.IdleTimeoutSec) * time.Second
}

// ProjectIndexTTL returns the project-index cache TTL.
func (c *Config) ProjectIndexTTL() time.Duration {
	if c.ProjectIdx.TTLSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(c.ProjectIdx.TTLSeconds) * time.Second
}
