package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := DefaultConfig()
	if cfg.Name != want.Name || cfg.Session.IdleTimeoutSec != want.Session.IdleTimeoutSec {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DebugMode = true
	cfg.Session.IdleTimeoutSec = 600

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.DebugMode || loaded.Session.IdleTimeoutSec != 600 {
		t.Errorf("expected round-tripped config, got %+v", loaded)
	}
}

func TestLoad_CorruptYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected an error for malformed config.yaml")
	}
}

func TestLoad_EnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	if err := Save(dir, DefaultConfig()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("IFLOW_STREAM_IDLE_TIMEOUT_SEC", "45")
	t.Setenv("AUTO_IFLOW_DEBUG", "1")
	t.Setenv("AUTO_IFLOW_TEST_PLAN", "npm test,go test ./...")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.IdleTimeoutSec != 45 {
		t.Errorf("expected env override to set idle timeout to 45, got %d", cfg.Session.IdleTimeoutSec)
	}
	if !cfg.DebugMode {
		t.Error("expected AUTO_IFLOW_DEBUG=1 to enable debug mode")
	}
	if len(cfg.TestPlanOverride) != 2 || cfg.TestPlanOverride[0] != "npm test" {
		t.Errorf("expected test plan override split on comma, got %+v", cfg.TestPlanOverride)
	}
}

func TestLoad_EnvOnlyFieldsNeverPersistToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AUTO_IFLOW_PROJECT_DIR", "/tmp/proj")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ProjectDir != "/tmp/proj" {
		t.Fatalf("expected env override applied, got %q", cfg.ProjectDir)
	}
	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if strings.Contains(string(raw), "/tmp/proj") {
		t.Error("expected env-only ProjectDir field not to be persisted (yaml:\"-\")")
	}
}

func TestIdleTimeout_DefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	if cfg.IdleTimeout().Seconds() != 300 {
		t.Errorf("expected default 300s idle timeout, got %v", cfg.IdleTimeout())
	}
}

func TestIdleTimeout_HonorsConfiguredValue(t *testing.T) {
	cfg := &Config{Session: SessionConfig{IdleTimeoutSec: 90}}
	if cfg.IdleTimeout().Seconds() != 90 {
		t.Errorf("expected 90s idle timeout, got %v", cfg.IdleTimeout())
	}
}

func TestProjectIndexTTL_DefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	if cfg.ProjectIndexTTL().Seconds() != 300 {
		t.Errorf("expected default 300s TTL, got %v", cfg.ProjectIndexTTL())
	}
}

func TestProjectIndexTTL_HonorsConfiguredValue(t *testing.T) {
	cfg := &Config{ProjectIdx: ProjectIndexConf{TTLSeconds: 60}}
	if cfg.ProjectIndexTTL().Seconds() != 60 {
		t.Errorf("expected 60s TTL, got %v", cfg.ProjectIndexTTL())
	}
}
