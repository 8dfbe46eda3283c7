package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewProfile_AttachesDefaultValidators(t *testing.T) {
	p := NewProfile([]string{"git"}, []string{"curl"})
	if len(p.Validators) == 0 {
		t.Error("expected default validators attached")
	}
	if !p.BaseCommands["git"] || !p.ProjectCommands["curl"] {
		t.Errorf("expected base/project sets populated, got %+v", p)
	}
}

func TestAllAllowed_UnionsBaseAndProject(t *testing.T) {
	p := NewProfile([]string{"git"}, []string{"curl"})
	all := p.AllAllowed()
	if !all["git"] || !all["curl"] {
		t.Errorf("expected union of both sets, got %+v", all)
	}
}

func TestLoadProfile_MissingFileFallsBackToBase(t *testing.T) {
	p := LoadProfile(t.TempDir())
	if len(p.ProjectCommands) != 0 {
		t.Errorf("expected no project commands when file is absent, got %+v", p.ProjectCommands)
	}
	if !p.BaseCommands["git"] {
		t.Error("expected base commands populated from BaseCommands")
	}
}

func TestSaveProfileThenLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	p := NewProfile(BaseCommands, []string{"curl", "wget"})
	if err := SaveProfile(dir, p); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	loaded := LoadProfile(dir)
	if !loaded.ProjectCommands["curl"] || !loaded.ProjectCommands["wget"] {
		t.Errorf("expected round-tripped project commands, got %+v", loaded.ProjectCommands)
	}
}

func TestLoadProfile_MalformedJSONFallsBackToBase(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ProfileFilename), []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	p := LoadProfile(dir)
	if len(p.ProjectCommands) != 0 {
		t.Errorf("expected fallback to base-only profile, got %+v", p.ProjectCommands)
	}
}
