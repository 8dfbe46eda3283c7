package phases

import (
	"os"
	"testing"
)

func TestRunEnvRealityCheck_WritableDirsNoJS(t *testing.T) {
	projectDir := t.TempDir()
	specDir := t.TempDir()

	result := RunEnvRealityCheck(EnvCheckInputs{ProjectDir: projectDir, SpecDir: specDir})
	if !result.ProjectDirOK || !result.SpecDirOK {
		t.Fatalf("expected both dirs writable, got %+v", result)
	}
	if _, ok := result.ResolvedBinaries["node"]; ok {
		t.Error("node should not be checked when HasJSService is false")
	}
}

func TestRunEnvRealityCheck_MissingDirIsError(t *testing.T) {
	result := RunEnvRealityCheck(EnvCheckInputs{ProjectDir: "/nonexistent/path/xyz", SpecDir: t.TempDir()})
	if result.ProjectDirOK {
		t.Error("expected ProjectDirOK=false for a missing directory")
	}
	if len(result.Errors) == 0 {
		t.Error("expected an error recorded for the missing project dir")
	}
	if result.OK() {
		t.Error("expected overall OK()=false")
	}
}

func TestRunEnvRealityCheck_RequiresIflowCLIAddsRequiredBinary(t *testing.T) {
	result := RunEnvRealityCheck(EnvCheckInputs{ProjectDir: t.TempDir(), SpecDir: t.TempDir(), RequiresIflowCLI: true})
	found := false
	for _, b := range result.MissingRequired {
		if b == "iflow" {
			found = true
		}
	}
	if _, resolved := result.ResolvedBinaries["iflow"]; !resolved && !found {
		t.Error("expected iflow to appear in either ResolvedBinaries or MissingRequired when RequiresIflowCLI is set")
	}
}

func TestRunEnvRealityCheck_BinaryOverrideEnvVar(t *testing.T) {
	dir := t.TempDir()
	fakeGit := dir + "/git"
	if err := os.WriteFile(fakeGit, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("AUTO_IFLOW_BIN_git", fakeGit)

	result := RunEnvRealityCheck(EnvCheckInputs{ProjectDir: t.TempDir(), SpecDir: t.TempDir()})
	if result.ResolvedBinaries["git"] != fakeGit {
		t.Errorf("expected override path used for git, got %q", result.ResolvedBinaries["git"])
	}
}

func TestEnvRealityCheck_OK_RequiresNoMissingRequired(t *testing.T) {
	r := EnvRealityCheck{ProjectDirOK: true, SpecDirOK: true, MissingRequired: []string{"git"}}
	if r.OK() {
		t.Error("expected OK()=false when a required binary is missing")
	}
}
