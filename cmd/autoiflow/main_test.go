package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func TestPersistentPreRunE_ResolvesRelativeProjectDirToAbsolute(t *testing.T) {
	dir := t.TempDir()
	orig := projectDir
	defer func() { projectDir = orig }()

	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	rel, err := filepath.Rel(cwd, dir)
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}

	projectDir = rel
	if err := rootCmd.PersistentPreRunE(&cobra.Command{}, nil); err != nil {
		t.Fatalf("PersistentPreRunE: %v", err)
	}
	if !filepath.IsAbs(projectDir) {
		t.Errorf("expected projectDir resolved to absolute path, got %q", projectDir)
	}
}

func TestPersistentPreRunE_EmptyProjectDirDefaultsToCwd(t *testing.T) {
	origDir := projectDir
	origCwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	defer func() {
		projectDir = origDir
		_ = os.Chdir(origCwd)
	}()

	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	projectDir = ""
	if err := rootCmd.PersistentPreRunE(&cobra.Command{}, nil); err != nil {
		t.Fatalf("PersistentPreRunE: %v", err)
	}
	if projectDir == "" {
		t.Error("expected projectDir to default to the working directory")
	}
}
