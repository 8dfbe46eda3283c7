package main

import (
	"os/exec"
	"testing"
)

func initGitRepoForHead(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %v: %s", args, err, out)
		}
	}
	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	run("commit", "--allow-empty", "-m", "initial")
	return dir
}

func TestGitHead_ReturnsCommitHashForRealRepo(t *testing.T) {
	dir := initGitRepoForHead(t)
	head := gitHead(dir)
	if len(head) != 40 {
		t.Errorf("expected a 40-character commit hash, got %q", head)
	}
}

func TestGitHead_ReturnsEmptyStringForNonRepo(t *testing.T) {
	dir := t.TempDir()
	if got := gitHead(dir); got != "" {
		t.Errorf("expected empty string for a non-git directory, got %q", got)
	}
}
