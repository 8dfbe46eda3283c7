package workspace

import (
	"sync"
	"testing"
)

func TestAllocatePendingSpecDirectory_FirstIsOne(t *testing.T) {
	dir, err := AllocatePendingSpecDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("AllocatePendingSpecDirectory: %v", err)
	}
	if dir.Number != 1 {
		t.Errorf("expected first spec number 1, got %d", dir.Number)
	}
	if dir.Slug != pendingSlug {
		t.Errorf("expected pending slug, got %q", dir.Slug)
	}
}

func TestAllocatePendingSpecDirectory_MonotonicIncrement(t *testing.T) {
	dataDir := t.TempDir()
	first, err := AllocatePendingSpecDirectory(dataDir)
	if err != nil {
		t.Fatalf("first allocate: %v", err)
	}
	if _, err := RenameToSlug(first, "some task"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	second, err := AllocatePendingSpecDirectory(dataDir)
	if err != nil {
		t.Fatalf("second allocate: %v", err)
	}
	if second.Number != first.Number+1 {
		t.Errorf("expected monotonic increment, got %d then %d", first.Number, second.Number)
	}
}

func TestAllocatePendingSpecDirectory_ConcurrentCallersGetUniqueNumbers(t *testing.T) {
	dataDir := t.TempDir()
	const n = 8
	results := make([]SpecDirectory, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = AllocatePendingSpecDirectory(dataDir)
		}(i)
	}
	wg.Wait()

	seen := map[int]bool{}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("allocate %d failed: %v", i, err)
		}
		if seen[results[i].Number] {
			t.Fatalf("duplicate spec number allocated: %d", results[i].Number)
		}
		seen[results[i].Number] = true
	}
	if len(seen) != n {
		t.Errorf("expected %d unique numbers, got %d", n, len(seen))
	}
}

func TestRenameToSlug_ProducesExpectedDirName(t *testing.T) {
	dataDir := t.TempDir()
	dir, err := AllocatePendingSpecDirectory(dataDir)
	if err != nil {
		t.Fatalf("AllocatePendingSpecDirectory: %v", err)
	}
	renamed, err := RenameToSlug(dir, "Add Retry Logic!")
	if err != nil {
		t.Fatalf("RenameToSlug: %v", err)
	}
	if renamed.Slug != "add-retry-logic" {
		t.Errorf("expected slug 'add-retry-logic', got %q", renamed.Slug)
	}
}

func TestRenameToSlug_NoopWhenNotPending(t *testing.T) {
	dir := SpecDirectory{Number: 1, Slug: "already-named", Path: "/tmp/001-already-named"}
	renamed, err := RenameToSlug(dir, "new name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if renamed != dir {
		t.Errorf("expected no-op for a non-pending directory, got %+v", renamed)
	}
}

func TestLatestSpecDirectory_EmptyReturnsFalse(t *testing.T) {
	_, ok, err := LatestSpecDirectory(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for an empty data dir")
	}
}

func TestLatestSpecDirectory_ReturnsHighestNumber(t *testing.T) {
	dataDir := t.TempDir()
	for i := 0; i < 3; i++ {
		if _, err := AllocatePendingSpecDirectory(dataDir); err != nil {
			t.Fatalf("allocate: %v", err)
		}
	}
	latest, ok, err := LatestSpecDirectory(dataDir)
	if err != nil || !ok {
		t.Fatalf("LatestSpecDirectory: ok=%v err=%v", ok, err)
	}
	if latest.Number != 3 {
		t.Errorf("expected highest number 3, got %d", latest.Number)
	}
}

func TestAllocateSpecDirectory_ComposesAllocateAndRename(t *testing.T) {
	dir, err := AllocateSpecDirectory(t.TempDir(), "Fix login bug")
	if err != nil {
		t.Fatalf("AllocateSpecDirectory: %v", err)
	}
	if dir.Slug != "fix-login-bug" {
		t.Errorf("expected slug 'fix-login-bug', got %q", dir.Slug)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Add Retry Logic!":    "add-retry-logic",
		"":                    "spec",
		"___":                 "spec",
		"UPPER CASE Title":    "upper-case-title",
		"multi   space":       "multi-space",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
