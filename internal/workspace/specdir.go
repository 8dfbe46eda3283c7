package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SpecsSubdir is the directory under the data directory that holds numbered
// spec work directories.
const SpecsSubdir = "specs"

var specDirPattern = regexp.MustCompile(`^(\d{3,})-(.+)$`)

// SpecDirectory describes one allocated, numbered spec working directory.
type SpecDirectory struct {
	Number int
	Slug   string
	Path   string
}

func slugify(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "spec"
	}
	if len(slug) > 60 {
		slug = slug[:60]
	}
	return slug
}

func listExistingSpecDirs(specsDir string) ([]SpecDirectory, error) {
	entries, err := os.ReadDir(specsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []SpecDirectory
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := specDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		dirs = append(dirs, SpecDirectory{Number: n, Slug: m[2], Path: filepath.Join(specsDir, e.Name())})
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Number < dirs[j].Number })
	return dirs, nil
}

// pendingSlug marks a spec directory whose number is reserved but whose
// final name is not yet known (spec.md §3: intake hasn't produced a task
// name yet).
const pendingSlug = "pending"

// AllocatePendingSpecDirectory reserves the next spec number and creates
// "NNN-pending" under dataDir/specs, before the task's name is known.
// Allocation is guarded by an OS-level exclusive file lock (SpecNumberLock)
// so that multiple worktrees sharing one data directory never race to the
// same number - an in-process mutex would not protect against a second
// process working out of the same checkout.
func AllocatePendingSpecDirectory(dataDir string) (SpecDirectory, error) {
	specsDir := filepath.Join(dataDir, SpecsSubdir)
	if err := os.MkdirAll(specsDir, 0o755); err != nil {
		return SpecDirectory{}, err
	}

	lock := NewSpecNumberLock(filepath.Join(specsDir, ".specnumber.lock"))
	release, err := lock.Acquire(30 * time.Second)
	if err != nil {
		return SpecDirectory{}, fmt.Errorf("workspace: acquiring spec number lock: %w", err)
	}
	defer release()

	existing, err := listExistingSpecDirs(specsDir)
	if err != nil {
		return SpecDirectory{}, err
	}

	next := 1
	if len(existing) > 0 {
		next = existing[len(existing)-1].Number + 1
	}

	dirName := fmt.Sprintf("%03d-%s", next, pendingSlug)
	fullPath := filepath.Join(specsDir, dirName)
	if err := os.MkdirAll(fullPath, 0o755); err != nil {
		return SpecDirectory{}, err
	}

	return SpecDirectory{Number: next, Slug: pendingSlug, Path: fullPath}, nil
}

// RenameToSlug renames a "NNN-pending" directory to "NNN-<slug>" once
// requirements gathering has produced a task name, returning the updated
// SpecDirectory. It is a no-op (returning dir unchanged) if dir is not
// currently pending.
func RenameToSlug(dir SpecDirectory, name string) (SpecDirectory, error) {
	if dir.Slug != pendingSlug {
		return dir, nil
	}
	slug := slugify(name)
	newName := fmt.Sprintf("%03d-%s", dir.Number, slug)
	newPath := filepath.Join(filepath.Dir(dir.Path), newName)
	if err := os.Rename(dir.Path, newPath); err != nil {
		return SpecDirectory{}, fmt.Errorf("workspace: renaming spec directory: %w", err)
	}
	return SpecDirectory{Number: dir.Number, Slug: slug, Path: newPath}, nil
}

// AllocateSpecDirectory reserves and creates the next numbered spec
// directory (e.g. "003-add-retry-logic") under dataDir/specs in one step,
// for callers that already know the task's name up front (e.g. plan
// import). It composes AllocatePendingSpecDirectory and RenameToSlug.
func AllocateSpecDirectory(dataDir, name string) (SpecDirectory, error) {
	dir, err := AllocatePendingSpecDirectory(dataDir)
	if err != nil {
		return SpecDirectory{}, err
	}
	return RenameToSlug(dir, name)
}

// LatestSpecDirectory returns the highest-numbered spec directory, if any.
func LatestSpecDirectory(dataDir string) (SpecDirectory, bool, error) {
	specsDir := filepath.Join(dataDir, SpecsSubdir)
	dirs, err := listExistingSpecDirs(specsDir)
	if err != nil {
		return SpecDirectory{}, false, err
	}
	if len(dirs) == 0 {
		return SpecDirectory{}, false, nil
	}
	return dirs[len(dirs)-1], true, nil
}
