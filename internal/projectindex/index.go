// Package projectindex builds and caches a ProjectIndexSnapshot for a
// project directory: the set of services, their languages, and key
// directories, used by scope contract derivation. It follows the
// teacher's watcher idiom (internal/core/mangle_watcher.go) - an
// fsnotify watcher debounced against rapid saves - generalized from
// reparsing Mangle files to invalidating a cached project scan, with a
// TTL fallback so the cache self-heals even without filesystem events.
package projectindex

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/scope"
)

// languageMarkers maps a marker filename found at a directory's root to
// the language/service it implies.
var languageMarkers = map[string]string{
	"go.mod":           "go",
	"package.json":     "javascript",
	"requirements.txt": "python",
	"pyproject.toml":   "python",
	"Cargo.toml":       "rust",
	"pom.xml":          "java",
}

var ignoredTopLevel = map[string]bool{
	".git": true, ".auto-iflow": true, "node_modules": true,
	".venv": true, "__pycache__": true, "dist": true, "build": true,
	"coverage": true, ".pytest_cache": true,
}

// Scan walks projectRoot one level deep, classifying each top-level
// directory as a service when it carries a recognized language marker.
func Scan(projectRoot string) scope.ProjectIndexSnapshot {
	idx := scope.ProjectIndexSnapshot{
		ProjectRoot: projectRoot,
		Services:    map[string]scope.ServiceEntry{},
	}

	entries, err := os.ReadDir(projectRoot)
	if err != nil {
		return idx
	}

	var serviceCount int
	for _, e := range entries {
		if !e.IsDir() || ignoredTopLevel[e.Name()] || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		idx.TopLevelDirs = append(idx.TopLevelDirs, e.Name())

		dirPath := filepath.Join(projectRoot, e.Name())
		for marker, lang := range languageMarkers {
			if _, err := os.Stat(filepath.Join(dirPath, marker)); err == nil {
				idx.Services[e.Name()] = scope.ServiceEntry{
					Path:     e.Name(),
					Language: lang,
				}
				serviceCount++
				break
			}
		}
	}

	for _, marker := range []string{"go.mod", "package.json", "requirements.txt", "pyproject.toml"} {
		if _, err := os.Stat(filepath.Join(projectRoot, marker)); err == nil {
			lang := languageMarkers[marker]
			idx.Services["."] = scope.ServiceEntry{Path: ".", Language: lang}
			serviceCount++
			break
		}
	}

	if serviceCount > 1 {
		idx.ProjectType = "monorepo"
	} else {
		idx.ProjectType = "single-service"
	}

	return idx
}

// Cache is a mutex-guarded, TTL-bounded, fsnotify-invalidated cache of one
// project's index snapshot.
type Cache struct {
	projectRoot string
	ttl         time.Duration

	mu        sync.Mutex
	snapshot  *scope.ProjectIndexSnapshot
	expiresAt time.Time

	watcher     *fsnotify.Watcher
	debounceDur time.Duration
	stopCh      chan struct{}
}

// NewCache constructs a Cache for projectRoot with the given TTL. Start
// must be called to enable fsnotify-driven invalidation; without it, the
// cache still self-heals via TTL expiry alone.
func NewCache(projectRoot string, ttl time.Duration) *Cache {
	return &Cache{projectRoot: projectRoot, ttl: ttl, debounceDur: 500 * time.Millisecond}
}

// Get returns a copy of the cached snapshot (its Services map and
// TopLevelDirs slice are copied too), rescanning under double-checked
// locking when absent or expired.
func (c *Cache) Get() scope.ProjectIndexSnapshot {
	copySnap := func(s scope.ProjectIndexSnapshot) scope.ProjectIndexSnapshot {
		s.TopLevelDirs = append([]string(nil), s.TopLevelDirs...)
		services := make(map[string]scope.ServiceEntry, len(s.Services))
		for k, v := range s.Services {
			services[k] = v
		}
		s.Services = services
		return s
	}

	c.mu.Lock()
	if c.snapshot != nil && time.Now().Before(c.expiresAt) {
		snap := copySnap(*c.snapshot)
		c.mu.Unlock()
		return snap
	}
	c.mu.Unlock()

	fresh := Scan(c.projectRoot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil || time.Now().After(c.expiresAt) {
		c.snapshot = &fresh
		c.expiresAt = time.Now().Add(c.ttl)
	}
	return copySnap(*c.snapshot)
}

// Invalidate forces the next Get to rescan.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
}

// Start begins watching projectRoot's top-level marker files for changes,
// invalidating the cache on any create/remove/write event, debounced
// against rapid successive saves. Non-fatal: a failure to start the
// watcher leaves the cache on TTL-only invalidation.
func (c *Cache) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Get(logging.CategoryWorkspace).Warn("projectindex: fsnotify unavailable, falling back to TTL-only: %v", err)
		return err
	}
	if err := watcher.Add(c.projectRoot); err != nil {
		logging.Get(logging.CategoryWorkspace).Warn("projectindex: watching %s: %v", c.projectRoot, err)
		watcher.Close()
		return err
	}

	c.watcher = watcher
	c.stopCh = make(chan struct{})
	go c.run()
	return nil
}

// Stop releases the watcher, if running.
func (c *Cache) Stop() {
	if c.watcher == nil {
		return
	}
	close(c.stopCh)
	c.watcher.Close()
}

func (c *Cache) run() {
	var lastEvent time.Time
	for {
		select {
		case <-c.stopCh:
			return
		case _, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if time.Since(lastEvent) < c.debounceDur {
				continue
			}
			lastEvent = time.Now()
			c.Invalidate()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWorkspace).Warn("projectindex: watcher error: %v", err)
		}
	}
}
