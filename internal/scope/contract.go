package scope

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// ScopeContract bounds a code change: what may be touched, what must never
// be touched, and how the change is verified.
type ScopeContract struct {
	Intent         string   `json:"intent"` // create|change|delete|investigate
	Outcome        string   `json:"outcome,omitempty"`
	Where          string   `json:"where,omitempty"`
	Why            string   `json:"why,omitempty"`
	When           string   `json:"when,omitempty"`
	Acceptance     []string `json:"acceptance,omitempty"`
	TestPlan       []string `json:"test_plan,omitempty"`
	AllowedPaths   []string `json:"allowed_paths"`
	ForbiddenPaths []string `json:"forbidden_paths"`
	CandidateFiles []string `json:"candidate_files,omitempty"`
	TaskType       string   `json:"task_type,omitempty"`
}

// ScopeContractPath returns the canonical scope_contract.json path.
func ScopeContractPath(specDir string) string {
	return filepath.Join(specDir, "scope_contract.json")
}

// LoadScopeContract reads scope_contract.json, tolerating a missing or
// malformed file by returning a zero-value contract (not an error).
func LoadScopeContract(specDir string) *ScopeContract {
	data, err := os.ReadFile(ScopeContractPath(specDir))
	if err != nil {
		return &ScopeContract{}
	}
	var c ScopeContract
	if err := json.Unmarshal(data, &c); err != nil {
		return &ScopeContract{}
	}
	return &c
}

// WriteScopeContract persists a scope contract.
func WriteScopeContract(specDir string, c *ScopeContract) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ScopeContractPath(specDir), data, 0o644)
}

// DefaultForbiddenPaths are always excluded from allowed_paths regardless
// of what the project index derives, since they are VCS/tooling internals
// rather than project source.
var DefaultForbiddenPaths = []string{
	".git/**",
	".auto-iflow/**",
	".venv/**",
	".pytest_cache/**",
	"__pycache__/**",
	"node_modules/**",
	"dist/**",
	"build/**",
	"coverage/**",
	".design-system/**",
}

func normalizePath(path string) string {
	cleaned := strings.TrimSpace(path)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	cleaned = strings.TrimSuffix(cleaned, "/")
	return cleaned
}

func stripGlob(path string) string {
	cleaned := normalizePath(path)
	return strings.TrimSuffix(cleaned, "/**")
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, item := range items {
		n := normalizePath(item)
		if n != "" && !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// ServiceEntry describes one service discovered by the project index.
type ServiceEntry struct {
	Path          string            `json:"path"`
	Language      string            `json:"language"`
	KeyDirectories map[string]struct {
		Path string `json:"path"`
	} `json:"key_directories"`
}

// ProjectIndexSnapshot is the subset of the project index the scope-rule
// derivation functions consume.
type ProjectIndexSnapshot struct {
	ProjectRoot  string                  `json:"project_root"`
	ProjectType  string                  `json:"project_type"`
	Services     map[string]ServiceEntry `json:"services"`
	TopLevelDirs []string                `json:"top_level_dirs"`
}

func relativizePath(path, projectRoot string) (string, bool) {
	cleaned := normalizePath(path)
	if cleaned == "" {
		return "", false
	}
	if strings.HasPrefix(cleaned, "/") && projectRoot != "" {
		rel, err := filepath.Rel(projectRoot, cleaned)
		if err != nil || strings.HasPrefix(rel, "..") {
			return "", false
		}
		return normalizePath(rel), true
	}
	return cleaned, true
}

// DeriveAllowedPaths derives glob-scoped allowed paths from the project
// index's services/key_directories, falling back to non-dot top-level
// directories, falling back to "src/**".
func DeriveAllowedPaths(idx ProjectIndexSnapshot) []string {
	var allowed []string

	for _, svc := range idx.Services {
		rel, ok := relativizePath(svc.Path, idx.ProjectRoot)
		if !ok {
			continue
		}
		allowed = append(allowed, rel+"/**")
		for _, dir := range svc.KeyDirectories {
			if dir.Path != "" {
				allowed = append(allowed, rel+"/"+dir.Path+"/**")
			}
		}
	}

	if len(allowed) == 0 {
		for _, entry := range idx.TopLevelDirs {
			rel, ok := relativizePath(entry, idx.ProjectRoot)
			if !ok || strings.HasPrefix(rel, ".") {
				continue
			}
			allowed = append(allowed, rel+"/**")
		}
	}

	if len(allowed) == 0 {
		allowed = append(allowed, "src/**")
	}

	return dedupe(allowed)
}

// DeriveForbiddenPaths appends documentation directories found in the
// project index to the always-forbidden default set.
func DeriveForbiddenPaths(idx ProjectIndexSnapshot) []string {
	forbidden := append([]string{}, DefaultForbiddenPaths...)
	docNames := map[string]bool{"docs": true, "doc": true, "documentation": true}
	for _, entry := range idx.TopLevelDirs {
		if docNames[entry] {
			forbidden = append(forbidden, entry+"/**")
		}
	}
	return dedupe(forbidden)
}

// DeriveTestPlan picks a default test command per service language, falling
// back to a project-type-based default when no service language is known.
func DeriveTestPlan(idx ProjectIndexSnapshot) []string {
	var commands []string
	for _, svc := range idx.Services {
		switch strings.ToLower(svc.Language) {
		case "python":
			commands = append(commands, "npm run test:backend")
		case "javascript", "typescript":
			commands = append(commands, "npm test")
		case "go":
			commands = append(commands, "go test ./...")
		}
	}

	if len(commands) == 0 {
		if idx.ProjectType == "monorepo" {
			commands = append(commands, "npm test", "npm run test:backend")
		} else {
			commands = append(commands, "npm test")
		}
	}

	return dedupe(commands)
}

// ScopeRules is the output of deriving allowed/forbidden/test-plan defaults
// from a project index, prior to any human or agent override.
type ScopeRules struct {
	AllowedPaths   []string
	ForbiddenPaths []string
	TestPlan       []string
}

// DeriveScopeRules computes the full default ScopeRules for a project.
func DeriveScopeRules(idx ProjectIndexSnapshot) ScopeRules {
	return ScopeRules{
		AllowedPaths:   DeriveAllowedPaths(idx),
		ForbiddenPaths: DeriveForbiddenPaths(idx),
		TestPlan:       DeriveTestPlan(idx),
	}
}

// ValidateScopeRules checks the overlap invariant between allowed and
// forbidden paths, returning (errors, warnings).
func ValidateScopeRules(allowedPaths, forbiddenPaths []string) (errs, warnings []string) {
	if len(allowedPaths) == 0 {
		errs = append(errs, "allowed_paths must not be empty")
	}

	for _, p := range allowedPaths {
		if strings.HasPrefix(normalizePath(p), "/") {
			errs = append(errs, "allowed_paths must be relative: "+p)
		}
	}

	forbiddenBases := make([]string, len(forbiddenPaths))
	for i, p := range forbiddenPaths {
		forbiddenBases[i] = stripGlob(p)
	}

	for _, allowed := range allowedPaths {
		allowedBase := stripGlob(allowed)
		for _, forbiddenBase := range forbiddenBases {
			if forbiddenBase == "" {
				continue
			}
			if allowedBase == forbiddenBase || strings.HasPrefix(allowedBase, forbiddenBase+"/") {
				errs = append(errs, "allowed_paths overlaps forbidden_paths: "+allowed+" -> "+forbiddenBase)
			}
		}
	}

	if len(forbiddenPaths) == 0 {
		warnings = append(warnings, "forbidden_paths is empty")
	}

	return errs, warnings
}
