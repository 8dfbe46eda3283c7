package security

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Validator inspects a single command segment (the program name plus its
// own arguments) and returns whether it is allowed.
type Validator func(segment string) (bool, string)

// Profile is the in-memory SecurityProfile: the always-allowed base
// command set, any project-specific additions, and per-command validators.
// It never performs I/O itself; loading from disk is a separate step so the
// gate remains a pure function of its inputs.
type Profile struct {
	BaseCommands    map[string]bool
	ProjectCommands map[string]bool
	Validators      map[string]Validator
}

// NewProfile builds a Profile from the given base/project command lists,
// attaching the default validator set.
func NewProfile(base, project []string) *Profile {
	p := &Profile{
		BaseCommands:    toSet(base),
		ProjectCommands: toSet(project),
		Validators:      DefaultValidators(),
	}
	return p
}

func toSet(vals []string) map[string]bool {
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}

// AllAllowed returns the union of base and project command sets.
func (p *Profile) AllAllowed() map[string]bool {
	out := make(map[string]bool, len(p.BaseCommands)+len(p.ProjectCommands))
	for k := range p.BaseCommands {
		out[k] = true
	}
	for k := range p.ProjectCommands {
		out[k] = true
	}
	return out
}

// persistedProfile is the on-disk shape at ProfileFilename.
type persistedProfile struct {
	ProjectCommands []string `json:"project_commands"`
}

// LoadProfile reads the project's persisted security profile file, falling
// back to BaseCommands-only when the file is absent or unreadable. It and
// SaveProfile are the package's only I/O-performing entry points; Gate
// itself never calls either.
func LoadProfile(projectDir string) *Profile {
	path := filepath.Join(projectDir, ProfileFilename)
	data, err := os.ReadFile(path)
	if err != nil {
		return NewProfile(BaseCommands, nil)
	}

	var parsed persistedProfile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return NewProfile(BaseCommands, nil)
	}
	return NewProfile(BaseCommands, parsed.ProjectCommands)
}

// SaveProfile persists a profile's project-specific command additions.
func SaveProfile(projectDir string, p *Profile) error {
	var project []string
	for k := range p.ProjectCommands {
		project = append(project, k)
	}
	data, err := json.MarshalIndent(persistedProfile{ProjectCommands: project}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(projectDir, ProfileFilename), data, 0o644)
}
