// Package qa implements the acceptance-proof store, the proof gate, and
// the QA sign-off state machine layered on top of a plan.
package qa

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/auto-iflow/autoiflow/internal/scope"
)

// Proof witnesses one acceptance criterion with a snippet anchored in a
// file.
type Proof struct {
	Criterion string `json:"criterion"`
	File      string `json:"file,omitempty"`
	Snippet   string `json:"snippet,omitempty"`
	Source    string `json:"source"` // auto|agent
	CreatedAt string `json:"created_at"`
}

// Proofs is the append-mostly proofs.json document for one spec directory.
type Proofs struct {
	Proofs    []Proof `json:"proofs"`
	UpdatedAt string  `json:"updated_at,omitempty"`
}

// ProofsPath returns the canonical proofs.json path.
func ProofsPath(specDir string) string {
	return filepath.Join(specDir, "proofs.json")
}

// LoadProofs reads proofs.json, returning an empty document (not an error)
// when the file is absent.
func LoadProofs(specDir string) (*Proofs, error) {
	data, err := os.ReadFile(ProofsPath(specDir))
	if err != nil {
		if os.IsNotExist(err) {
			return &Proofs{}, nil
		}
		return nil, err
	}
	var p Proofs
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("qa: parsing proofs.json: %w", err)
	}
	return &p, nil
}

// WriteProofs persists p atomically (write-temp-then-rename), matching
// spec.md §9's atomicity requirement for proofs.json.
func WriteProofs(specDir string, p *Proofs) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(ProofsPath(specDir))
	tmp, err := os.CreateTemp(dir, ".tmp-proofs-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, ProofsPath(specDir))
}

// Has reports whether p already carries a proof matching criterion (and
// file, when file is non-empty).
func (p *Proofs) Has(criterion, file string) bool {
	for _, proof := range p.Proofs {
		if proof.Criterion != criterion {
			continue
		}
		if file != "" && proof.File != file {
			continue
		}
		return true
	}
	return false
}

// Append adds a proof and refreshes UpdatedAt.
func (p *Proofs) Append(proof Proof, now time.Time) {
	p.Proofs = append(p.Proofs, proof)
	p.UpdatedAt = now.UTC().Format(time.RFC3339)
}

// firstNLines reads up to n lines from path, returning "" if the file
// cannot be resolved/read - a best-effort snippet source, never fatal.
func firstNLines(path string, n int) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var out string
	count := 0
	for scanner.Scan() && count < n {
		out += scanner.Text() + "\n"
		count++
	}
	return out
}

// AutoAppendMissingProofs fills in proofs.json with auto-generated proofs
// for every acceptance-map entry that does not already have one, snippet
// is the first 15 lines of the target file when resolvable (spec.md
// §4.E step 4, "completed" branch). projectDir resolves acceptanceMap
// file paths to disk.
func AutoAppendMissingProofs(projectDir string, p *Proofs, acceptanceMap []scope.AcceptanceMapEntry, now time.Time) {
	for _, entry := range acceptanceMap {
		if p.Has(entry.Criterion, entry.File) {
			continue
		}
		snippet := ""
		if entry.File != "" {
			snippet = firstNLines(filepath.Join(projectDir, entry.File), 15)
		}
		p.Append(Proof{
			Criterion: entry.Criterion,
			File:      entry.File,
			Snippet:   snippet,
			Source:    "auto",
			CreatedAt: now.UTC().Format(time.RFC3339),
		}, now)
	}
}

// DefaultNonCodeProof returns the single default proof written for
// non-code tasks when none exists yet: criterion "Non-code deliverable",
// anchored in spec.md. Whether this proof is regenerated when spec.md
// changes is an open question (spec.md §9); this implementation writes it
// once and never overwrites an existing one (see EnsureNonCodeProof).
func DefaultNonCodeProof(now time.Time) Proof {
	return Proof{
		Criterion: "Non-code deliverable",
		File:      "spec.md",
		Source:    "auto",
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// EnsureNonCodeProof appends DefaultNonCodeProof if proofs is empty,
// leaving any existing proof set untouched.
func EnsureNonCodeProof(p *Proofs, now time.Time) {
	if len(p.Proofs) > 0 {
		return
	}
	p.Append(DefaultNonCodeProof(now), now)
}
