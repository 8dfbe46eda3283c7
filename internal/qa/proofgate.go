package qa

import (
	"fmt"

	"github.com/auto-iflow/autoiflow/internal/scope"
)

// GateResult is the proof gate's verdict: pass/fail plus a human-readable
// list of gaps (missing criteria) suitable for display to the user.
type GateResult struct {
	OK   bool     `json:"ok"`
	Gaps []string `json:"gaps,omitempty"`
}

// CheckProofGate validates, for code tasks, that every acceptance-map
// entry has a matching proof (same criterion, and same file when the map
// specifies one); for non-code tasks, that at least one proof exists.
func CheckProofGate(taskType string, proofs *Proofs, acceptanceMap []scope.AcceptanceMapEntry) GateResult {
	if taskType != "" && taskType != "code" {
		if len(proofs.Proofs) == 0 {
			return GateResult{OK: false, Gaps: []string{"no proofs recorded for non-code deliverable"}}
		}
		return GateResult{OK: true}
	}

	var gaps []string
	for _, entry := range acceptanceMap {
		if !proofs.Has(entry.Criterion, entry.File) {
			if entry.File != "" {
				gaps = append(gaps, fmt.Sprintf("missing proof for %q in %s", entry.Criterion, entry.File))
			} else {
				gaps = append(gaps, fmt.Sprintf("missing proof for %q", entry.Criterion))
			}
		}
	}
	return GateResult{OK: len(gaps) == 0, Gaps: gaps}
}
