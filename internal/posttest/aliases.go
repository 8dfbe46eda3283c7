// Package posttest implements the post-code test runner: resolving the
// derived test plan from task intake or scope contract, capping it with
// the smart-cap priority algorithm, and executing each command under a
// per-command timeout.
package posttest

import "strings"

// Alias is one named, expandable test-plan entry. Aliases correspond to
// the priority classes used by the smart cap: SECURITY > PIPELINE >
// PROOF_GATE > NPM_TEST > COLLECT.
type Alias struct {
	Name     string
	Command  string
	Priority int
}

// Priority classes, lower number wins the smart cap first.
const (
	PrioritySecurity  = 0
	PriorityPipeline  = 1
	PriorityProofGate = 2
	PriorityNPMTest   = 3
	PriorityCollect   = 4
	PriorityDirect    = -1 // commands that directly match a touched subsystem path are always kept
)

// DefaultAliases mirrors the teacher-style alias table: a fixed name to
// full shell command mapping plus its smart-cap priority class.
var DefaultAliases = map[string]Alias{
	"PYTEST_SECURITY": {Name: "PYTEST_SECURITY", Command: "python3 -m pytest tests/test_security_hooks.py -v", Priority: PrioritySecurity},
	"PYTEST_PIPELINE": {Name: "PYTEST_PIPELINE", Command: "python3 -m pytest tests/test_pipeline.py -v", Priority: PriorityPipeline},
	"PYTEST_PROOF_GATE": {Name: "PYTEST_PROOF_GATE", Command: "python3 -m pytest tests/test_proof_gate.py -v", Priority: PriorityProofGate},
	"NPM_TEST":        {Name: "NPM_TEST", Command: "npm test", Priority: PriorityNPMTest},
	"COLLECT":         {Name: "COLLECT", Command: "python3 -m pytest --collect-only", Priority: PriorityCollect},
}

// ResolveCommand expands an alias name to its full command string,
// returning the input unchanged when it is not a known alias (an explicit
// command string passes through verbatim, per spec.md §4.F).
func ResolveCommand(entry string) string {
	if alias, ok := DefaultAliases[entry]; ok {
		return alias.Command
	}
	return entry
}

// priorityOf returns the smart-cap priority class for a resolved test-plan
// entry, defaulting to PriorityCollect (lowest) for unknown commands.
func priorityOf(entry string) int {
	if alias, ok := DefaultAliases[entry]; ok {
		return alias.Priority
	}
	return PriorityCollect
}

// isDirectMatch reports whether command touches one of the always-kept
// subsystem paths (security/*, qa/*, pipeline/*) that the smart cap never
// drops regardless of the overall cap.
func isDirectMatch(command string) bool {
	lower := strings.ToLower(command)
	for _, prefix := range []string{"security/", "qa/", "pipeline/"} {
		if strings.Contains(lower, prefix) {
			return true
		}
	}
	return false
}
