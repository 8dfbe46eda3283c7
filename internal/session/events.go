// Package session implements the bounded agent session runtime: streaming
// agent messages through a single tagged-variant Event type, enforcing the
// idle timeout between consecutive messages, and classifying tool results
// into scope violations, security blocks, generic errors, or success.
package session

import "strings"

// Kind tags an Event's variant.
type Kind string

const (
	KindTextChunk Kind = "text_chunk"
	KindToolStart Kind = "tool_start"
	KindToolEnd   Kind = "tool_end"
	KindFinish    Kind = "finish"
)

// ToolEndClass classifies a ToolEnd event's outcome.
type ToolEndClass string

const (
	ClassSuccess        ToolEndClass = "success"
	ClassScopeViolation ToolEndClass = "scope_violation"
	ClassSecurityBlock  ToolEndClass = "security_block"
	ClassGenericError   ToolEndClass = "generic_error"
)

// Event is the single tagged-variant stream unit the session loop
// consumes. Backend-specific adapters (internal/session/adapter)
// translate both known raw message shapes into this type; the runtime
// itself never inspects backend-specific fields.
type Event struct {
	Kind Kind

	// TextChunk
	Text string

	// ToolStart / ToolEnd
	ToolName  string
	ToolInput map[string]interface{}

	// ToolEnd
	Class      ToolEndClass
	IsError    bool
	Result     string
	HeadOnly   bool // true when Result was truncated to the head of a huge (>50KB) output
}

// hugeOutputThreshold is the cutoff above which a tool result is stored
// only by its head rather than in full.
const hugeOutputThreshold = 50 * 1024

// scopeViolationPhrases is the fixed set of lower-cased substrings that
// mark a tool result as a scope-guard violation (spec.md §6).
var scopeViolationPhrases = []string{
	"file access",
	"not in allowed",
	"not allowed",
	"outside allowed",
	"permission denied",
	"access denied",
	"allowed dirs",
	"allowed directories",
}

// ClassifyToolResult implements spec.md §4.D's tool-result classification:
// scope violation, then security block, then generic error, else success.
// Only is_error results are checked against the phrase sets; a
// non-error result is always success.
func ClassifyToolResult(isError bool, message string) ToolEndClass {
	if !isError {
		return ClassSuccess
	}
	lower := strings.ToLower(message)
	for _, phrase := range scopeViolationPhrases {
		if strings.Contains(lower, phrase) {
			return ClassScopeViolation
		}
	}
	if strings.Contains(lower, "blocked") {
		return ClassSecurityBlock
	}
	return ClassGenericError
}

// inspectionTools are tools whose (non-huge) full output is worth keeping
// as collapsible detail rather than summarizing away.
var inspectionTools = map[string]bool{
	"Read": true, "Grep": true, "Glob": true, "Bash": true, "Shell": true,
}

// BuildToolEndResult applies the output-size policy: inspection-tool
// outputs are kept in full as collapsible detail; anything over 50KB is
// stored only by its head, regardless of tool.
func BuildToolEndResult(toolName, output string) (stored string, headOnly bool) {
	if len(output) > hugeOutputThreshold {
		return output[:hugeOutputThreshold], true
	}
	if inspectionTools[toolName] {
		return output, false
	}
	return output, false
}
