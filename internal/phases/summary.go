package phases

import (
	"strings"
)

// Summarizer compresses a phase's raw output files into a bounded prose
// summary. Implementations call out to the LLM backend under a timeout;
// the orchestrator itself only enforces the timeout via context.
type Summarizer func(phaseName string, outputFiles map[string]string) (string, error)

// SummaryStore accumulates one bounded summary per completed phase and
// renders the concatenation that gets prefixed onto every subsequent
// phase's prompt. This is phase-summary compaction (spec.md §4.H): raw
// artifacts never re-enter later prompts directly, only their summaries.
type SummaryStore struct {
	order    []string
	byPhase  map[string]string
	maxWords int
}

// NewSummaryStore creates an empty store. maxWords bounds each stored
// summary (truncated if a Summarizer ignores the limit); 0 means 500,
// matching the teacher's config default.
func NewSummaryStore(maxWords int) *SummaryStore {
	if maxWords <= 0 {
		maxWords = 500
	}
	return &SummaryStore{byPhase: map[string]string{}, maxWords: maxWords}
}

func truncateWords(s string, max int) string {
	words := strings.Fields(s)
	if len(words) <= max {
		return s
	}
	return strings.Join(words[:max], " ") + " ..."
}

// Record stores phase's summary, truncating to the configured word budget.
func (s *SummaryStore) Record(phase, summary string) {
	if _, exists := s.byPhase[phase]; !exists {
		s.order = append(s.order, phase)
	}
	s.byPhase[phase] = truncateWords(strings.TrimSpace(summary), s.maxWords)
}

// PromptPrefix renders every recorded summary, in phase-completion order,
// as the block every subsequent phase's prompt is prefixed with.
func (s *SummaryStore) PromptPrefix() string {
	if len(s.order) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("## Prior Phase Summaries\n\n")
	for _, phase := range s.order {
		b.WriteString("### ")
		b.WriteString(phase)
		b.WriteString("\n\n")
		b.WriteString(s.byPhase[phase])
		b.WriteString("\n\n")
	}
	return b.String()
}
