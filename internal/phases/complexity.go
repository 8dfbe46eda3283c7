package phases

// ComplexityAssessment is the outcome of the complexity_assessment phase: it
// decides which dynamic phases run afterward for a code task.
type ComplexityAssessment struct {
	Complexity        string   `json:"complexity"` // simple|medium|complex
	Confidence        float64  `json:"confidence"`
	Reasoning         string   `json:"reasoning,omitempty"`
	NeedsResearch     bool     `json:"needs_research"`
	NeedsSelfCritique bool     `json:"needs_self_critique"`
	PhasesToRunList   []string `json:"phases_to_run"`
}

// basePhasesByComplexity is the fixed phase skeleton per complexity level,
// before the research/self-critique toggles insert their optional phases.
var basePhasesByComplexity = map[string][]string{
	"simple":  {"planning", "coding"},
	"medium":  {"planning", "coding", "self_review"},
	"complex": {"planning", "coding", "self_review", "integration_check"},
}

// PhasesToRun computes the dynamic phase set: the complexity level's base
// skeleton, with "research" prepended when needed and "self_critique"
// appended when needed. If the assessment already carries an explicit
// PhasesToRunList (e.g. set by a test or an agent override), it wins
// verbatim.
func (c ComplexityAssessment) PhasesToRun() []string {
	if len(c.PhasesToRunList) > 0 {
		return c.PhasesToRunList
	}

	base, ok := basePhasesByComplexity[c.Complexity]
	if !ok {
		base = basePhasesByComplexity["medium"]
	}

	var out []string
	if c.NeedsResearch {
		out = append(out, "research")
	}
	out = append(out, base...)
	if c.NeedsSelfCritique {
		out = append(out, "self_critique")
	}
	return out
}
