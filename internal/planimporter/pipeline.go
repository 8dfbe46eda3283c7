package planimporter

// SectionSummary and GroupSummary are the JSON-friendly shapes returned to
// the CLI layer.
type SectionSummary struct {
	Title string   `json:"title"`
	Tasks []string `json:"tasks"`
}

type GroupSummary struct {
	Parallel bool     `json:"parallel"`
	Tasks    []string `json:"tasks"`
}

// PipelineInfo describes which stages ran, mirroring the original's
// placeholder agent-pipeline metadata: decomposition is presently a no-op
// stage, kept named so a future agent-backed decomposer has somewhere to
// plug in without changing the result shape.
type PipelineInfo struct {
	Enabled bool              `json:"enabled"`
	Mode    string            `json:"mode"`
	Agents  map[string]string `json:"agents,omitempty"`
	Stages  []string          `json:"stages"`
	Notes   []string          `json:"notes,omitempty"`
}

// Result is the full plan-import payload: parsed sections, normalized
// tasks, and the resulting schedule, plus pipeline provenance.
type Result struct {
	Sections []SectionSummary `json:"sections"`
	Tasks    []NormalizedTask `json:"tasks"`
	Schedule []GroupSummary   `json:"schedule"`
	Pipeline PipelineInfo     `json:"pipeline"`
}

func summarizeSections(sections []Section) []SectionSummary {
	out := make([]SectionSummary, 0, len(sections))
	for _, s := range sections {
		var texts []string
		for _, t := range s.Tasks {
			texts = append(texts, t.Text)
		}
		out = append(out, SectionSummary{Title: s.Title, Tasks: texts})
	}
	return out
}

func summarizeSchedule(groups []TaskGroup) []GroupSummary {
	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		var titles []string
		for _, t := range g.Tasks {
			titles = append(titles, t.Title)
		}
		out = append(out, GroupSummary{Parallel: g.Parallel, Tasks: titles})
	}
	return out
}

// Run executes the deterministic parse -> normalize -> schedule pipeline
// without the agent-pipeline metadata wrapper, for the plain plan-import
// path.
func Run(planText string, maxConcurrency int) (Result, error) {
	sections, err := ParsePlan(planText)
	if err != nil {
		return Result{}, err
	}
	normalized := Normalize(sections)
	concurrency := maxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	schedule := Schedule(normalized, false, concurrency)

	return Result{
		Sections: summarizeSections(sections),
		Tasks:    normalized,
		Schedule: summarizeSchedule(schedule),
		Pipeline: PipelineInfo{Enabled: false, Mode: "deterministic", Stages: []string{"parse", "normalize", "schedule"}},
	}, nil
}

// RunAgentPipeline runs the same parse/normalize/schedule stages under the
// --agent-pipeline flag, additionally recording a decomposition stage
// (currently a no-op, per original_source's placeholder) and the supplied
// agent-profile assignment in the result's pipeline metadata.
func RunAgentPipeline(planText string, maxConcurrency int, agentProfiles map[string]string) (Result, error) {
	sections, err := ParsePlan(planText)
	if err != nil {
		return Result{}, err
	}

	// Decomposer stage: placeholder no-op, mirroring original_source's
	// agent_pipeline.run_agent_pipeline. A future agent-backed decomposer
	// would split large section tasks into finer-grained subtasks here.
	decomposed := sections

	normalized := Normalize(decomposed)
	concurrency := maxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	schedule := Schedule(normalized, false, concurrency)

	return Result{
		Sections: summarizeSections(sections),
		Tasks:    normalized,
		Schedule: summarizeSchedule(schedule),
		Pipeline: PipelineInfo{
			Enabled: true,
			Mode:    "agent",
			Agents:  agentProfiles,
			Stages:  []string{"parse", "decompose", "normalize", "schedule"},
			Notes:   []string{"decompose:noop"},
		},
	}, nil
}
