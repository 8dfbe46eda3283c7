package phases

// PhaseResult is the uniform outcome every phase function returns to the
// orchestrator's run_phase wrapper.
type PhaseResult struct {
	Phase       string   `json:"phase"`
	Success     bool     `json:"success"`
	OutputFiles []string `json:"output_files,omitempty"`
	Errors      []string `json:"errors,omitempty"`
	Retries     int      `json:"retries"`
}

// FailurePayload is the structured detail block logged (and surfaced to the
// user) when a phase fails, per spec.md §7's ValidationError propagation:
// errors list, output files, and retry count.
type FailurePayload struct {
	Phase       string   `json:"phase"`
	Errors      []string `json:"errors"`
	OutputFiles []string `json:"output_files,omitempty"`
	Retries     int      `json:"retries"`
}

// ToFailurePayload extracts the structured failure detail from a failed
// PhaseResult.
func (r PhaseResult) ToFailurePayload() FailurePayload {
	return FailurePayload{
		Phase:       r.Phase,
		Errors:      r.Errors,
		OutputFiles: r.OutputFiles,
		Retries:     r.Retries,
	}
}
