package phases

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/auto-iflow/autoiflow/internal/logging"
)

// deterministicPhases never retry: they are pure local transforms, not
// agent-driven generation (spec.md §7: "Phases that are deterministic
// local transforms... do not retry.").
var deterministicPhases = map[string]bool{
	"env_reality_check": true,
	"preflight":         true,
	"senior_review":     true,
	"review_checkpoint": true,
}

// PhaseFunc runs one phase's work, given the accumulated prior-phase
// summary prefix to prepend to its prompt.
type PhaseFunc func(ctx context.Context, promptPrefix string) (PhaseResult, error)

// Orchestrator walks a task through its ordered phase pipeline.
type Orchestrator struct {
	Output     io.Writer
	MaxRetries int // cap for agent-driven phases; 0 means no retry beyond the first attempt
	Summaries  *SummaryStore
	Summarize  Summarizer

	counter int
}

// NewOrchestrator returns an Orchestrator with the teacher's default retry
// cap (3) and a fresh summary store.
func NewOrchestrator(out io.Writer) *Orchestrator {
	return &Orchestrator{
		Output:     out,
		MaxRetries: 3,
		Summaries:  NewSummaryStore(500),
	}
}

func (o *Orchestrator) banner(name string) {
	o.counter++
	if o.Output != nil {
		fmt.Fprintf(o.Output, "\n=== Phase %d: %s ===\n", o.counter, name)
	}
}

// RunPhase is the uniform wrapper every phase executes through: it
// increments the phase counter, prints a banner, awaits the phase function
// (retrying agent-driven phases up to MaxRetries on failure), logs a
// structured failure payload on error, and returns the PhaseResult.
func (o *Orchestrator) RunPhase(ctx context.Context, name string, fn PhaseFunc) PhaseResult {
	o.banner(name)

	maxAttempts := 1
	if !deterministicPhases[name] && o.MaxRetries > 0 {
		maxAttempts = o.MaxRetries + 1
	}

	var last PhaseResult
	for attempt := 0; attempt < maxAttempts; attempt++ {
		prefix := ""
		if o.Summaries != nil {
			prefix = o.Summaries.PromptPrefix()
		}

		result, err := fn(ctx, prefix)
		result.Phase = name
		result.Retries = attempt
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err.Error())
		}
		last = result

		if result.Success {
			o.compactSummary(ctx, name, result)
			return result
		}

		logging.Get(logging.CategoryPhases).Error(
			"phase %s failed (attempt %d/%d): %v", name, attempt+1, maxAttempts, result.Errors)

		if ctx.Err() != nil {
			break
		}
	}
	return last
}

// compactSummary asks the configured Summarizer (bounded 60s) to produce a
// <=500-word summary of the phase's output files and records it, so every
// subsequent phase's prompt stays bounded regardless of how large the raw
// artifacts grow.
func (o *Orchestrator) compactSummary(ctx context.Context, name string, result PhaseResult) {
	if o.Summarize == nil || o.Summaries == nil {
		return
	}

	sctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	type out struct {
		summary string
		err     error
	}
	ch := make(chan out, 1)
	go func() {
		files := map[string]string{}
		for _, f := range result.OutputFiles {
			files[f] = ""
		}
		summary, err := o.Summarize(name, files)
		ch <- out{summary, err}
	}()

	select {
	case <-sctx.Done():
		logging.Get(logging.CategoryPhases).Warn("phase summary for %s timed out", name)
	case r := <-ch:
		if r.err != nil {
			logging.Get(logging.CategoryPhases).Warn("phase summary for %s failed: %v", name, r.err)
			return
		}
		o.Summaries.Record(name, r.summary)
	}
}

// CodePipeline is the fixed ordered sequence for code tasks up through
// complexity assessment; the dynamic set returned by
// ComplexityAssessment.PhasesToRun is spliced in after it, followed by the
// review checkpoint.
var CodePipeline = []string{
	"discovery",
	"requirements",
	"env_reality_check",
	"preflight",
	"senior_review",
	"complexity_assessment",
}

// NonCodePipeline bypasses every code phase after complexity_assessment,
// running only quick_spec then validation before entering review.
var NonCodePipeline = []string{
	"complexity_assessment",
	"quick_spec",
	"validation",
}

// RunCodePipeline executes CodePipeline, then the assessment's dynamic
// phase set, then the review checkpoint. phaseFns must contain an entry
// for every name that will run; the "complexity_assessment" entry must
// populate assessmentOut, which is read once CodePipeline has finished.
func (o *Orchestrator) RunCodePipeline(
	ctx context.Context,
	phaseFns map[string]PhaseFunc,
	assessmentOut *ComplexityAssessment,
	reviewFn PhaseFunc,
) []PhaseResult {
	var results []PhaseResult

	for _, name := range CodePipeline {
		fn, ok := phaseFns[name]
		if !ok {
			continue
		}
		result := o.RunPhase(ctx, name, fn)
		results = append(results, result)
		if !result.Success {
			return results
		}
	}

	for _, name := range assessmentOut.PhasesToRun() {
		fn, ok := phaseFns[name]
		if !ok {
			continue
		}
		result := o.RunPhase(ctx, name, fn)
		results = append(results, result)
		if !result.Success {
			return results
		}
	}

	if reviewFn != nil {
		results = append(results, o.RunPhase(ctx, "review_checkpoint", reviewFn))
	}
	return results
}

// RunNonCodePipeline executes the short bypass pipeline for non-code
// tasks: complexity_assessment, quick_spec, then validation, then the
// review checkpoint.
func (o *Orchestrator) RunNonCodePipeline(
	ctx context.Context,
	phaseFns map[string]PhaseFunc,
	reviewFn PhaseFunc,
) []PhaseResult {
	var results []PhaseResult
	for _, name := range NonCodePipeline {
		fn, ok := phaseFns[name]
		if !ok {
			continue
		}
		result := o.RunPhase(ctx, name, fn)
		results = append(results, result)
		if !result.Success {
			return results
		}
	}
	if reviewFn != nil {
		results = append(results, o.RunPhase(ctx, "review_checkpoint", reviewFn))
	}
	return results
}
