package phases

import (
	"bytes"
	"context"
	"errors"
	"testing"
)

func TestRunPhase_SuccessOnFirstAttempt(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	calls := 0
	result := o.RunPhase(context.Background(), "coding", func(ctx context.Context, prefix string) (PhaseResult, error) {
		calls++
		return PhaseResult{Success: true}, nil
	})
	if !result.Success {
		t.Fatal("expected success")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call, got %d", calls)
	}
	if result.Retries != 0 {
		t.Errorf("expected Retries=0 on first-attempt success, got %d", result.Retries)
	}
}

func TestRunPhase_RetriesAgentDrivenPhaseUntilSuccess(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	calls := 0
	result := o.RunPhase(context.Background(), "coding", func(ctx context.Context, prefix string) (PhaseResult, error) {
		calls++
		if calls < 3 {
			return PhaseResult{}, errors.New("transient failure")
		}
		return PhaseResult{Success: true}, nil
	})
	if !result.Success {
		t.Fatal("expected eventual success")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestRunPhase_StopsAtMaxRetries(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	calls := 0
	result := o.RunPhase(context.Background(), "coding", func(ctx context.Context, prefix string) (PhaseResult, error) {
		calls++
		return PhaseResult{}, errors.New("always fails")
	})
	if result.Success {
		t.Fatal("expected failure after exhausting retries")
	}
	if calls != o.MaxRetries+1 {
		t.Errorf("expected %d attempts (1 + MaxRetries), got %d", o.MaxRetries+1, calls)
	}
}

func TestRunPhase_DeterministicPhasesNeverRetry(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	calls := 0
	o.RunPhase(context.Background(), "env_reality_check", func(ctx context.Context, prefix string) (PhaseResult, error) {
		calls++
		return PhaseResult{}, errors.New("fails")
	})
	if calls != 1 {
		t.Errorf("expected deterministic phase to run exactly once, got %d calls", calls)
	}
}

func TestRunPhase_SummarizerFeedsNextPhasePrompt(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	o.Summarize = func(phase string, files map[string]string) (string, error) {
		return "summary of " + phase, nil
	}

	o.RunPhase(context.Background(), "discovery", func(ctx context.Context, prefix string) (PhaseResult, error) {
		return PhaseResult{Success: true, OutputFiles: []string{"out.md"}}, nil
	})

	var seenPrefix string
	o.RunPhase(context.Background(), "requirements", func(ctx context.Context, prefix string) (PhaseResult, error) {
		seenPrefix = prefix
		return PhaseResult{Success: true}, nil
	})

	if seenPrefix == "" {
		t.Fatal("expected the next phase's prompt to be prefixed with the prior phase's summary")
	}
	if !bytes.Contains([]byte(seenPrefix), []byte("summary of discovery")) {
		t.Errorf("expected prefix to include prior summary, got %q", seenPrefix)
	}
}

func TestRunCodePipeline_StopsOnFirstFailure(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	fns := map[string]PhaseFunc{
		"discovery":    func(ctx context.Context, p string) (PhaseResult, error) { return PhaseResult{Success: true}, nil },
		"requirements": func(ctx context.Context, p string) (PhaseResult, error) { return PhaseResult{}, errors.New("boom") },
	}
	assessment := &ComplexityAssessment{Complexity: "simple"}
	results := o.RunCodePipeline(context.Background(), fns, assessment, nil)

	if len(results) != 2 {
		t.Fatalf("expected pipeline to stop after the failing phase, got %d results", len(results))
	}
	if results[1].Success {
		t.Error("expected second result to be the failure")
	}
}

func TestRunCodePipeline_RunsDynamicPhasesAndReview(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	var ran []string
	mk := func(name string) PhaseFunc {
		return func(ctx context.Context, p string) (PhaseResult, error) {
			ran = append(ran, name)
			return PhaseResult{Success: true}, nil
		}
	}
	fns := map[string]PhaseFunc{
		"discovery":              mk("discovery"),
		"requirements":           mk("requirements"),
		"env_reality_check":      mk("env_reality_check"),
		"preflight":              mk("preflight"),
		"senior_review":          mk("senior_review"),
		"complexity_assessment":  mk("complexity_assessment"),
		"planning":               mk("planning"),
		"coding":                 mk("coding"),
	}
	assessment := &ComplexityAssessment{Complexity: "simple"}
	reviewCalled := false
	review := func(ctx context.Context, p string) (PhaseResult, error) {
		reviewCalled = true
		return PhaseResult{Success: true}, nil
	}

	results := o.RunCodePipeline(context.Background(), fns, assessment, review)

	if !reviewCalled {
		t.Error("expected review checkpoint to run")
	}
	wantOrder := []string{"discovery", "requirements", "env_reality_check", "preflight", "senior_review", "complexity_assessment", "planning", "coding"}
	if len(ran) != len(wantOrder) {
		t.Fatalf("expected %d phases run, got %v", len(wantOrder), ran)
	}
	for i, name := range wantOrder {
		if ran[i] != name {
			t.Errorf("phase order mismatch at %d: got %s, want %s", i, ran[i], name)
		}
	}
	if results[len(results)-1].Phase != "review_checkpoint" {
		t.Errorf("expected last result to be review_checkpoint, got %s", results[len(results)-1].Phase)
	}
}

func TestRunNonCodePipeline_RunsBypassSequence(t *testing.T) {
	o := NewOrchestrator(&bytes.Buffer{})
	var ran []string
	mk := func(name string) PhaseFunc {
		return func(ctx context.Context, p string) (PhaseResult, error) {
			ran = append(ran, name)
			return PhaseResult{Success: true}, nil
		}
	}
	fns := map[string]PhaseFunc{
		"complexity_assessment": mk("complexity_assessment"),
		"quick_spec":            mk("quick_spec"),
		"validation":            mk("validation"),
	}
	results := o.RunNonCodePipeline(context.Background(), fns, mk("review_checkpoint"))

	want := []string{"complexity_assessment", "quick_spec", "validation", "review_checkpoint"}
	if len(ran) != len(want) {
		t.Fatalf("expected %v, got %v", want, ran)
	}
	for i := range want {
		if ran[i] != want[i] {
			t.Errorf("order mismatch at %d: got %s want %s", i, ran[i], want[i])
		}
	}
	if len(results) != 4 {
		t.Errorf("expected 4 phase results, got %d", len(results))
	}
}

func TestToFailurePayload_ExtractsStructuredDetail(t *testing.T) {
	r := PhaseResult{Phase: "coding", Errors: []string{"oops"}, OutputFiles: []string{"a.go"}, Retries: 2}
	p := r.ToFailurePayload()
	if p.Phase != "coding" || len(p.Errors) != 1 || p.Retries != 2 {
		t.Errorf("unexpected payload: %+v", p)
	}
}
