package phases

import (
	"context"
	"errors"
	"testing"
)

func TestRunReviewCheckpoint_AutoApproveSkipsPrompt(t *testing.T) {
	called := false
	decision, err := RunReviewCheckpoint(context.Background(), true, func(ctx context.Context) (ReviewDecision, error) {
		called = true
		return ReviewDecision{}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decision.Approved {
		t.Error("expected auto_approve to approve")
	}
	if called {
		t.Error("expected the prompt not to be invoked under auto_approve")
	}
}

func TestRunReviewCheckpoint_DelegatesToPrompt(t *testing.T) {
	decision, err := RunReviewCheckpoint(context.Background(), false, func(ctx context.Context) (ReviewDecision, error) {
		return ReviewDecision{Approved: false, Reason: "needs changes"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Approved || decision.Reason != "needs changes" {
		t.Errorf("unexpected decision: %+v", decision)
	}
}

func TestRunReviewCheckpoint_InterruptWrapsCancellation(t *testing.T) {
	cause := errors.New("ctrl-c")
	_, err := RunReviewCheckpoint(context.Background(), false, func(ctx context.Context) (ReviewDecision, error) {
		return ReviewDecision{}, cause
	})
	if err == nil {
		t.Fatal("expected an error on prompt interrupt")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped error to unwrap to cause, got %v", err)
	}
}
