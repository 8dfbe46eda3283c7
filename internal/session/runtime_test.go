package session

import (
	"context"
	"testing"
	"time"
)

// fakeClient feeds a fixed sequence of RawMessages, optionally stalling
// before a given index to exercise the idle timeout.
type fakeClient struct {
	messages   []RawMessage
	stallAfter int // index after which to stall indefinitely (-1 = never)
	msgCh      chan RawMessage
	errCh      chan error
}

func (c *fakeClient) Send(ctx context.Context, prompt string) error { return nil }

func (c *fakeClient) Stream(ctx context.Context) (<-chan RawMessage, <-chan error) {
	c.msgCh = make(chan RawMessage)
	c.errCh = make(chan error)
	go func() {
		defer close(c.msgCh)
		for i, m := range c.messages {
			if i == c.stallAfter {
				<-ctx.Done()
				return
			}
			select {
			case c.msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return c.msgCh, c.errCh
}

type passthroughAdapter struct{}

func (passthroughAdapter) Translate(msg RawMessage) []Event {
	switch msg.Variant {
	case "finish":
		return []Event{{Kind: KindFinish}}
	case "text":
		return []Event{{Kind: KindTextChunk, Text: msg.Blocks[0].Text}}
	default:
		return nil
	}
}

func TestRun_CompletesOnFinishWithBuildComplete(t *testing.T) {
	client := &fakeClient{
		messages:   []RawMessage{{Variant: "text", Blocks: []ContentBlock{{Text: "hello "}}}, {Variant: "finish"}},
		stallAfter: -1,
	}
	outcome, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", time.Second, func() bool { return true }, Handlers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "complete" {
		t.Errorf("expected complete, got %s", outcome.Status)
	}
	if outcome.Transcript != "hello " {
		t.Errorf("unexpected transcript: %q", outcome.Transcript)
	}
}

func TestRun_ContinuesWhenBuildIncomplete(t *testing.T) {
	client := &fakeClient{
		messages:   []RawMessage{{Variant: "finish"}},
		stallAfter: -1,
	}
	outcome, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", time.Second, func() bool { return false }, Handlers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "continue" {
		t.Errorf("expected continue, got %s", outcome.Status)
	}
}

func TestRun_StreamEndWithoutFinishChecksBuildComplete(t *testing.T) {
	client := &fakeClient{messages: []RawMessage{{Variant: "text", Blocks: []ContentBlock{{Text: "partial"}}}}, stallAfter: -1}
	outcome, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", time.Second, func() bool { return false }, Handlers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "continue" {
		t.Errorf("expected continue when the stream ends with pending work, got %s", outcome.Status)
	}
}

func TestRun_IdleTimeoutAbortsSession(t *testing.T) {
	client := &fakeClient{
		messages:   []RawMessage{{Variant: "text", Blocks: []ContentBlock{{Text: "hi"}}}, {Variant: "finish"}},
		stallAfter: 1, // stall before the finish message
	}
	outcome, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", 50*time.Millisecond, func() bool { return true }, Handlers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "error" {
		t.Fatalf("expected error status on idle timeout, got %s", outcome.Status)
	}
	if outcome.Reason == "" {
		t.Error("expected a non-empty idle timeout reason")
	}
}

func TestRun_ZeroTimeoutDisablesIdleBound(t *testing.T) {
	client := &fakeClient{messages: []RawMessage{{Variant: "finish"}}, stallAfter: -1}
	outcome, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", 0, func() bool { return true }, Handlers{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Status != "complete" {
		t.Errorf("expected complete with no idle bound, got %s", outcome.Status)
	}
}

func TestRun_HandlersInvokedInOrder(t *testing.T) {
	client := &fakeClient{messages: []RawMessage{{Variant: "text", Blocks: []ContentBlock{{Text: "a"}}}, {Variant: "finish"}}, stallAfter: -1}
	var texts []string
	h := Handlers{OnText: func(s string) { texts = append(texts, s) }}
	_, err := Run(context.Background(), client, passthroughAdapter{}, "prompt", time.Second, func() bool { return true }, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(texts) != 1 || texts[0] != "a" {
		t.Errorf("expected OnText to fire once with 'a', got %v", texts)
	}
}

func TestIdleTimeoutFromSeconds_ZeroDisablesBound(t *testing.T) {
	if got := IdleTimeoutFromSeconds(0, true); got != 0 {
		t.Errorf("expected 0 (no bound), got %v", got)
	}
}

func TestIdleTimeoutFromSeconds_NegativeUsesDefault(t *testing.T) {
	if got := IdleTimeoutFromSeconds(-5, true); got != DefaultIdleTimeout {
		t.Errorf("expected default for negative value, got %v", got)
	}
}

func TestIdleTimeoutFromSeconds_UnsetUsesDefault(t *testing.T) {
	if got := IdleTimeoutFromSeconds(0, false); got != DefaultIdleTimeout {
		t.Errorf("expected default when unset, got %v", got)
	}
}

func TestIdleTimeoutFromSeconds_PositiveValueHonored(t *testing.T) {
	if got := IdleTimeoutFromSeconds(42, true); got != 42*time.Second {
		t.Errorf("expected 42s, got %v", got)
	}
}
