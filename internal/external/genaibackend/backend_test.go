package genaibackend

import (
	"context"
	"testing"
)

func TestStart_MissingAPIKeyErrors(t *testing.T) {
	b := New("")
	if err := b.Start(context.Background()); err == nil {
		t.Fatal("expected an error when no API key is configured")
	}
}

func TestStop_WithoutStartIsSafe(t *testing.T) {
	b := New("fake-key")
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop on a never-started backend should be a no-op, got %v", err)
	}
}

func TestStop_LeavesClientCleared(t *testing.T) {
	b := New("fake-key")
	b.mu.Lock()
	b.client = nil
	b.mu.Unlock()

	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		t.Error("expected client reference cleared after Stop")
	}
}
