package subprocessbackend

import (
	"context"
	"testing"
	"time"

	"github.com/auto-iflow/autoiflow/internal/external"
)

// ackScript reads one line from stdin (the encoded prompt) then emits a
// text chunk followed by a finish message, mirroring a well-behaved agent
// CLI's newline-delimited JSON protocol.
const ackScript = `read -r line; printf '{"variant":"text","text":"ack"}\n'; printf '{"variant":"finish"}\n'`

func TestBackend_StartStopAreNoops(t *testing.T) {
	b := New("/bin/sh", []string{"-c", ackScript}, t.TempDir())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestClient_SendThenStreamYieldsTextAndFinish(t *testing.T) {
	b := New("/bin/sh", []string{"-c", ackScript}, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := b.Client(ctx, external.ClientConfig{})
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if err := client.Send(ctx, "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	msgs, errs := client.Stream(ctx)
	var variants []string
	for m := range msgs {
		variants = append(variants, m.Variant)
	}
	for err := range errs {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(variants) != 2 || variants[0] != "text" || variants[1] != "finish" {
		t.Errorf("expected [text finish], got %v", variants)
	}
}

func TestClient_StreamStopsOnEOFWithoutExplicitFinish(t *testing.T) {
	b := New("/bin/sh", []string{"-c", "read -r line; printf '{\"variant\":\"text\",\"text\":\"partial\"}\\n'"}, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := b.Client(ctx, external.ClientConfig{})
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	client.Send(ctx, "hello")

	msgs, errs := client.Stream(ctx)
	var variants []string
	for m := range msgs {
		variants = append(variants, m.Variant)
	}
	for err := range errs {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(variants) != 2 || variants[len(variants)-1] != "finish" {
		t.Errorf("expected a synthesized finish after EOF, got %v", variants)
	}
}

func TestClient_MalformedLineIsSkippedNotFatal(t *testing.T) {
	script := `read -r line; printf 'not json\n'; printf '{"variant":"finish"}\n'`
	b := New("/bin/sh", []string{"-c", script}, t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := b.Client(ctx, external.ClientConfig{})
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	client.Send(ctx, "hello")

	msgs, errs := client.Stream(ctx)
	var variants []string
	for m := range msgs {
		variants = append(variants, m.Variant)
	}
	for err := range errs {
		t.Fatalf("unexpected stream error: %v", err)
	}
	if len(variants) != 1 || variants[0] != "finish" {
		t.Errorf("expected the malformed line skipped and only finish delivered, got %v", variants)
	}
}
