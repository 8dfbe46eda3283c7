// Package genaibackend adapts google.golang.org/genai into the
// external.ModelBackend/session.Client contracts, mirroring the teacher's
// GeminiClient (internal/perception/client_gemini.go) and
// GenAIEngine (internal/embedding/genai.go) idioms: a thinking-level to
// token-budget mapping, a lazily constructed *genai.Client, and
// structured logging of every request's latency.
package genaibackend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/auto-iflow/autoiflow/internal/external"
	"github.com/auto-iflow/autoiflow/internal/logging"
	"github.com/auto-iflow/autoiflow/internal/session"
)

// Backend is a external.ModelBackend backed by the Gemini API. It holds a
// single shared *genai.Client across every Client() call, matching the
// teacher's one-client-per-process convention.
type Backend struct {
	apiKey string

	mu     sync.Mutex
	client *genai.Client
}

// New constructs a Backend that authenticates with apiKey on Start.
func New(apiKey string) *Backend {
	return &Backend{apiKey: apiKey}
}

// Start implements external.ModelBackend.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil {
		return nil
	}
	if b.apiKey == "" {
		return fmt.Errorf("genaibackend: no API key configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: b.apiKey})
	if err != nil {
		return fmt.Errorf("genaibackend: creating client: %w", err)
	}
	b.client = client
	return nil
}

// Stop implements external.ModelBackend. The genai SDK's client carries no
// explicit teardown; Stop simply releases our reference.
func (b *Backend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.client = nil
	return nil
}

// Client implements external.ModelBackend, returning one bounded
// interaction bound to cfg.ModelID.
func (b *Backend) Client(ctx context.Context, cfg external.ClientConfig) (session.Client, error) {
	b.mu.Lock()
	c := b.client
	b.mu.Unlock()
	if c == nil {
		if err := b.Start(ctx); err != nil {
			return nil, err
		}
		b.mu.Lock()
		c = b.client
		b.mu.Unlock()
	}
	model := cfg.ModelID
	if model == "" {
		model = "gemini-3-flash-preview"
	}
	return &chatClient{
		client:  c,
		model:   model,
		budget:  cfg.ThinkingBudget,
		system:  cfg.SystemPrompt,
		history: []*genai.Content{},
	}, nil
}

// chatClient implements session.Client over one multi-turn Gemini chat,
// accumulating history across Send calls the way the teacher's GeminiClient
// tracks lastThoughtSignature/lastToolCalls across turns.
type chatClient struct {
	client *genai.Client
	model  string
	budget *int
	system string

	mu      sync.Mutex
	history []*genai.Content
}

// Send implements session.Client: it appends the prompt to history. The
// actual API call happens lazily in Stream, so Send never blocks on
// network I/O.
func (c *chatClient) Send(ctx context.Context, prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, genai.NewContentFromText(prompt, genai.RoleUser))
	return nil
}

// Stream implements session.Client, translating Gemini's streaming
// response chunks into session.RawMessage values: one "assistant" message
// per chunk carrying any text/function-call parts, followed by a final
// "finish" message once the stream is exhausted.
func (c *chatClient) Stream(ctx context.Context) (<-chan session.RawMessage, <-chan error) {
	msgs := make(chan session.RawMessage, 8)
	errs := make(chan error, 1)

	go func() {
		defer close(msgs)
		defer close(errs)

		c.mu.Lock()
		contents := append([]*genai.Content(nil), c.history...)
		c.mu.Unlock()

		config := &genai.GenerateContentConfig{}
		if c.system != "" {
			config.SystemInstruction = genai.NewContentFromText(c.system, genai.RoleUser)
		}
		if c.budget != nil {
			budget := int32(*c.budget)
			config.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget, IncludeThoughts: true}
		}

		start := time.Now()
		log := logging.Get(logging.CategorySession)

		var assistantText string
		for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, contents, config) {
			if err != nil {
				errs <- fmt.Errorf("genaibackend: stream: %w", err)
				return
			}
			if resp == nil || len(resp.Candidates) == 0 {
				continue
			}
			var blocks []session.ContentBlock
			for _, part := range resp.Candidates[0].Content.Parts {
				if part.Text != "" {
					assistantText += part.Text
					blocks = append(blocks, session.ContentBlock{BlockType: "text", Text: part.Text})
				}
				if part.FunctionCall != nil {
					blocks = append(blocks, session.ContentBlock{
						BlockType: "tool_use",
						ToolName:  part.FunctionCall.Name,
						ToolInput: part.FunctionCall.Args,
					})
				}
			}
			if len(blocks) > 0 {
				msgs <- session.RawMessage{Variant: "assistant", Blocks: blocks}
			}
		}

		log.Info("genai stream finished in %v, model=%s", time.Since(start), c.model)

		c.mu.Lock()
		if assistantText != "" {
			c.history = append(c.history, genai.NewContentFromText(assistantText, genai.RoleModel))
		}
		c.mu.Unlock()

		msgs <- session.RawMessage{Variant: "finish"}
	}()

	return msgs, errs
}
