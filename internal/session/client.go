package session

import "context"

// RawMessage is a backend-native message, shape depends on which of the
// two variants the backend speaks (spec.md §4.D / §9): either
// Assistant{content:[Text|ToolUse]} + User{content:[ToolResult]}, or flat
// ToolCall/ToolResult messages. Adapters translate RawMessage into Event;
// the session loop never inspects these fields directly.
type RawMessage struct {
	Variant string // "assistant" | "user" | "tool_call" | "tool_result" | "finish"

	// assistant/user content blocks
	Blocks []ContentBlock

	// flat tool_call / tool_result shape
	ToolName   string
	ToolInput  map[string]interface{}
	ToolOutput string // present only when the backend inlines the result on the call itself
	IsError    bool
}

// ContentBlock is one element of an Assistant/User message's content list.
type ContentBlock struct {
	BlockType string // "text" | "tool_use" | "tool_result"
	Text      string
	ToolName  string
	ToolInput map[string]interface{}
	Result    string
	IsError   bool
}

// Client abstracts one running LLM backend process: Send begins a turn,
// Stream yields RawMessages until the backend signals Finish or the
// channel closes. Implementations own the underlying subprocess/transport
// lifecycle; Stream's channel close does not imply the subprocess exited.
type Client interface {
	Send(ctx context.Context, prompt string) error
	Stream(ctx context.Context) (<-chan RawMessage, <-chan error)
}

// Adapter translates one backend's RawMessage shape into the canonical
// Event stream.
type Adapter interface {
	Translate(msg RawMessage) []Event
}
