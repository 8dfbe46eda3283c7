// Package adapter translates the two backend message shapes the agent
// stream may speak into the session package's canonical Event stream.
package adapter

import (
	"github.com/auto-iflow/autoiflow/internal/session"
)

// StructuredAdapter handles the Assistant{content:[Text|ToolUse]} +
// User{content:[ToolResult]} shape.
type StructuredAdapter struct{}

// Translate implements session.Adapter for the structured-content shape.
func (StructuredAdapter) Translate(msg session.RawMessage) []session.Event {
	switch msg.Variant {
	case "finish":
		return []session.Event{{Kind: session.KindFinish}}
	case "assistant":
		var events []session.Event
		for _, block := range msg.Blocks {
			switch block.BlockType {
			case "text":
				events = append(events, session.Event{Kind: session.KindTextChunk, Text: block.Text})
			case "tool_use":
				events = append(events, session.Event{
					Kind:      session.KindToolStart,
					ToolName:  block.ToolName,
					ToolInput: block.ToolInput,
				})
			}
		}
		return events
	case "user":
		var events []session.Event
		for _, block := range msg.Blocks {
			if block.BlockType != "tool_result" {
				continue
			}
			class := session.ClassifyToolResult(block.IsError, block.Result)
			stored, headOnly := session.BuildToolEndResult(block.ToolName, block.Result)
			events = append(events, session.Event{
				Kind:     session.KindToolEnd,
				ToolName: block.ToolName,
				Class:    class,
				IsError:  block.IsError,
				Result:   stored,
				HeadOnly: headOnly,
			})
		}
		return events
	default:
		return nil
	}
}

// FlatAdapter handles the flat ToolCall/ToolResult backend shape. When a
// ToolCall carries an inline ToolOutput, it is treated as self-contained:
// both ToolStart and ToolEnd are emitted immediately (spec.md §4.D).
type FlatAdapter struct{}

// Translate implements session.Adapter for the flat tool_call/tool_result
// shape.
func (FlatAdapter) Translate(msg session.RawMessage) []session.Event {
	switch msg.Variant {
	case "finish":
		return []session.Event{{Kind: session.KindFinish}}
	case "tool_call":
		start := session.Event{Kind: session.KindToolStart, ToolName: msg.ToolName, ToolInput: msg.ToolInput}
		if msg.ToolOutput == "" {
			return []session.Event{start}
		}
		class := session.ClassifyToolResult(msg.IsError, msg.ToolOutput)
		stored, headOnly := session.BuildToolEndResult(msg.ToolName, msg.ToolOutput)
		end := session.Event{
			Kind:     session.KindToolEnd,
			ToolName: msg.ToolName,
			Class:    class,
			IsError:  msg.IsError,
			Result:   stored,
			HeadOnly: headOnly,
		}
		return []session.Event{start, end}
	case "tool_result":
		class := session.ClassifyToolResult(msg.IsError, msg.ToolOutput)
		stored, headOnly := session.BuildToolEndResult(msg.ToolName, msg.ToolOutput)
		return []session.Event{{
			Kind:     session.KindToolEnd,
			ToolName: msg.ToolName,
			Class:    class,
			IsError:  msg.IsError,
			Result:   stored,
			HeadOnly: headOnly,
		}}
	default:
		var events []session.Event
		for _, block := range msg.Blocks {
			if block.BlockType == "text" {
				events = append(events, session.Event{Kind: session.KindTextChunk, Text: block.Text})
			}
		}
		return events
	}
}

// Select returns the adapter for a backend-declared shape name ("structured"
// or "flat"), defaulting to StructuredAdapter for an unknown/empty name.
func Select(shape string) session.Adapter {
	if shape == "flat" {
		return FlatAdapter{}
	}
	return StructuredAdapter{}
}
