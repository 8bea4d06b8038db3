// Package models provides the shared domain types for the warden agent.
package models

import "encoding/json"

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlockType discriminates the payload of a ContentBlock.
type ContentBlockType string

const (
	BlockText       ContentBlockType = "text"
	BlockToolUse    ContentBlockType = "tool_use"
	BlockToolResult ContentBlockType = "tool_result"
)

// ToolCall is a provider-proposed tool invocation.
type ToolCall struct {
	// ID is the provider-assigned identifier, echoed back in the result.
	ID string `json:"id"`

	// Name is the tool to invoke (run_command, write_file, ...).
	Name string `json:"name"`

	// Input is the raw JSON arguments for the tool.
	Input json.RawMessage `json:"input"`
}

// ToolResult carries the outcome of an executed tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}

// ContentBlock is one typed segment of a message. Exactly one payload
// field should be set for a given Type.
type ContentBlock struct {
	Type       ContentBlockType `json:"type"`
	Text       string           `json:"text,omitempty"`
	ToolCall   *ToolCall        `json:"tool_call,omitempty"`
	ToolResult *ToolResult      `json:"tool_result,omitempty"`
}

// Message is one entry in the conversation history. Content holds plain
// text; Blocks holds structured content (text, tool use, tool results).
// When Blocks is non-empty it is authoritative and Content is ignored.
type Message struct {
	Role    Role           `json:"role"`
	Content string         `json:"content,omitempty"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`
}

// UserText builds a plain-text user message.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantText builds a plain-text assistant message.
func AssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// PlainText flattens the message to displayable text. Tool use and tool
// result blocks are rendered as short bracketed markers.
func (m Message) PlainText() string {
	if len(m.Blocks) == 0 {
		return m.Content
	}
	var out string
	for _, b := range m.Blocks {
		switch b.Type {
		case BlockText:
			if out != "" {
				out += "\n"
			}
			out += b.Text
		case BlockToolUse:
			if b.ToolCall != nil {
				if out != "" {
					out += "\n"
				}
				out += "[Used tool: " + b.ToolCall.Name + "]"
			}
		case BlockToolResult:
			if b.ToolResult != nil {
				if out != "" {
					out += "\n"
				}
				out += "[Tool result: " + truncate(b.ToolResult.Content, 200) + "]"
			}
		}
	}
	return out
}

// ToolCalls returns the tool-use blocks of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
