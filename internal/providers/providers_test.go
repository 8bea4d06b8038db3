package providers

import (
	"encoding/json"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/warden/internal/agent"
	"github.com/haasonsaas/warden/pkg/models"
)

func TestNew_SelectsProvider(t *testing.T) {
	p, err := New(Config{Name: "anthropic", APIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("name = %q", p.Name())
	}

	p, err = New(Config{Name: "openai", APIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("name = %q", p.Name())
	}

	// Anthropic is the default.
	p, err = New(Config{APIKey: "key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("default name = %q", p.Name())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(Config{Name: "llama-at-home", APIKey: "key"}); err == nil {
		t.Errorf("unknown provider should fail")
	}
	if _, err := New(Config{Name: "anthropic"}); err == nil {
		t.Errorf("missing API key should fail")
	}
	if _, err := New(Config{Name: "openai"}); err == nil {
		t.Errorf("missing API key should fail")
	}
}

func TestConvertOpenAIMessages(t *testing.T) {
	history := []models.Message{
		models.UserText("list my files"),
		{
			Role: models.RoleAssistant,
			Blocks: []models.ContentBlock{
				{Type: models.BlockText, Text: "Listing now."},
				{Type: models.BlockToolUse, ToolCall: &models.ToolCall{
					ID:    "c1",
					Name:  "run_command",
					Input: json.RawMessage(`{"command":"ls"}`),
				}},
			},
		},
		{
			Role: models.RoleUser,
			Blocks: []models.ContentBlock{
				{Type: models.BlockToolResult, ToolResult: &models.ToolResult{
					ToolCallID: "c1",
					Content:    "file1\nfile2",
				}},
			},
		},
	}

	out := convertOpenAIMessages(history, "Be helpful.")
	if len(out) != 4 {
		t.Fatalf("message count = %d, want 4", len(out))
	}

	if out[0].Role != openai.ChatMessageRoleSystem || out[0].Content != "Be helpful." {
		t.Errorf("system message = %+v", out[0])
	}
	if out[1].Role != openai.ChatMessageRoleUser || out[1].Content != "list my files" {
		t.Errorf("user message = %+v", out[1])
	}

	assistant := out[2]
	if assistant.Role != openai.ChatMessageRoleAssistant || assistant.Content != "Listing now." {
		t.Errorf("assistant message = %+v", assistant)
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d, want 1", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].ID != "c1" || assistant.ToolCalls[0].Function.Name != "run_command" {
		t.Errorf("tool call = %+v", assistant.ToolCalls[0])
	}

	result := out[3]
	if result.Role != openai.ChatMessageRoleTool || result.ToolCallID != "c1" {
		t.Errorf("tool result message = %+v", result)
	}
	if result.Content != "file1\nfile2" {
		t.Errorf("tool result content = %q", result.Content)
	}
}

func TestConvertOpenAITools(t *testing.T) {
	tools := convertOpenAITools(agent.Tools()[:1])
	if len(tools) != 1 {
		t.Fatalf("tool count = %d", len(tools))
	}
	if tools[0].Type != openai.ToolTypeFunction {
		t.Errorf("type = %q", tools[0].Type)
	}
	if tools[0].Function.Name != "run_command" {
		t.Errorf("name = %q", tools[0].Function.Name)
	}
}

func TestConvertAnthropicMessages_SkipsEmpty(t *testing.T) {
	history := []models.Message{
		{Role: models.RoleUser},
		models.UserText("hello"),
	}
	out := convertAnthropicMessages(history)
	if len(out) != 1 {
		t.Errorf("message count = %d, want 1", len(out))
	}
}

func TestConvertAnthropicTools_InvalidSchema(t *testing.T) {
	defs := agent.Tools()
	defs[0].Schema = json.RawMessage(`{not json`)
	if _, err := convertAnthropicTools(defs[:1]); err == nil {
		t.Errorf("invalid schema should fail")
	}
}
