// Package agent orchestrates the conversational turn loop: it compacts
// history, invokes the provider through the resilient request layer,
// classifies every proposed action, and executes, queues, or refuses it.
package agent

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/warden/pkg/models"
)

// ToolDef describes one tool exposed to the provider.
type ToolDef struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// CompletionRequest is a single provider call.
type CompletionRequest struct {
	System    string
	Messages  []models.Message
	Tools     []ToolDef
	MaxTokens int
}

// CompletionResponse is the provider's reply: assistant text plus any
// proposed tool calls.
type CompletionResponse struct {
	Text       string
	ToolCalls  []models.ToolCall
	StopReason string
}

// Provider is a language-model backend. Implementations must be safe
// for concurrent use.
type Provider interface {
	// Name identifies the provider for logging, metrics, and the
	// per-provider circuit breaker.
	Name() string

	// Complete sends one non-streaming completion request.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}
