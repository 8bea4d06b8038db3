package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/warden/internal/backoff"
	"github.com/haasonsaas/warden/internal/circuit"
	"github.com/haasonsaas/warden/internal/conversation"
	"github.com/haasonsaas/warden/internal/errctx"
	"github.com/haasonsaas/warden/internal/observability"
	"github.com/haasonsaas/warden/internal/retry"
	"github.com/haasonsaas/warden/internal/safety"
	"github.com/haasonsaas/warden/pkg/models"
)

// summarizationPrompt asks the provider to condense older conversation
// history. Kept factual and short so summaries stay cheap.
const summarizationPrompt = `Please provide a concise summary of the following conversation.
Focus on:
1. Key decisions made
2. Important information shared
3. Tasks completed or in progress
4. Any relevant context for continuing the conversation

Keep the summary factual and under 500 words.

CONVERSATION:
%s

SUMMARY:`

// Config configures a Session.
type Config struct {
	// SystemPrompt is prepended to every provider request.
	SystemPrompt string

	// MaxTokens caps provider responses for normal turns.
	MaxTokens int

	// SummaryMaxTokens caps summarization responses.
	SummaryMaxTokens int

	// MaxAttempts and Policy configure the resilient invoker.
	MaxAttempts int
	Policy      backoff.Policy

	// Breaker configures the per-provider circuit breaker.
	Breaker circuit.Config

	// Memory bounds conversation history.
	Memory conversation.Config

	// Retryable decides which provider errors are worth retrying.
	// Defaults to retrying everything.
	Retryable func(error) bool
}

func (c Config) withDefaults() Config {
	if c.MaxTokens <= 0 {
		c.MaxTokens = 4096
	}
	if c.SummaryMaxTokens <= 0 {
		c.SummaryMaxTokens = 1000
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Policy == (backoff.Policy{}) {
		c.Policy = backoff.DefaultPolicy()
	}
	return c
}

// ExecutedAction is an action that ran, successfully or not.
type ExecutedAction struct {
	Action *Action
	Check  safety.RiskCheck
	Output string
	Err    error
}

// RefusedAction is an action blocked by the safety guard.
type RefusedAction struct {
	Action *Action
	Check  safety.RiskCheck
}

// PendingAction awaits an explicit user confirmation.
type PendingAction struct {
	ID        string
	Action    *Action
	Check     safety.RiskCheck
	CreatedAt time.Time
}

// TurnResult is the outcome of one conversational turn.
type TurnResult struct {
	Reply    string
	Executed []ExecutedAction
	Pending  []*PendingAction
	Refused  []RefusedAction
}

// SessionStats aggregates session health for status displays.
type SessionStats struct {
	Memory  conversation.Stats
	Breaker circuit.Stats
	Pending int
}

// Session drives the turn loop for one conversation. The turn loop is
// single-threaded; the circuit breaker is the one piece shared with the
// summarization path.
type Session struct {
	provider Provider
	guard    *safety.Guard
	runner   Runner
	config   Config

	memory   *conversation.Memory
	breakers *circuit.Registry
	breaker  *circuit.Breaker

	logger  *observability.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	pending map[string]*PendingAction
}

// NewSession wires a session together. The circuit breaker registry is
// local to the session; the provider's breaker is shared between turn
// requests and summarization requests so upstream health is judged from
// all traffic.
func NewSession(provider Provider, guard *safety.Guard, runner Runner, config Config, logger *observability.Logger, metrics *observability.Metrics) *Session {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}

	s := &Session{
		provider: provider,
		guard:    guard,
		runner:   runner,
		config:   config.withDefaults(),
		logger:   logger.WithComponent("agent"),
		metrics:  metrics,
		pending:  make(map[string]*PendingAction),
	}

	breakerCfg := s.config.Breaker
	breakerCfg.OnStateChange = func(name, from, to string) {
		s.logger.Warn(context.Background(), "circuit breaker state changed",
			"name", name, "from", from, "to", to)
		s.metrics.ObserveCircuitState(name, to)
	}
	s.breakers = circuit.NewRegistry(breakerCfg)
	s.breaker = s.breakers.Get(provider.Name() + "_api")

	s.memory = conversation.NewMemory(s.config.Memory, s.summarizeHistory, logger.Slog())
	return s
}

// RunTurn handles one user input: compact history if needed, call the
// provider through the resilient invoker, classify and dispatch every
// proposed action, and append the exchange to memory. On invoker
// failure the error is returned and history is left untouched.
func (s *Session) RunTurn(ctx context.Context, input string) (*TurnResult, *errctx.ErrorContext) {
	s.compact(ctx)

	messages := append(s.memory.History(), models.UserText(input))
	req := &CompletionRequest{
		System:    s.systemPrompt(),
		Messages:  messages,
		Tools:     Tools(),
		MaxTokens: s.config.MaxTokens,
	}

	result := s.invoke(ctx, "llm_request", req)
	if result.IsErr() {
		return nil, result.Err()
	}
	resp := result.Value()

	s.memory.AppendUser(input)
	s.memory.AppendAssistant(assistantMessage(resp))

	turn := &TurnResult{Reply: resp.Text}
	var resultBlocks []models.ContentBlock

	for _, call := range resp.ToolCalls {
		action, err := ParseAction(call)
		if err != nil {
			s.logger.Warn(ctx, "rejected malformed tool call", "tool", call.Name, "error", err)
			resultBlocks = append(resultBlocks, toolResultBlock(call.ID, err.Error(), true))
			continue
		}

		check := action.Classify(s.guard)
		s.countVerdict(action, check)

		switch {
		case !check.Allowed:
			s.logger.Warn(ctx, "refused forbidden action",
				"kind", action.Kind, "action", action.Describe(), "reason", check.Reason)
			turn.Refused = append(turn.Refused, RefusedAction{Action: action, Check: check})
			resultBlocks = append(resultBlocks, toolResultBlock(call.ID, "Refused: "+check.UserWarning, true))

		case check.RequiresConfirmation:
			p := &PendingAction{
				ID:        uuid.NewString(),
				Action:    action,
				Check:     check,
				CreatedAt: time.Now(),
			}
			s.mu.Lock()
			s.pending[p.ID] = p
			s.mu.Unlock()
			s.logger.Info(ctx, "queued action for confirmation",
				"id", p.ID, "kind", action.Kind, "action", action.Describe())
			turn.Pending = append(turn.Pending, p)
			resultBlocks = append(resultBlocks, toolResultBlock(call.ID,
				"Awaiting user confirmation before executing.", false))

		default:
			executed := s.execute(ctx, action, check)
			turn.Executed = append(turn.Executed, executed)
			if executed.Err != nil {
				resultBlocks = append(resultBlocks, toolResultBlock(call.ID, executed.Err.Error(), true))
			} else {
				resultBlocks = append(resultBlocks, toolResultBlock(call.ID, executed.Output, false))
			}
		}
	}

	if len(resultBlocks) > 0 {
		s.memory.Append(models.Message{Role: models.RoleUser, Blocks: resultBlocks})
	}

	return turn, nil
}

// Confirm executes a previously queued action by ID.
func (s *Session) Confirm(ctx context.Context, id string) (*ExecutedAction, *errctx.ErrorContext) {
	s.mu.Lock()
	p, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	s.mu.Unlock()

	if !ok {
		return nil, errctx.New(errctx.CategoryUserInput, errctx.SeverityLow, "confirm_action",
			"No pending action with that ID.").AsRecoverable()
	}

	executed := s.execute(ctx, p.Action, p.Check)
	content := executed.Output
	isErr := false
	if executed.Err != nil {
		content = executed.Err.Error()
		isErr = true
	}
	s.memory.Append(models.Message{
		Role:   models.RoleUser,
		Blocks: []models.ContentBlock{toolResultBlock(p.Action.Call.ID, content, isErr)},
	})
	return &executed, nil
}

// Deny discards a pending action. Returns false if the ID is unknown.
func (s *Session) Deny(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return false
	}
	delete(s.pending, id)
	return true
}

// Pending returns the queued actions awaiting confirmation.
func (s *Session) Pending() []*PendingAction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*PendingAction, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	return out
}

// History exposes the conversation history.
func (s *Session) History() []models.Message {
	return s.memory.History()
}

// Clear drops conversation history and pending actions.
func (s *Session) Clear() {
	s.memory.Clear()
	s.mu.Lock()
	s.pending = make(map[string]*PendingAction)
	s.mu.Unlock()
}

// Stats returns a snapshot of session health.
func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	pending := len(s.pending)
	s.mu.Unlock()

	return SessionStats{
		Memory:  s.memory.Stats(),
		Breaker: s.breaker.Stats(),
		Pending: pending,
	}
}

// invoke runs one provider call through the resilient invoker with the
// session's shared breaker.
func (s *Session) invoke(ctx context.Context, operation string, req *CompletionRequest) errctx.Result[*CompletionResponse] {
	cfg := retry.Config{
		MaxAttempts: s.config.MaxAttempts,
		Policy:      s.config.Policy,
		Breaker:     s.breaker,
		Retryable:   s.config.Retryable,
		OnRetry: func(attempt int, err error) {
			s.logger.Warn(ctx, "provider call failed, retrying",
				"operation", operation, "attempt", attempt, "error", err)
			if s.metrics != nil {
				s.metrics.RetryCounter.WithLabelValues(operation).Inc()
			}
		},
	}

	return retry.Do(ctx, operation, cfg, func(ctx context.Context) (*CompletionResponse, error) {
		start := time.Now()
		resp, err := s.provider.Complete(ctx, req)
		if s.metrics != nil {
			status := "success"
			if err != nil {
				status = "error"
			}
			s.metrics.LLMRequestCounter.WithLabelValues(s.provider.Name(), status).Inc()
			s.metrics.LLMRequestDuration.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
		}
		return resp, err
	})
}

// summarizeHistory is the memory's summarizer. It shares the session
// breaker with normal turns: upstream health is one signal regardless
// of which path generated the traffic.
func (s *Session) summarizeHistory(ctx context.Context, text string) (string, error) {
	req := &CompletionRequest{
		Messages:  []models.Message{models.UserText(fmt.Sprintf(summarizationPrompt, text))},
		MaxTokens: s.config.SummaryMaxTokens,
	}

	result := s.invoke(ctx, "summarize_history", req)
	if result.IsErr() {
		return "", result.Err()
	}
	return result.Value().Text, nil
}

func (s *Session) compact(ctx context.Context) {
	before := s.memory.Stats().SummarizedCount
	if !s.memory.CompactIfNeeded(ctx) {
		return
	}
	outcome := "truncated"
	if s.memory.Stats().SummarizedCount > before {
		outcome = "summarized"
	}
	if s.metrics != nil {
		s.metrics.CompactionCounter.WithLabelValues(outcome).Inc()
	}
}

func (s *Session) execute(ctx context.Context, action *Action, check safety.RiskCheck) ExecutedAction {
	output, err := s.runner.Run(ctx, action)
	if s.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.ToolExecutionCounter.WithLabelValues(action.Call.Name, status).Inc()
	}
	if err != nil {
		s.logger.Warn(ctx, "action failed", "kind", action.Kind, "action", action.Describe(), "error", err)
	} else {
		s.logger.Info(ctx, "action executed", "kind", action.Kind, "action", action.Describe())
	}
	return ExecutedAction{Action: action, Check: check, Output: output, Err: err}
}

func (s *Session) countVerdict(action *Action, check safety.RiskCheck) {
	if s.metrics == nil {
		return
	}
	s.metrics.RiskVerdictCounter.WithLabelValues(string(action.Kind), string(check.Level)).Inc()
}

func (s *Session) systemPrompt() string {
	prompt := s.config.SystemPrompt
	if summary := s.memory.Summary(); summary != "" {
		if prompt != "" {
			prompt += "\n\n"
		}
		prompt += "CONVERSATION SUMMARY:\n" + summary
	}
	return prompt
}

// assistantMessage converts a provider response into a history message.
func assistantMessage(resp *CompletionResponse) models.Message {
	if len(resp.ToolCalls) == 0 {
		return models.AssistantText(resp.Text)
	}

	var blocks []models.ContentBlock
	if resp.Text != "" {
		blocks = append(blocks, models.ContentBlock{Type: models.BlockText, Text: resp.Text})
	}
	for i := range resp.ToolCalls {
		call := resp.ToolCalls[i]
		blocks = append(blocks, models.ContentBlock{Type: models.BlockToolUse, ToolCall: &call})
	}
	return models.Message{Role: models.RoleAssistant, Blocks: blocks}
}

func toolResultBlock(callID, content string, isError bool) models.ContentBlock {
	return models.ContentBlock{
		Type: models.BlockToolResult,
		ToolResult: &models.ToolResult{
			ToolCallID: callID,
			Content:    content,
			IsError:    isError,
		},
	}
}
