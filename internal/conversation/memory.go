package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/haasonsaas/warden/pkg/models"
)

// Defaults for the context budget.
const (
	DefaultTokenBudget        = 150000
	DefaultSummarizeThreshold = 0.75
	DefaultMinRecentMessages  = 6
)

// SummarizeFunc condenses rendered conversation text into a summary.
// It typically calls the provider through the resilient invoker.
type SummarizeFunc func(ctx context.Context, text string) (string, error)

// Config bounds the conversation memory.
type Config struct {
	// TokenBudget is the estimated token ceiling for active history.
	TokenBudget int

	// SummarizeThreshold is the budget fraction (0, 1] at which
	// summarization triggers.
	SummarizeThreshold float64

	// MinRecentMessages is how many trailing messages survive
	// summarization verbatim.
	MinRecentMessages int
}

func (c Config) withDefaults() Config {
	if c.TokenBudget <= 0 {
		c.TokenBudget = DefaultTokenBudget
	}
	if c.SummarizeThreshold <= 0 || c.SummarizeThreshold > 1 {
		c.SummarizeThreshold = DefaultSummarizeThreshold
	}
	if c.MinRecentMessages < 1 {
		c.MinRecentMessages = DefaultMinRecentMessages
	}
	return c
}

// Stats is a snapshot of memory usage.
type Stats struct {
	TokensUsed      int
	TokenBudget     int
	Percentage      float64
	ActiveMessages  int
	SummarizedCount int
	HasSummary      bool
}

// Memory holds the ordered conversation history plus an optional rolling
// summary of everything that has been compacted away. It is
// single-writer: only the turn loop mutates it.
type Memory struct {
	config    Config
	summarize SummarizeFunc
	logger    *slog.Logger

	messages        []models.Message
	summary         string
	summarizedCount int
}

// NewMemory creates a Memory. summarize may be nil, in which case
// compaction falls back to plain truncation.
func NewMemory(config Config, summarize SummarizeFunc, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		config:    config.withDefaults(),
		summarize: summarize,
		logger:    logger,
	}
}

// Append adds a message to the history.
func (m *Memory) Append(msg models.Message) {
	m.messages = append(m.messages, msg)
}

// AppendUser adds a plain-text user message.
func (m *Memory) AppendUser(text string) {
	m.Append(models.UserText(text))
}

// AppendAssistant adds an assistant message.
func (m *Memory) AppendAssistant(msg models.Message) {
	msg.Role = models.RoleAssistant
	m.Append(msg)
}

// History returns a copy of the active messages in order.
func (m *Memory) History() []models.Message {
	out := make([]models.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Summary returns the rolling summary, empty if none exists.
func (m *Memory) Summary() string {
	return m.summary
}

// Usage returns the estimated token count (summary included) and the
// fraction of the budget consumed.
func (m *Memory) Usage() (int, float64) {
	tokens := EstimateHistory(m.messages)
	if m.summary != "" {
		tokens += EstimateText(m.summary)
	}
	return tokens, float64(tokens) / float64(m.config.TokenBudget)
}

// NeedsCompaction reports whether usage has crossed the threshold and
// there are messages beyond the protected recent tail.
func (m *Memory) NeedsCompaction() bool {
	if len(m.messages) <= m.config.MinRecentMessages {
		return false
	}
	_, fraction := m.Usage()
	return fraction >= m.config.SummarizeThreshold
}

// CompactIfNeeded summarizes older messages when the threshold is
// crossed, keeping the last MinRecentMessages verbatim. A summarizer
// failure degrades to plain truncation of the same prefix; the
// conversation keeps going either way. Returns whether history changed.
func (m *Memory) CompactIfNeeded(ctx context.Context) bool {
	if !m.NeedsCompaction() {
		return false
	}

	keep := m.config.MinRecentMessages
	older := m.messages[:len(m.messages)-keep]
	tail := m.messages[len(m.messages)-keep:]

	text := renderForSummary(older)
	if m.summary != "" {
		text = fmt.Sprintf("PREVIOUS SUMMARY:\n%s\n\nNEW MESSAGES:\n%s", m.summary, text)
	}

	var newSummary string
	var err error
	if m.summarize != nil {
		newSummary, err = m.summarize(ctx, text)
	}

	if m.summarize == nil || err != nil || strings.TrimSpace(newSummary) == "" {
		// Degrade to truncation: drop the prefix, keep any prior summary.
		m.logger.Warn("summarization failed, truncating history",
			"dropped_messages", len(older),
			"error", err)
		m.messages = append([]models.Message(nil), tail...)
		return true
	}

	m.summary = newSummary
	m.summarizedCount += len(older)
	m.messages = append([]models.Message(nil), tail...)

	tokens, fraction := m.Usage()
	m.logger.Info("compacted conversation history",
		"summarized_messages", len(older),
		"active_messages", len(m.messages),
		"tokens", tokens,
		"budget_used", fmt.Sprintf("%.1f%%", fraction*100))
	return true
}

// Clear drops all history, the summary, and counters.
func (m *Memory) Clear() {
	m.messages = nil
	m.summary = ""
	m.summarizedCount = 0
}

// Stats returns a snapshot of memory usage.
func (m *Memory) Stats() Stats {
	tokens, fraction := m.Usage()
	return Stats{
		TokensUsed:      tokens,
		TokenBudget:     m.config.TokenBudget,
		Percentage:      fraction,
		ActiveMessages:  len(m.messages),
		SummarizedCount: m.summarizedCount,
		HasSummary:      m.summary != "",
	}
}

// renderForSummary flattens messages to readable text for the
// summarization prompt.
func renderForSummary(msgs []models.Message) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(strings.ToUpper(string(msg.Role)))
		b.WriteString(":\n")
		b.WriteString(msg.PlainText())
	}
	return b.String()
}
