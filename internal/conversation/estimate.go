// Package conversation manages bounded conversation history: it tracks
// an estimated token count against a budget and summarizes older
// messages when the budget fills up.
package conversation

import "github.com/haasonsaas/warden/pkg/models"

// CharsPerToken is the character-to-token estimation ratio. It is a
// conservative heuristic that works across models without shipping a
// tokenizer.
const CharsPerToken = 4

// EstimateText estimates the token count of a plain string.
func EstimateText(s string) int {
	return len(s) / CharsPerToken
}

// EstimateMessage estimates the token count of one message. Structured
// content is walked block by block: text by length, tool calls by name
// plus raw input, tool results by content. Every message counts as at
// least one token.
func EstimateMessage(m models.Message) int {
	chars := len(m.Content)
	for _, b := range m.Blocks {
		switch b.Type {
		case models.BlockText:
			chars += len(b.Text)
		case models.BlockToolUse:
			if b.ToolCall != nil {
				chars += len(b.ToolCall.Name) + len(b.ToolCall.Input)
			}
		case models.BlockToolResult:
			if b.ToolResult != nil {
				chars += len(b.ToolResult.Content)
			}
		}
	}

	tokens := chars / CharsPerToken
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// EstimateHistory sums the estimates for a slice of messages.
func EstimateHistory(msgs []models.Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateMessage(m)
	}
	return total
}
