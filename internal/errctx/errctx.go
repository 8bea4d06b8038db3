// Package errctx defines the structured error taxonomy shared across
// the agent: every cross-component failure is carried as an ErrorContext
// with a category, severity, and both user-facing and technical messages.
package errctx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
)

// Category groups failures by origin so callers can decide how to react.
type Category string

const (
	CategoryConfiguration Category = "configuration"
	CategoryNetwork       Category = "network"
	CategoryUpstream      Category = "upstream"
	CategoryFileSystem    Category = "filesystem"
	CategoryPermission    Category = "permission"
	CategoryCommand       Category = "command_execution"
	CategoryUserInput     Category = "user_input"
	CategoryInternal      Category = "internal"
	CategoryUnknown       Category = "unknown"
)

// Severity ranks how bad a failure is for the session.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ErrorContext is the uniform failure value passed between components.
// UserMessage is safe to show directly; TechMessage goes to logs.
type ErrorContext struct {
	Category        Category
	Severity        Severity
	Operation       string
	UserMessage     string
	TechMessage     string
	Recoverable     bool
	SuggestedAction string
	Cause           error
}

// New builds an ErrorContext for an operation with a user-facing message.
func New(category Category, severity Severity, operation, userMessage string) *ErrorContext {
	return &ErrorContext{
		Category:    category,
		Severity:    severity,
		Operation:   operation,
		UserMessage: userMessage,
	}
}

func (e *ErrorContext) Error() string {
	if e.TechMessage != "" {
		return fmt.Sprintf("%s: %s", e.Operation, e.TechMessage)
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.UserMessage)
}

func (e *ErrorContext) Unwrap() error {
	return e.Cause
}

// WithTech attaches a technical message for logs.
func (e *ErrorContext) WithTech(format string, args ...any) *ErrorContext {
	e.TechMessage = fmt.Sprintf(format, args...)
	return e
}

// WithCause wraps the underlying error.
func (e *ErrorContext) WithCause(err error) *ErrorContext {
	e.Cause = err
	if e.TechMessage == "" && err != nil {
		e.TechMessage = err.Error()
	}
	return e
}

// WithSuggestion sets the recommended next step for the user.
func (e *ErrorContext) WithSuggestion(action string) *ErrorContext {
	e.SuggestedAction = action
	return e
}

// AsRecoverable marks the error as retryable by the user.
func (e *ErrorContext) AsRecoverable() *ErrorContext {
	e.Recoverable = true
	return e
}

// FormatForUser renders the short user-facing form: the message plus the
// suggested action when one is set.
func (e *ErrorContext) FormatForUser() string {
	if e.SuggestedAction != "" {
		return e.UserMessage + " " + e.SuggestedAction
	}
	return e.UserMessage
}

// Classify maps an arbitrary error into the taxonomy. It is the default
// classification used when a component has no more specific knowledge.
func Classify(err error, operation string) *ErrorContext {
	if err == nil {
		return nil
	}

	var ec *ErrorContext
	if errors.As(err, &ec) {
		return ec
	}

	switch {
	case errors.Is(err, context.Canceled):
		return New(CategoryUserInput, SeverityLow, operation, "Operation cancelled.").
			AsRecoverable().
			WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return New(CategoryNetwork, SeverityMedium, operation, "The operation timed out.").
			AsRecoverable().
			WithSuggestion("Try again.").
			WithCause(err)
	case errors.Is(err, os.ErrPermission):
		return New(CategoryPermission, SeverityMedium, operation, "Permission denied.").
			WithSuggestion("Check file permissions or run with appropriate privileges.").
			WithCause(err)
	case errors.Is(err, fs.ErrNotExist):
		return New(CategoryFileSystem, SeverityLow, operation, "File or directory not found.").
			AsRecoverable().
			WithCause(err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		e := New(CategoryNetwork, SeverityMedium, operation, "A network error occurred.").
			WithSuggestion("Check your connection and try again.").
			WithCause(err)
		if netErr.Timeout() {
			e.Recoverable = true
		}
		return e
	}

	return New(CategoryUnknown, SeverityMedium, operation, "Something went wrong.").
		WithCause(err)
}
