// Package chat defines the Provider interface for LLM chat completion
// backends.
//
// A chat provider wraps a remote model API (e.g., OpenAI or any backend
// supported by any-llm-go) and exposes a single-shot completion call that
// returns the model's raw reply body as a string. The tutoring pipeline
// requests JSON-object-shaped replies and parses them defensively at the
// caller; providers never interpret the payload themselves.
//
// Implementations must be safe for concurrent use.
package chat

import (
	"context"
	"errors"
	"fmt"
)

// Message is a single entry in the conversation history sent to the model.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message. For assistant messages
	// replayed from history this is the raw JSON string the model previously
	// produced, preserving continuity of its structured output.
	Content string
}

// Request carries everything a chat backend needs to produce a reply.
type Request struct {
	// SystemPrompt is injected before the conversation history.
	SystemPrompt string

	// Messages is the ordered conversation history. The last message is
	// typically the new user turn.
	Messages []Message

	// Temperature controls sampling randomness.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// JSONObject requests a JSON-object-shaped reply from backends that
	// support a native response format. Backends without native support rely
	// on the system prompt's JSON mandate instead.
	JSONObject bool
}

// Provider is the abstraction over any chat completion backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly. The returned string is the raw reply body; callers
// own JSON parsing and its failure handling.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// StatusError wraps a backend failure together with its HTTP-equivalent
// status code so retry policies can distinguish client errors (4xx, never
// retried) from transient server or network failures.
type StatusError struct {
	// StatusCode is the HTTP status returned by the backend, or 0 for
	// network-level failures with no response.
	StatusCode int

	// Err is the underlying provider error.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("chat provider: %v", e.Err)
	}
	return fmt.Sprintf("chat provider: status %d: %v", e.StatusCode, e.Err)
}

// Unwrap returns the wrapped error.
func (e *StatusError) Unwrap() error { return e.Err }

// IsClientError reports whether err carries a 4xx-equivalent status code.
// Client errors indicate a malformed request and must not be retried.
func IsClientError(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode >= 400 && se.StatusCode < 500
	}
	return false
}
