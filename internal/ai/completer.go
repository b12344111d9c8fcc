package ai

import (
	"context"
	"errors"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior turn sent along with a request.
type Message struct {
	Role    Role
	Content string
}

// Request is a provider-agnostic completion request.
type Request struct {
	// System is the system instruction. It may be empty.
	System string
	// History holds earlier turns, oldest first.
	History []Message
	// Prompt is the final user message.
	Prompt string

	Temperature float32
	MaxTokens   int
}

// Completer returns the textual answer of a language model for the request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

var (
	ErrEmptyPrompt   = errors.New("prompt must not be empty")
	ErrEmptyResponse = errors.New("model returned empty response")
)
