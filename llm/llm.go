// Package llm wraps the external chat-completion API.
package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoCompletion is returned when the API answers 2xx but the body carries
// no usable completion choice. Callers decide whether that is fatal.
var ErrNoCompletion = errors.New("completion returned no choices")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}
