package protocol

import (
	"context"
	"errors"
)

// ErrModelNotFound signals the requested model identifier is unknown to the
// provider. It maps to a distinct alert type.
var ErrModelNotFound = errors.New("completion model not found")

// FinishReason reports why the provider stopped generating.
type FinishReason string

const (
	FinishReasonStop      FinishReason = "stop"
	FinishReasonTruncated FinishReason = "truncated" // token ceiling hit
)

// Message is one chat message in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage is the provider-reported token accounting.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// CompletionRequest is a single call to the external completion provider.
type CompletionRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
	WebSearch bool      `json:"web_search,omitempty"`
}

// CompletionResponse carries the provider output. Truncation is not an
// error; it is reported through FinishReason.
type CompletionResponse struct {
	Text         string       `json:"text"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        TokenUsage   `json:"usage"`
}

// CompletionProvider is the external language-model collaborator.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}
