// Package completion implements the external completion provider over an
// OpenAI-style chat completions HTTP API.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cascadehq/cascade/pkg/protocol"
)

const defaultTimeout = 120 * time.Second

// Client calls a chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model         string         `json:"model"`
	Messages      []chatMessage  `json:"messages"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	WebSearchOpts map[string]any `json:"web_search_options,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete issues one chat completion. A 404 or model_not_found error code
// maps to protocol.ErrModelNotFound; a "length" finish reason maps to
// FinishReasonTruncated rather than an error.
func (c *Client) Complete(ctx context.Context, req protocol.CompletionRequest) (protocol.CompletionResponse, error) {
	payload := chatRequest{
		Model:     req.Model,
		MaxTokens: req.MaxTokens,
	}

	for _, msg := range req.Messages {
		payload.Messages = append(payload.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	if req.WebSearch {
		payload.WebSearchOpts = map[string]any{}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return protocol.CompletionResponse{}, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return protocol.CompletionResponse{}, fmt.Errorf("failed to build completion request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return protocol.CompletionResponse{}, fmt.Errorf("completion request failed: %w", err)
	}

	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return protocol.CompletionResponse{}, fmt.Errorf("failed to read completion response: %w", err)
	}

	if httpResp.StatusCode == http.StatusNotFound {
		return protocol.CompletionResponse{}, protocol.ErrModelNotFound
	}

	var parsed chatResponse

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return protocol.CompletionResponse{}, fmt.Errorf("failed to parse completion response (status %d): %w", httpResp.StatusCode, err)
	}

	if parsed.Error != nil {
		if parsed.Error.Code == "model_not_found" {
			return protocol.CompletionResponse{}, protocol.ErrModelNotFound
		}

		return protocol.CompletionResponse{}, fmt.Errorf("completion provider error: %s", parsed.Error.Message)
	}

	if httpResp.StatusCode != http.StatusOK {
		return protocol.CompletionResponse{}, fmt.Errorf("completion provider returned status %d", httpResp.StatusCode)
	}

	if len(parsed.Choices) == 0 {
		return protocol.CompletionResponse{}, fmt.Errorf("completion provider returned no choices")
	}

	choice := parsed.Choices[0]

	response := protocol.CompletionResponse{
		Text:         choice.Message.Content,
		FinishReason: protocol.FinishReasonStop,
		Usage: protocol.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
		},
	}

	if choice.FinishReason == "length" {
		response.FinishReason = protocol.FinishReasonTruncated
	}

	return response, nil
}
