// Package generator produces candidate replies for pending messages by
// driving an OpenAI-compatible streaming chat backend.
package generator

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// Client wraps the backend chat API. The backend is any OpenAI-compatible
// endpoint; a local Ollama instance exposes one at /v1.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates a backend client for the given base URL and model
func NewClient(baseURL, model string) *Client {
	cfg := openai.DefaultConfig("local")
	cfg.BaseURL = baseURL
	return &Client{
		api:   openai.NewClientWithConfig(cfg),
		model: model,
	}
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.model
}

// Reachable probes the backend with a cheap request
func (c *Client) Reachable(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("backend probe failed: %w", err)
	}
	return nil
}

// StreamChat opens a streaming chat completion for the given messages
func (c *Client) StreamChat(ctx context.Context, messages []openai.ChatCompletionMessage) (*openai.ChatCompletionStream, error) {
	return c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
}
