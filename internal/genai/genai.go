// Package genai provides the chat-completion client used to generate
// seller replies via the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrNoChoicesReturned indicates the service answered without any
// completion choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// DefaultModel is used when no model is configured.
var DefaultModel = openai.ChatModelGPT4oMini

// chatService defines the minimal interface for chat completions, so tests
// can substitute a mock.
type chatService interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ClientInterface is what callers depend on; the orchestrator accepts any
// implementation.
type ClientInterface interface {
	GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// Client wraps the OpenAI chat-completion service.
type Client struct {
	chat        chatService
	model       openai.ChatModel
	temperature float64
	maxTokens   int64
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int64
}

// WithAPIKey sets the API key explicitly instead of reading the
// environment.
func WithAPIKey(key string) Option {
	return func(o *clientOptions) { o.apiKey = key }
}

// WithModel overrides the default chat model.
func WithModel(model string) Option {
	return func(o *clientOptions) { o.model = model }
}

// WithTemperature sets the sampling temperature for all generations.
func WithTemperature(t float64) Option {
	return func(o *clientOptions) { o.temperature = t }
}

// WithMaxTokens caps the generated completion length.
func WithMaxTokens(n int64) Option {
	return func(o *clientOptions) { o.maxTokens = n }
}

// NewClient initializes a GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	cfg := clientOptions{temperature: 0.7, maxTokens: 512}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}

	model := DefaultModel
	if cfg.model != "" {
		model = openai.ChatModel(cfg.model)
	}

	cli := openai.NewClient(option.WithAPIKey(cfg.apiKey))
	slog.Debug("genai.NewClient: client initialized", "model", model, "temperature", cfg.temperature, "maxTokens", cfg.maxTokens)
	return &Client{
		chat:        &cli.Chat.Completions,
		model:       model,
		temperature: cfg.temperature,
		maxTokens:   cfg.maxTokens,
	}, nil
}

// GenerateWithMessages generates a completion for an ordered list of
// role-tagged messages. Cancellation and timeouts are owned by the caller's
// context.
func (c *Client) GenerateWithMessages(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(c.maxTokens),
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("Client.GenerateWithMessages: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("Client.GenerateWithMessages: empty choices in response")
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}
