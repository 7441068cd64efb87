package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService captures the request and returns a canned completion.
type mockChatService struct {
	lastParams openai.ChatCompletionNewParams
	response   *openai.ChatCompletion
	err        error
}

func (m *mockChatService) New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.lastParams = body
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func completionWith(text string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: text}},
		},
	}
}

func TestGenerateWithMessages(t *testing.T) {
	mock := &mockChatService{response: completionWith("Happy to walk you through it.")}
	client := &Client{chat: mock, model: DefaultModel, temperature: 0.7, maxTokens: 512}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage("You are a seller."),
		openai.UserMessage("tell me about the warranty"),
	}
	got, err := client.GenerateWithMessages(context.Background(), messages)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Happy to walk you through it." {
		t.Errorf("unexpected completion: %q", got)
	}
	if mock.lastParams.Model != DefaultModel {
		t.Errorf("unexpected model: %v", mock.lastParams.Model)
	}
	if len(mock.lastParams.Messages) != 2 {
		t.Errorf("expected 2 messages forwarded, got %d", len(mock.lastParams.Messages))
	}
	if mock.lastParams.Temperature.Value != 0.7 {
		t.Errorf("unexpected temperature: %v", mock.lastParams.Temperature.Value)
	}
	if mock.lastParams.MaxTokens.Value != 512 {
		t.Errorf("unexpected max tokens: %v", mock.lastParams.MaxTokens.Value)
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	mock := &mockChatService{err: errors.New("rate limited")}
	client := &Client{chat: mock, model: DefaultModel}

	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hello"),
	})
	if err == nil {
		t.Fatal("expected error from failing service")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	mock := &mockChatService{response: &openai.ChatCompletion{}}
	client := &Client{chat: mock, model: DefaultModel}

	_, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage("hello"),
	})
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Fatalf("expected ErrNoChoicesReturned, got %v", err)
	}
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Fatal("expected error without an API key")
	}
}

func TestNewClient_Options(t *testing.T) {
	client, err := NewClient(
		WithAPIKey("test-key"),
		WithModel("gpt-4o"),
		WithTemperature(0.2),
		WithMaxTokens(128),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.model != openai.ChatModel("gpt-4o") {
		t.Errorf("unexpected model: %v", client.model)
	}
	if client.temperature != 0.2 {
		t.Errorf("unexpected temperature: %v", client.temperature)
	}
	if client.maxTokens != 128 {
		t.Errorf("unexpected max tokens: %v", client.maxTokens)
	}
}
