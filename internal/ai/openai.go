package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAI is a Client backed by any OpenAI-compatible chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI creates an OpenAI client. baseURL may be empty.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, prompt, snippet string) (string, error) {
	msgs := []openai.ChatCompletionMessage{}
	if snippet != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: "Context:\n" + snippet})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	return o.create(ctx, openai.ChatCompletionRequest{Model: o.model, Messages: msgs})
}

func (o *OpenAI) CompleteJSON(ctx context.Context, system, user string, hint map[string]any) (string, error) {
	shape, err := json.Marshal(hint)
	if err != nil {
		return "", fmt.Errorf("encoding schema hint: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user + "\n\nJSON shape:\n" + string(shape)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}
	return o.create(ctx, req)
}

func (o *OpenAI) create(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices: %w", ErrUnavailable)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
