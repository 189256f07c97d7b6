package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini is a Client backed by Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini client.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Complete(ctx context.Context, prompt, snippet string) (string, error) {
	text := prompt
	if snippet != "" {
		text = "Context:\n" + snippet + "\n\nUser prompt:\n" + prompt
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), nil)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (g *Gemini) CompleteJSON(ctx context.Context, system, user string, hint map[string]any) (string, error) {
	shape, err := json.Marshal(hint)
	if err != nil {
		return "", fmt.Errorf("encoding schema hint: %w", err)
	}

	prompt := strings.TrimSpace(user) + "\n\nJSON shape:\n" + string(shape) +
		"\n\nReturn ONLY valid JSON. No markdown. No extra keys."
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(strings.TrimSpace(system), genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate json: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
