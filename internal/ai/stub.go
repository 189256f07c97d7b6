package ai

import (
	"context"
	"encoding/json"
)

// Stub is the deterministic collaborator used when no backend is
// configured. It never fails.
type Stub struct{}

// NewStub returns a stub client.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Complete(_ context.Context, prompt, snippet string) (string, error) {
	return StubReply(prompt, snippet), nil
}

func (s *Stub) CompleteJSON(_ context.Context, _, _ string, hint map[string]any) (string, error) {
	out := copyHint(hint)
	out[stubKey] = true
	out["note"] = "No AI API key configured; returning stubbed JSON."
	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
