// Package aitest provides a scriptable ai.Client for tests.
package aitest

import (
	"context"
	"strings"
	"sync"

	"github.com/sprite-ai/codeq/internal/ai"
)

// Call records one request made to a Fake.
type Call struct {
	JSON    bool
	Prompt  string
	Snippet string
	System  string
}

// Fake is an ai.Client whose replies are supplied by functions. A nil
// function makes the corresponding method fail with ai.ErrUnavailable.
type Fake struct {
	CompleteFunc func(ctx context.Context, prompt, snippet string) (string, error)
	JSONFunc     func(ctx context.Context, system, user string, hint map[string]any) (string, error)

	mu    sync.Mutex
	calls []Call
}

var _ ai.Client = (*Fake)(nil)

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Complete(ctx context.Context, prompt, snippet string) (string, error) {
	f.record(Call{Prompt: prompt, Snippet: snippet})
	if f.CompleteFunc == nil {
		return "", ai.ErrUnavailable
	}
	return f.CompleteFunc(ctx, prompt, snippet)
}

func (f *Fake) CompleteJSON(ctx context.Context, system, user string, hint map[string]any) (string, error) {
	f.record(Call{JSON: true, Prompt: user, System: system})
	if f.JSONFunc == nil {
		return "", ai.ErrUnavailable
	}
	return f.JSONFunc(ctx, system, user, hint)
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns a copy of every request seen so far.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CountPrompts counts requests whose prompt contains substr.
func (f *Fake) CountPrompts(substr string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.Prompt, substr) {
			n++
		}
	}
	return n
}

// Text always answers text.
func Text(text string) func(context.Context, string, string) (string, error) {
	return func(context.Context, string, string) (string, error) { return text, nil }
}

// Route answers by the first key found in the prompt, or def.
func Route(routes map[string]string, def string) func(context.Context, string, string) (string, error) {
	return func(_ context.Context, prompt, _ string) (string, error) {
		for key, reply := range routes {
			if strings.Contains(prompt, key) {
				return reply, nil
			}
		}
		return def, nil
	}
}

// JSON always answers raw.
func JSON(raw string) func(context.Context, string, string, map[string]any) (string, error) {
	return func(context.Context, string, string, map[string]any) (string, error) { return raw, nil }
}

// Hang blocks until the request context ends.
func Hang(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
