// Package assist holds the collaborator-only operations: explaining code,
// suggesting improvements, proposing a fix and answering questions. None
// of them fail; an unavailable collaborator yields the schema defaults
// flagged as stubbed.
package assist

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sprite-ai/codeq/internal/ai"
	"github.com/sprite-ai/codeq/internal/diff"
	"github.com/sprite-ai/codeq/internal/model"
)

const defaultCodeLimit = 6000

// Flags reports where a result came from.
type Flags struct {
	Stubbed    bool   `json:"stubbed,omitempty"`
	ParseError bool   `json:"parse_error,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

type Explanation struct {
	Overview       string   `json:"overview"`
	KeyPoints      []string `json:"key_points"`
	PotentialRisks []string `json:"potential_risks"`
	Flags
}

type Improvement struct {
	Title string `json:"title"`
	Why   string `json:"why"`
	How   string `json:"how"`
	Risk  string `json:"risk"`
}

type Suggestions struct {
	Improvements []Improvement `json:"improvements"`
	Flags
}

type Change struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Fix struct {
	FixedCode   string         `json:"fixed_code"`
	DiffSummary []string       `json:"diff_summary"`
	Changes     []Change       `json:"changes"`
	Diff        model.LineDiff `json:"diff"`
	Flags
}

type Answer struct {
	Answer     string   `json:"answer"`
	NextSteps  []string `json:"next_steps"`
	References []string `json:"references"`
	Flags
}

// Message is one turn of a chat.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content"`
}

// Assistant runs the operations through a guard.
type Assistant struct {
	guard     *ai.Guard
	codeLimit int
}

// New returns an Assistant. codeLimit bounds the code sent per request;
// zero means the default.
func New(guard *ai.Guard, codeLimit int) *Assistant {
	if guard == nil {
		guard = ai.NewGuard(nil)
	}
	if codeLimit <= 0 {
		codeLimit = defaultCodeLimit
	}
	return &Assistant{guard: guard, codeLimit: codeLimit}
}

func (a *Assistant) Explain(ctx context.Context, code string) Explanation {
	hint := map[string]any{
		"overview":        "",
		"key_points":      []any{},
		"potential_risks": []any{},
	}
	out := a.guard.Structured(ctx, "explain",
		"You explain source code clearly for a hackathon team.",
		"Explain what this code does.\n"+
			"Return JSON with: overview (string), key_points (string[]), potential_risks (string[]).\n\n"+
			ai.Truncate(code, a.codeLimit),
		hint)

	var e Explanation
	e.Flags = decode(out, &e)
	e.KeyPoints = nonNil(e.KeyPoints)
	e.PotentialRisks = nonNil(e.PotentialRisks)
	return e
}

func (a *Assistant) Suggest(ctx context.Context, code string) Suggestions {
	hint := map[string]any{
		"improvements": []any{
			map[string]any{"title": "", "why": "", "how": "", "risk": "low"},
		},
	}
	out := a.guard.Structured(ctx, "suggest",
		"You suggest practical code improvements for a 16-hour hackathon.",
		"Suggest improvements for this code. Keep suggestions actionable and minimal.\n"+
			"Return JSON with: improvements: [{title, why, how, risk(low|medium|high)}].\n\n"+
			ai.Truncate(code, a.codeLimit),
		hint)

	var s Suggestions
	s.Flags = decode(out, &s)
	if s.Improvements == nil {
		s.Improvements = []Improvement{}
	}
	for i := range s.Improvements {
		s.Improvements[i].Risk = normalizeRisk(s.Improvements[i].Risk)
	}
	return s
}

// Autofix asks for a minimal fix. Without a usable reply the fixed code is
// the original.
func (a *Assistant) Autofix(ctx context.Context, code string) Fix {
	hint := map[string]any{
		"fixed_code":   code,
		"diff_summary": []any{},
		"changes":      []any{map[string]any{"title": "", "description": ""}},
	}
	out := a.guard.Structured(ctx, "autofix",
		"You safely apply minimal fixes to improve code quality. "+
			"Optimize the code to reduce time complexity where reasonable and "+
			"improve maintainability without changing external behaviour.",
		"Autofix this code with minimal changes. Keep behavior the same.\n"+
			"Optimize the code to reduce time complexity if possible and improve maintainability.\n"+
			"Return ONLY valid JSON. No markdown.\n"+
			"Return JSON with: fixed_code (string), diff_summary (string[]), "+
			"changes: [{title, description}].\n\n"+
			ai.Truncate(code, a.codeLimit),
		hint)

	var f Fix
	f.Flags = decode(out, &f)
	if strings.TrimSpace(f.FixedCode) == "" {
		f.FixedCode = code
	}
	f.DiffSummary = nonNil(f.DiffSummary)
	if f.Changes == nil {
		f.Changes = []Change{}
	}
	f.Diff = diff.Lines(code, f.FixedCode)
	return f
}

func (a *Assistant) AskAboutCode(ctx context.Context, code, question string) Answer {
	hint := map[string]any{
		"answer":     "",
		"next_steps": []any{},
		"references": []any{},
	}
	out := a.guard.Structured(ctx, "chat_with_code",
		"You answer developer questions grounded in the provided code.",
		"Given the code and question, respond.\n"+
			"Return JSON with: answer (string), next_steps (string[]), references (string[]).\n\n"+
			"QUESTION:\n"+question+"\n\nCODE:\n"+ai.Truncate(code, a.codeLimit),
		hint)

	var ans Answer
	ans.Flags = decode(out, &ans)
	ans.NextSteps = nonNil(ans.NextSteps)
	ans.References = nonNil(ans.References)
	return ans
}

// Chat answers the last user message, with snippet as optional context,
// and returns the conversation extended by the reply.
func (a *Assistant) Chat(ctx context.Context, messages []Message, snippet string) []Message {
	prompt := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			prompt = messages[i].Content
			break
		}
	}

	reply := a.guard.Complete(ctx, "chat", prompt, ai.Truncate(snippet, a.codeLimit))

	out := make([]Message, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, Message{Role: "assistant", Content: reply})
}

// decode fills v from out. A reply whose shape does not match v counts as
// malformed.
func decode(out ai.Structured, v any) Flags {
	flags := Flags{Stubbed: out.Stubbed, ParseError: out.ParseError, Raw: out.Raw}
	if err := out.Decode(v); err != nil {
		raw, _ := json.Marshal(out.Fields)
		return Flags{ParseError: true, Raw: ai.Truncate(string(raw), 2000)}
	}
	return flags
}

func normalizeRisk(r string) string {
	switch r = strings.ToLower(strings.TrimSpace(r)); r {
	case "low", "medium", "high":
		return r
	default:
		return "medium"
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
