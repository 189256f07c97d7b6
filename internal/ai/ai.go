// Package ai defines the contract with the external generative-AI
// collaborator and the clients that fulfil it.
//
// Callers never talk to a Client directly. They go through a Guard, which
// bounds every call in time and rate and turns every failure into a
// recognizable stub value, so nothing upstream has to handle an error.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnavailable is returned by clients that cannot serve a request.
var ErrUnavailable = errors.New("ai collaborator unavailable")

// stubMarker appears in every stub reply, whatever produced it.
const stubMarker = "stubbed ai"

// rawLimit bounds the raw text kept from an unparsable structured reply.
const rawLimit = 2000

// Client is the capability the pipeline depends on.
type Client interface {
	// Complete returns a plain-text completion. snippet is optional context.
	Complete(ctx context.Context, prompt, snippet string) (string, error)
	// CompleteJSON returns the raw text of a completion that should be a
	// JSON object shaped like hint.
	CompleteJSON(ctx context.Context, system, user string, hint map[string]any) (string, error)
	// Name identifies the backend in logs and metrics.
	Name() string
}

// IsStub reports whether text is a stub reply rather than a real answer.
func IsStub(text string) bool {
	return strings.Contains(strings.ToLower(text), stubMarker)
}

// StubReply is the plain-text reply used whenever no real answer exists.
func StubReply(prompt, snippet string) string {
	return stubReply("stubbed AI", prompt, snippet)
}

func stubReply(tag, prompt, snippet string) string {
	return fmt.Sprintf("(%s) You said: %s. Context: %s", tag, Truncate(prompt, 200), Truncate(snippet, 120))
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Structured is the outcome of a structured completion. Exactly one of the
// following holds: Stubbed (Fields is the hint), ParseError (Fields is the
// hint, Raw holds the reply), or neither (Fields is the decoded reply).
type Structured struct {
	Fields     map[string]any
	Stubbed    bool
	ParseError bool
	Raw        string
}

// Usable reports whether the reply came from the collaborator and parsed.
func (s Structured) Usable() bool {
	return !s.Stubbed && !s.ParseError
}

// String returns the string field key, or def when absent or empty.
func (s Structured) String(key, def string) string {
	switch v := s.Fields[key].(type) {
	case nil:
	case string:
		if v != "" {
			return v
		}
	default:
		return fmt.Sprint(v)
	}
	return def
}

// Strings returns the string list field key.
func (s Structured) Strings(key string) []string {
	out := []string{}
	items, _ := s.Fields[key].([]any)
	for _, it := range items {
		if str, ok := it.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// Decode re-encodes Fields into v.
func (s Structured) Decode(v any) error {
	raw, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("encoding fields: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decoding fields: %w", err)
	}
	return nil
}

// MarshalJSON flattens the flags into the field map, the way callers of
// the HTTP API expect to see them.
func (s Structured) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+3)
	for k, v := range s.Fields {
		out[k] = v
	}
	if s.Stubbed {
		out["stubbed"] = true
	}
	if s.ParseError {
		out["parse_error"] = true
		out["raw"] = s.Raw
	}
	return json.Marshal(out)
}

// stubbed builds the structured value returned when the collaborator is
// unavailable.
func stubbed(hint map[string]any) Structured {
	return Structured{Fields: copyHint(hint), Stubbed: true}
}

func copyHint(hint map[string]any) map[string]any {
	out := make(map[string]any, len(hint))
	for k, v := range hint {
		out[k] = v
	}
	return out
}
