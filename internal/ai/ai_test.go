package ai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scripted struct {
	text    string
	jsonRaw string
	err     error
	block   chan struct{}
}

func (s *scripted) Name() string { return "scripted" }

func (s *scripted) Complete(ctx context.Context, _, _ string) (string, error) {
	if s.block != nil {
		<-s.block
	}
	return s.text, s.err
}

func (s *scripted) CompleteJSON(ctx context.Context, _, _ string, _ map[string]any) (string, error) {
	if s.block != nil {
		<-s.block
	}
	return s.jsonRaw, s.err
}

type observation struct {
	op       string
	fallback bool
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []observation
}

func (r *recordingObserver) ObserveAICall(op, _ string, _ time.Duration, fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, observation{op, fallback})
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "hé"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
	}
}

func TestStubReply(t *testing.T) {
	reply := StubReply("what is this", strings.Repeat("x", 500))
	assert.True(t, IsStub(reply))
	assert.True(t, strings.HasPrefix(reply, "(stubbed AI) You said: what is this. Context: "))
	assert.Less(t, len(reply), 200)
	assert.False(t, IsStub("python"))
}

func TestStubCompleteJSON(t *testing.T) {
	hint := map[string]any{"algorithm": "", "optimizations": []any{}}
	raw, err := NewStub().CompleteJSON(context.Background(), "sys", "user", hint)
	require.NoError(t, err)

	got := parseStructured(raw, hint)
	assert.True(t, got.Stubbed)
	assert.False(t, got.ParseError)
	assert.Equal(t, hint, got.Fields)
}

func TestParseStructured(t *testing.T) {
	hint := map[string]any{"algorithm": "unknown"}

	tests := []struct {
		name       string
		raw        string
		parseError bool
		algorithm  string
	}{
		{"plain", `{"algorithm":"binary search"}`, false, "binary search"},
		{"fenced", "```json\n{\"algorithm\":\"merge sort\"}\n```", false, "merge sort"},
		{"prose around", `Sure! {"algorithm":"dfs"} hope this helps`, false, "dfs"},
		{"garbage", "not json at all", true, "unknown"},
		{"array", `[1,2,3]`, true, "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseStructured(tt.raw, hint)
			assert.Equal(t, tt.parseError, got.ParseError)
			assert.Equal(t, tt.algorithm, got.String("algorithm", ""))
			if tt.parseError {
				assert.Equal(t, tt.raw, got.Raw)
			}
		})
	}
}

func TestParseStructuredRawIsBounded(t *testing.T) {
	got := parseStructured(strings.Repeat("z", 5000), nil)
	assert.True(t, got.ParseError)
	assert.Len(t, got.Raw, rawLimit)
}

func TestStructuredAccessors(t *testing.T) {
	s := Structured{Fields: map[string]any{
		"name":  "quick sort",
		"count": 3.0,
		"empty": "",
		"list":  []any{"a", 1.0, "b"},
	}}
	assert.Equal(t, "quick sort", s.String("name", "x"))
	assert.Equal(t, "3", s.String("count", "x"))
	assert.Equal(t, "x", s.String("empty", "x"))
	assert.Equal(t, "x", s.String("missing", "x"))
	assert.Equal(t, []string{"a", "b"}, s.Strings("list"))
	assert.Empty(t, s.Strings("missing"))

	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, s.Decode(&v))
	assert.Equal(t, "quick sort", v.Name)
}

func TestStructuredMarshalJSON(t *testing.T) {
	s := Structured{Fields: map[string]any{"a": "b"}, ParseError: true, Raw: "oops"}
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, map[string]any{"a": "b", "parse_error": true, "raw": "oops"}, out)
}

func TestGuardComplete(t *testing.T) {
	obs := &recordingObserver{}
	g := NewGuard(&scripted{text: "  python  "}, WithObserver(obs))

	assert.Equal(t, "  python  ", g.Complete(context.Background(), "detect", "p", "s"))
	require.Len(t, obs.seen, 1)
	assert.Equal(t, observation{"detect", false}, obs.seen[0])
}

func TestGuardCompleteFallbacks(t *testing.T) {
	tests := []struct {
		name   string
		client *scripted
	}{
		{"error", &scripted{err: errors.New("boom")}},
		{"empty", &scripted{text: "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			g := NewGuard(tt.client, WithObserver(obs))

			reply := g.Complete(context.Background(), "summary", "prompt", "code")
			assert.True(t, IsStub(reply))
			assert.Contains(t, reply, "stubbed AI due to scripted error")
			require.Len(t, obs.seen, 1)
			assert.True(t, obs.seen[0].fallback)
		})
	}
}

func TestGuardTimeoutWithUncooperativeClient(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	g := NewGuard(&scripted{text: "late", block: release}, WithTimeout(50*time.Millisecond))

	start := time.Now()
	reply := g.Complete(context.Background(), "correct", "fix it", "")
	assert.True(t, IsStub(reply))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestGuardIgnoresCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGuard(&scripted{text: "java"})
	assert.Equal(t, "java", g.Complete(ctx, "detect", "p", ""))
}

func TestGuardStructured(t *testing.T) {
	hint := map[string]any{"algorithm": "unknown"}

	t.Run("ok", func(t *testing.T) {
		g := NewGuard(&scripted{jsonRaw: `{"algorithm":"bfs"}`})
		got := g.Structured(context.Background(), "refine", "sys", "user", hint)
		assert.True(t, got.Usable())
		assert.Equal(t, "bfs", got.String("algorithm", ""))
	})

	t.Run("error", func(t *testing.T) {
		g := NewGuard(&scripted{err: errors.New("quota")})
		got := g.Structured(context.Background(), "refine", "sys", "user", hint)
		assert.True(t, got.Stubbed)
		assert.Equal(t, hint, got.Fields)
	})

	t.Run("malformed", func(t *testing.T) {
		obs := &recordingObserver{}
		g := NewGuard(&scripted{jsonRaw: "definitely not json"}, WithObserver(obs))
		got := g.Structured(context.Background(), "refine", "sys", "user", hint)
		assert.True(t, got.ParseError)
		assert.Equal(t, "definitely not json", got.Raw)
		require.Len(t, obs.seen, 1)
		assert.True(t, obs.seen[0].fallback)
	})

	t.Run("stub backend", func(t *testing.T) {
		g := NewGuard(nil)
		assert.Equal(t, "stub", g.Backend())
		got := g.Structured(context.Background(), "refine", "sys", "user", hint)
		assert.True(t, got.Stubbed)
		assert.Equal(t, hint, got.Fields)
	})
}

func TestGuardMutatingCallerHintIsSafe(t *testing.T) {
	hint := map[string]any{"k": "v"}
	got := NewGuard(nil).Structured(context.Background(), "op", "", "", hint)
	got.Fields["k"] = "changed"
	assert.Equal(t, "v", hint["k"])
}
