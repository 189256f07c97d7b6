package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sprite-ai/codeq/internal/ai"
	"github.com/sprite-ai/codeq/internal/ai/aitest"
	"github.com/sprite-ai/codeq/internal/analysis"
	"github.com/sprite-ai/codeq/internal/metrics"
	"github.com/sprite-ai/codeq/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// Started by an init in a transitive dependency of the AI clients.
		goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
	)
}

const (
	linearPy = `def total(xs):
    s = 0
    for x in xs:
        s += x
    return s
`
	quadraticPy = `def pairs(xs):
    out = 0
    for x in xs:
        for y in xs:
            out += x * y
    return out
`
	recursivePy = `def walk(items, i):
    for x in items:
        print(x)
    if i == 0:
        return 0
    return walk(items, i - 1)
`
	binarySearchPy = `def search(arr, target):
    low, high = 0, len(arr) - 1
    while low <= high:
        mid = (low + high) // 2
        if arr[mid] == target:
            return mid
        elif arr[mid] < target:
            low = mid + 1
        else:
            high = mid - 1
    return -1
`
	brokenPy = "def broken(:\n    pass\n"
)

const (
	detectPrompt  = "Detect the programming language"
	correctPrompt = "Fix syntax and runtime errors"
	summaryIntro  = "Summarise the main issues"
)

func newAnalyzer(t *testing.T, client ai.Client, opts ...Option) *Analyzer {
	t.Helper()
	guard := ai.NewGuard(client,
		ai.WithTimeout(time.Second),
		ai.WithRateLimit(1_000_000, 1000),
	)
	return New(guard, opts...)
}

func stubbing() *aitest.Fake {
	return &aitest.Fake{
		CompleteFunc: func(_ context.Context, prompt, snippet string) (string, error) {
			return ai.StubReply(prompt, snippet), nil
		},
		JSONFunc: func(ctx context.Context, system, user string, hint map[string]any) (string, error) {
			return ai.NewStub().CompleteJSON(ctx, system, user, hint)
		},
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	for _, code := range []string{"", "   \n\t"} {
		fake := &aitest.Fake{}
		res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: code})

		assert.Equal(t, model.ErrEmptyInput, res.Error)
		assert.Equal(t, "Empty code", res.Message)
		assert.Equal(t, model.BigONone, res.Complexity.Time)
		assert.Zero(t, res.Metrics.CyclomaticComplexity)
		assert.Empty(t, res.Findings)
		assert.Empty(t, fake.Calls(), "no collaborator call for empty input")
	}
}

func TestAnalyzeComplexityScenarios(t *testing.T) {
	tests := []struct {
		name  string
		lang  string
		code  string
		time  model.BigO
		space model.BigO
	}{
		{"single self call with one loop", "python", recursivePy, model.BigOLinear, model.BigOLinear},
		{"binary search", "python", binarySearchPy, model.BigOLog, model.BigOConstant},
		{"nested loops", "python", quadraticPy, model.BigOQuadratic, model.BigOConstant},
		{"single loop", "python", linearPy, model.BigOLinear, model.BigOConstant},
		{"text path binary search", "java", "int lo = 0;\nwhile (low <= high) {\n  int mid = (low + high) / 2;\n}\n", model.BigOLog, model.BigOConstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newAnalyzer(t, stubbing()).Analyze(context.Background(), model.Submission{Code: tt.code, Language: tt.lang})
			require.False(t, res.Failed(), res.Message)
			assert.Equal(t, tt.time, res.Complexity.Time)
			assert.Equal(t, tt.space, res.Complexity.Space)
		})
	}
}

func TestAnalyzeSecurityFinding(t *testing.T) {
	res := newAnalyzer(t, stubbing()).Analyze(context.Background(),
		model.Submission{Code: "const x = eval(input);\n", Language: "javascript"})

	require.False(t, res.Failed())
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0].Message, "eval(")
	assert.Equal(t, model.SeverityWarning, res.Findings[0].Severity)
	assert.Equal(t, 3, res.Risk.Score)
	assert.Equal(t, model.RiskMedium, res.Risk.Level)
}

func TestCorrectionReturnsOriginal(t *testing.T) {
	fake := &aitest.Fake{
		CompleteFunc: func(_ context.Context, prompt, _ string) (string, error) {
			if strings.Contains(prompt, correctPrompt) {
				return brokenPy, nil
			}
			return "", nil
		},
	}
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: brokenPy, Language: "python"})

	assert.Equal(t, model.ErrSyntax, res.Error)
	assert.False(t, res.WasCorrected)
	assert.Equal(t, analysis.Validate(model.LangPython, brokenPy).Error, res.Message)
	assert.Equal(t, model.RiskUnknown, res.Risk.Level)
	assert.Equal(t, 1, fake.CountPrompts(correctPrompt), "exactly one correction attempt")
	assert.Zero(t, fake.CountPrompts(summaryIntro), "no analysis of invalid code")
}

func TestCorrectionStubKeepsOriginal(t *testing.T) {
	fake := stubbing()
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: brokenPy, Language: "py"})

	assert.Equal(t, model.ErrSyntax, res.Error)
	assert.Equal(t, model.LangPython, res.Language)
	assert.Equal(t, brokenPy, res.Code)
}

func TestCorrectionSucceeds(t *testing.T) {
	fake := &aitest.Fake{
		CompleteFunc: aitest.Route(map[string]string{
			correctPrompt: "```python\ndef fixed():\n    pass\n```",
		}, ""),
	}
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: brokenPy, Language: "python"})

	require.False(t, res.Failed(), res.Message)
	assert.True(t, res.WasCorrected)
	assert.Equal(t, "def fixed():\n    pass", res.Code)
	assert.Equal(t, []string{"fixed"}, res.Structure.Functions)
}

func TestCorrectionStillInvalidUsesSecondMessage(t *testing.T) {
	second := "function f() {\n  return [1, 2;\n}\n"
	fake := &aitest.Fake{
		CompleteFunc: aitest.Route(map[string]string{correctPrompt: second}, ""),
	}
	// quotes unbalanced at first, brackets unbalanced after the fix
	res := newAnalyzer(t, fake).Analyze(context.Background(),
		model.Submission{Code: "let s = 'abc;\n", Language: "javascript"})

	assert.Equal(t, model.ErrSyntax, res.Error)
	assert.Equal(t, "Unbalanced brackets/braces", res.Message)
}

func TestEscalation(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		lang       model.Language
		confidence float64
	}{
		{"recognized", "Python", model.LangPython, 0.9},
		{"recognized with punctuation", "c++.", model.LangCPP, 0.9},
		{"unknown", "Brainfuck", model.LangGeneric, 0},
		{"stub", ai.StubReply("x", ""), model.LangGeneric, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &aitest.Fake{CompleteFunc: aitest.Route(map[string]string{detectPrompt: tt.reply}, "")}
			res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: "x = 1\n"})

			require.False(t, res.Failed(), res.Message)
			assert.Equal(t, tt.lang, res.Language)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
			assert.True(t, res.Escalated)
			assert.Equal(t, 1, fake.CountPrompts(detectPrompt))
		})
	}
}

func TestNoEscalationWhenConfident(t *testing.T) {
	fake := stubbing()
	code := "import os\n\ndef show(self):\n    print(self)\n"
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: code})

	require.False(t, res.Failed())
	assert.Equal(t, model.LangPython, res.Language)
	assert.GreaterOrEqual(t, res.Confidence, analysis.EscalationThreshold)
	assert.False(t, res.Escalated)
	assert.Zero(t, fake.CountPrompts(detectPrompt))
}

func TestNoEscalationWithOverride(t *testing.T) {
	fake := stubbing()
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: "x = 1\n", Language: "Python"})

	assert.Equal(t, model.LangPython, res.Language)
	assert.Equal(t, 1.0, res.Confidence)
	assert.Zero(t, fake.CountPrompts(detectPrompt))
}

func TestSelfHealAfterEscalation(t *testing.T) {
	code := "#include <stdio.h>\nint x = 1;\n"
	fake := &aitest.Fake{CompleteFunc: aitest.Route(map[string]string{detectPrompt: "python"}, "")}

	// #include alone scores cpp at 0.25, so the collaborator is asked and
	// its python answer is overruled by the marker.
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: code})
	require.False(t, res.Failed(), res.Message)
	assert.Equal(t, model.LangC, res.Language)

	res = newAnalyzer(t, stubbing()).Analyze(context.Background(), model.Submission{Code: code, Language: "python"})
	require.False(t, res.Failed(), res.Message)
	assert.Equal(t, model.LangC, res.Language)
}

func TestRefinement(t *testing.T) {
	long := strings.Repeat("e", 400)
	fake := &aitest.Fake{
		CompleteFunc: aitest.Text("Consider handling empty input."),
		JSONFunc: aitest.JSON(`{"algorithm":"Binary Search","time_complexity":"O(log n)",` +
			`"space_complexity":"O(1)","recommendation":"Use bisect.","explanation":"` + long + `"}`),
	}
	res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: linearPy, Language: "python"})

	require.NotNil(t, res.Refinement)
	assert.Equal(t, "Binary Search", res.Refinement.Algorithm)
	assert.Equal(t, "Use bisect.", res.Refinement.Recommendation)
	assert.Len(t, res.Refinement.Explanation, 300)
	assert.Equal(t, "O(log n)", res.TimeComplexity())
	assert.Equal(t, model.BigOLinear, res.Complexity.Time, "heuristic label is kept underneath")
	assert.Equal(t, "Consider handling empty input.", res.AISummary)

	calls := fake.Calls()
	var refineCall aitest.Call
	for _, c := range calls {
		if c.JSON {
			refineCall = c
		}
	}
	assert.Equal(t, refineSystem, refineCall.System)
	assert.Contains(t, refineCall.Prompt, `"time_complexity":"O(n)"`)
}

func TestRefinementDiscarded(t *testing.T) {
	for name, fn := range map[string]func(context.Context, string, string, map[string]any) (string, error){
		"malformed":   aitest.JSON("Sorry, I cannot do that."),
		"unavailable": nil,
	} {
		t.Run(name, func(t *testing.T) {
			fake := &aitest.Fake{CompleteFunc: aitest.Text("ok"), JSONFunc: fn}
			res := newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: linearPy, Language: "python"})
			assert.Nil(t, res.Refinement)
			assert.Equal(t, "O(n)", res.TimeComplexity())
		})
	}
}

func TestRefinementOnlyForPython(t *testing.T) {
	fake := stubbing()
	newAnalyzer(t, fake).Analyze(context.Background(), model.Submission{Code: "let x = 1;\n", Language: "javascript"})
	for _, c := range fake.Calls() {
		assert.False(t, c.JSON, "no structured call outside python")
	}
}

func TestFallbackSafety(t *testing.T) {
	res := newAnalyzer(t, stubbing()).Analyze(context.Background(), model.Submission{Code: quadraticPy})

	require.False(t, res.Failed())
	assert.NotEmpty(t, res.Language)
	assert.NotNil(t, res.Findings)
	assert.NotEmpty(t, res.SecuritySummary)
	assert.NotNil(t, res.Structure.Functions)
	assert.True(t, strings.HasPrefix(res.AISummary, "Estimated time complexity"), res.AISummary)
	assert.Nil(t, res.Refinement)
	assert.NotEqual(t, model.RiskUnknown, res.Risk.Level)
}

func TestHungCollaboratorTimesOut(t *testing.T) {
	fake := &aitest.Fake{CompleteFunc: aitest.Hang}
	guard := ai.NewGuard(fake, ai.WithTimeout(50*time.Millisecond), ai.WithRateLimit(1_000_000, 1000))

	start := time.Now()
	res := New(guard).Analyze(context.Background(), model.Submission{Code: "x = 1\n"})

	assert.Less(t, time.Since(start), 5*time.Second)
	require.False(t, res.Failed())
	assert.Equal(t, model.LangGeneric, res.Language)
	assert.NotEmpty(t, res.AISummary)
}

func TestCallerCancellationDoesNotAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fake := &aitest.Fake{CompleteFunc: aitest.Route(map[string]string{detectPrompt: "java"}, "")}
	res := newAnalyzer(t, fake).Analyze(ctx, model.Submission{Code: "x = 1;\n"})
	assert.Equal(t, model.LangJava, res.Language)
}

func TestDeterminism(t *testing.T) {
	a := newAnalyzer(t, ai.NewStub())
	for _, code := range []string{linearPy, binarySearchPy, "int main() { return 0; }\n"} {
		sub := model.Submission{Code: code, Language: "python"}
		if strings.Contains(code, "int main") {
			sub.Language = "c"
		}
		first, err := json.Marshal(a.Analyze(context.Background(), sub))
		require.NoError(t, err)
		second, err := json.Marshal(a.Analyze(context.Background(), sub))
		require.NoError(t, err)
		assert.JSONEq(t, string(first), string(second))
	}
}

func TestValidationMonotonicity(t *testing.T) {
	samples := []struct {
		lang model.Language
		code string
	}{
		{model.LangPython, linearPy},
		{model.LangPython, recursivePy},
		{model.LangJavaScript, "const f = (a) => a + 1;\n"},
		{model.LangC, "int main() {\n  int x = 0;\n  return x;\n}\n"},
		{model.LangGeneric, "anything at all {{{"},
	}
	a := newAnalyzer(t, stubbing())
	for _, s := range samples {
		require.True(t, analysis.Validate(s.lang, s.code).Valid, s.code)
		res := a.Analyze(context.Background(), model.Submission{Code: s.code, Language: string(s.lang)})
		assert.NotEqual(t, model.ErrSyntax, res.Error, s.code)
		assert.False(t, res.WasCorrected)
	}
}

func TestPromptsAreTruncated(t *testing.T) {
	fake := stubbing()
	code := "x = 1\n" + strings.Repeat("y = 2\n", 5000)
	res := New(ai.NewGuard(fake, ai.WithRateLimit(1_000_000, 1000)), WithPromptLimit(1000)).
		Analyze(context.Background(), model.Submission{Code: code})

	for _, c := range fake.Calls() {
		assert.Less(t, len(c.Prompt), 5000)
	}
	assert.Equal(t, analysis.Cyclomatic(code), res.Metrics.CyclomaticComplexity, "local stages see the full text")
	assert.Len(t, analysis.SplitLines(res.Code), 5001)
}

func TestAnalyzeRecordsMetrics(t *testing.T) {
	rec := metrics.New()
	guard := ai.NewGuard(stubbing(), ai.WithObserver(rec), ai.WithRateLimit(1_000_000, 1000))
	a := New(guard, WithRecorder(rec))
	a.Analyze(context.Background(), model.Submission{Code: linearPy, Language: "python"})
	a.Analyze(context.Background(), model.Submission{Code: ""})

	var buf strings.Builder
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		buf.WriteString(mf.GetName())
		buf.WriteString("\n")
	}
	assert.Contains(t, buf.String(), "codeq_analyses_total")
	assert.Contains(t, buf.String(), "codeq_ai_calls_total")
}
