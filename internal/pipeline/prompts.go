package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sprite-ai/codeq/internal/ai"
	"github.com/sprite-ai/codeq/internal/model"
)

const (
	summaryLimit     = 4000
	explanationLimit = 300

	refineSystem = "You are a Python code analysis assistant."
)

func escalationPrompt(code string, limit int) string {
	return "Detect the programming language of the following code.\n" +
		"Return ONLY the language name.\n" +
		"No explanation.\n\n" +
		ai.Truncate(code, limit)
}

func correctionPrompt(lang model.Language, code string, limit int) string {
	name := string(lang)
	if name == "" {
		name = "code"
	}
	return fmt.Sprintf("Fix syntax and runtime errors in the following %s code.\n", name) +
		"Do NOT change business logic.\n" +
		"Return ONLY corrected code.\n" +
		"No explanation.\n" +
		"No markdown.\n\n" +
		ai.Truncate(code, limit)
}

func summaryPrompt(code string) string {
	return "Summarise the main issues and possible improvements in the following code. " +
		"Keep it to 2–3 sentences, plain text only.\n\n" +
		ai.Truncate(code, summaryLimit)
}

func refineHint(cx model.Complexity) map[string]any {
	return map[string]any{
		"algorithm":        "Unknown",
		"time_complexity":  string(cx.Time),
		"space_complexity": string(cx.Space),
		"recommendation":   "",
		"explanation":      "",
	}
}

func refinePrompt(code string, cx model.Complexity, limit int) string {
	prelim, _ := json.Marshal(cx)
	var b strings.Builder
	b.WriteString("Input 1: User-submitted Python code.\n")
	b.WriteString("Input 2: Rule-based analysis JSON from AST estimator:\n")
	b.Write(prelim)
	b.WriteString("\n\nTask:\n")
	b.WriteString("- Recognize algorithm type (e.g., Binary Search, Merge Sort, DFS, BFS, DP, or custom).\n")
	b.WriteString("- Correct rule-based time and space complexity estimates.\n")
	b.WriteString("- Suggest optimizations (iterative vs recursive, memoization, loop improvements).\n")
	b.WriteString("- Provide explanation in human-readable language.\n\n")
	b.WriteString("Output Requirements:\n")
	b.WriteString("Return strict JSON only with fields:\n")
	b.WriteString(`{ "algorithm": "...", "time_complexity": "O(...)", "space_complexity": "O(...)", "recommendation": "...", "explanation": "..." }` + "\n")
	b.WriteString("Truncate explanation to 300 characters if too long.\n")
	b.WriteString("Do not include any extra text or commentary.\n\n")
	b.WriteString("CODE:\n")
	b.WriteString(ai.Truncate(code, limit))
	return b.String()
}

// stripFence removes a markdown code fence wrapped around a whole reply.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	// drop the info string ("python", "js", ...) on the opening line
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " \t(){};=") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}

// localSummary describes the metrics when the collaborator has nothing to say.
func localSummary(r *model.Result) string {
	return fmt.Sprintf("Estimated time complexity %s, cyclomatic complexity %d, maintainability %.1f, risk %s (%d). %s",
		r.Complexity.Time, r.Metrics.CyclomaticComplexity, r.Metrics.Maintainability,
		r.Risk.Level, r.Risk.Score, r.SecuritySummary)
}
