// Package analysis implements the local, deterministic heuristics over a code
// snippet: language identification, syntax validation, complexity estimation,
// structural scoring, security scanning and risk aggregation.
//
// Every exported function is total over its input. None of them perform I/O.
package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

// PatternSet is a named list of literal substrings.
type PatternSet struct {
	Name     string
	Patterns []string
}

// Matches returns the patterns of ps found in lowered, in table order.
// lowered must already be lower-cased.
func (ps PatternSet) Matches(lowered string) []string {
	var hits []string
	for _, p := range ps.Patterns {
		if strings.Contains(lowered, p) {
			hits = append(hits, p)
		}
	}
	return hits
}

// Score counts the patterns of ps found in lowered.
func (ps PatternSet) Score(lowered string) int {
	n := 0
	for _, p := range ps.Patterns {
		if strings.Contains(lowered, p) {
			n++
		}
	}
	return n
}

// containsAny reports whether s contains any of subs.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// countOccurrences sums the non-overlapping occurrences of each sub in s.
func countOccurrences(s string, subs ...string) int {
	n := 0
	for _, sub := range subs {
		n += strings.Count(s, sub)
	}
	return n
}

// Report is the combined output of the local stages for valid code.
type Report struct {
	Complexity      model.Complexity
	Metrics         model.Metrics
	Findings        []model.Finding
	SecuritySummary string
	Risk            model.Risk
	Structure       model.Structure
}

// Evaluate runs every local stage over code that has already passed
// validation. The stages share no state.
func Evaluate(lang model.Language, code string) Report {
	cx := EstimateComplexity(lang, code)
	metrics := Score(code)
	findings := ScanSecurity(code)

	return Report{
		Complexity:      cx,
		Metrics:         metrics,
		Findings:        findings,
		SecuritySummary: SecuritySummary(findings),
		Risk:            AssessRisk(cx.Time, metrics, findings),
		Structure:       ExtractStructure(code),
	}
}
