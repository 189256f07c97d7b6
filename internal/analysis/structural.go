package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

// branchKeywords each add one path per occurrence. Overlaps are counted
// twice ("elif " also contains "if ").
var branchKeywords = []string{"if ", "elif ", "for ", "while ", "case ", " except ", " and ", " or "}

// Cyclomatic approximates cyclomatic complexity by keyword counting.
func Cyclomatic(code string) int {
	return 1 + countOccurrences(strings.ToLower(code), branchKeywords...)
}

// Maintainability derives a 0-100 index from cyclomatic complexity and
// line count.
func Maintainability(cyclomatic int, code string) float64 {
	lines := max(len(SplitLines(code)), 1)
	mi := 100.0 - 1.5*float64(cyclomatic) - 0.1*float64(lines)
	return min(max(mi, 0), 100)
}

// Score computes the structural metrics for code.
func Score(code string) model.Metrics {
	cc := Cyclomatic(code)
	return model.Metrics{
		CyclomaticComplexity: cc,
		Maintainability:      Maintainability(cc, code),
	}
}
