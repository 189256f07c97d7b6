package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

// bisectLoopPhrases are loop headers typical of a binary search.
var bisectLoopPhrases = []string{
	"while (low <=", "while (low >=", "while(low <=", "while(low >=",
	"while (start <=", "while(start <=",
	"while (begin <=", "while(begin <=",
	"while (left <=", "while(left <=",
	"while (left < right", "while(left < right",
	"while left <=", "while left >=", "while start <=", "while begin <=",
}

var (
	loopOpeners  = []string{"for ", "while "}
	blockOpeners = []string{"for ", "while ", "if ", "elif "}
)

// EstimateComplexity classifies the time and space complexity of code.
func EstimateComplexity(lang model.Language, code string) model.Complexity {
	if lang.GrammarAware() {
		sum, ok := SummarizePython(code)
		if !ok {
			return model.Complexity{Time: model.BigOConstant, Space: model.BigOConstant}
		}
		return model.Complexity{Time: treeTime(sum), Space: treeSpace(sum)}
	}
	return model.Complexity{Time: textTime(code), Space: model.BigOConstant}
}

func treeTime(sum TreeSummary) model.BigO {
	calls := sum.MaxSelfCalls()
	switch {
	case sum.LogLoop:
		return model.BigOLog
	case calls >= 2:
		return model.BigOExponential
	case calls == 1:
		return model.BigOLinear
	}
	return depthToBigO(sum.MaxLoopDepth)
}

func treeSpace(sum TreeSummary) model.BigO {
	if sum.MaxSelfCalls() >= 1 || sum.Comprehension {
		return model.BigOLinear
	}
	return model.BigOConstant
}

func depthToBigO(depth int) model.BigO {
	switch {
	case depth >= 2:
		return model.BigOQuadratic
	case depth == 1:
		return model.BigOLinear
	default:
		return model.BigOConstant
	}
}

// textTime estimates time complexity from the raw text. The nesting
// estimate treats a colon-terminated line that does not open a loop or a
// conditional as leaving a block, which only makes sense for
// indentation-delimited code.
func textTime(code string) model.BigO {
	lowered := strings.ToLower(code)

	hasBounds := containsAny(lowered, boundNames...)
	hasBisectLoop := containsAny(lowered, bisectLoopPhrases...)
	hasMid := strings.Contains(lowered, "mid") && containsAny(lowered, "/ 2", ">> 1")
	if hasBounds && hasBisectLoop && hasMid {
		return model.BigOLog
	}

	depth, maxDepth := 0, 0
	for _, line := range SplitLines(code) {
		stripped := strings.TrimSpace(line)
		if hasAnyPrefix(stripped, loopOpeners...) {
			depth++
			maxDepth = max(maxDepth, depth)
		}
		if strings.HasSuffix(stripped, ":") && !hasAnyPrefix(stripped, blockOpeners...) {
			depth = max(depth-1, 0)
		}
	}
	return depthToBigO(maxDepth)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
