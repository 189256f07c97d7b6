package analysis

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// boundNames are the identifiers that suggest a pair of search bounds.
var boundNames = []string{"low", "high", "start", "end", "left", "right"}

// halvingOps are compared against loop text with all whitespace removed.
var halvingOps = []string{"//2", ">>1", "/=2"}

// comprehensionTypes build a collection inline.
var comprehensionTypes = map[string]bool{
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
}

// TreeSummary is what the complexity estimator needs to know about a
// Python syntax tree.
type TreeSummary struct {
	MaxLoopDepth  int
	SelfCalls     map[string]int // direct self-calls keyed by function name
	LogLoop       bool
	Comprehension bool
}

// MaxSelfCalls returns the largest self-call count of any function.
func (s TreeSummary) MaxSelfCalls() int {
	n := 0
	for _, c := range s.SelfCalls {
		n = max(n, c)
	}
	return n
}

// walkState is threaded through the traversal by value, so each subtree
// sees its own enclosing function and loop depth.
type walkState struct {
	fn    string
	depth int
}

// SummarizePython parses code and walks its tree. ok is false when the code
// does not parse cleanly.
func SummarizePython(code string) (sum TreeSummary, ok bool) {
	src := []byte(code)
	tree, err := parsePython(src)
	if err != nil {
		return TreeSummary{}, false
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return TreeSummary{}, false
	}

	sum.SelfCalls = make(map[string]int)
	summarize(root, src, walkState{}, &sum)
	return sum, true
}

func summarize(node *sitter.Node, src []byte, st walkState, sum *TreeSummary) {
	switch node.Type() {
	case "function_definition":
		if name := node.ChildByFieldName("name"); name != nil {
			st.fn = name.Content(src)
			if _, seen := sum.SelfCalls[st.fn]; !seen {
				sum.SelfCalls[st.fn] = 0
			}
		}

	case "call":
		if st.fn != "" {
			if target := node.ChildByFieldName("function"); target != nil &&
				target.Type() == "identifier" && target.Content(src) == st.fn {
				sum.SelfCalls[st.fn]++
			}
		}

	case "for_statement":
		st.depth++
		sum.MaxLoopDepth = max(sum.MaxLoopDepth, st.depth)

	case "while_statement":
		st.depth++
		sum.MaxLoopDepth = max(sum.MaxLoopDepth, st.depth)
		if isHalvingLoop(node.Content(src)) {
			sum.LogLoop = true
		}

	default:
		if comprehensionTypes[node.Type()] {
			sum.Comprehension = true
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child != nil {
			summarize(child, src, st, sum)
		}
	}
}

// isHalvingLoop reports whether loop text mentions a search bound and
// halves something.
func isHalvingLoop(text string) bool {
	lowered := strings.ToLower(text)
	if !containsAny(lowered, boundNames...) {
		return false
	}
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, lowered)
	return containsAny(compact, halvingOps...)
}
