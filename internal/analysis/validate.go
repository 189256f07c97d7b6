package analysis

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/sprite-ai/codeq/internal/model"
)

const (
	msgEmptyCode        = "Empty code"
	msgUnbalancedBrace  = "Unbalanced brackets/braces"
	msgUnbalancedQuotes = "Unbalanced quotes"
	msgNoSemicolons     = "No semicolons found in multi-line code"
)

// bracketPairs maps each closing bracket to its opener.
var bracketPairs = map[rune]rune{')': '(', '}': '{', ']': '['}

var quoteChars = []string{"'", `"`, "`"}

// semicolonLanguages are checked for at least one statement terminator.
var semicolonLanguages = map[model.Language]bool{
	model.LangJavaScript: true,
	model.LangTypeScript: true,
	model.LangJava:       true,
	model.LangC:          true,
	model.LangCPP:        true,
	"c++":                true,
}

// Validate checks code against lang's grammar when one is available and
// against structural rules otherwise.
func Validate(lang model.Language, code string) model.Validation {
	if strings.TrimSpace(code) == "" {
		return invalid(msgEmptyCode)
	}

	switch {
	case lang == "" || lang == model.LangGeneric:
		return model.Validation{Valid: true}
	case lang.GrammarAware():
		if msg := pythonSyntaxError(code); msg != "" {
			return invalid(msg)
		}
		return model.Validation{Valid: true}
	}

	if !balancedBrackets(code) {
		return invalid(msgUnbalancedBrace)
	}
	if !balancedQuotes(code) {
		return invalid(msgUnbalancedQuotes)
	}
	if semicolonLanguages[lang] && nonBlankLines(code) >= 3 && !strings.Contains(code, ";") {
		return invalid(msgNoSemicolons)
	}
	return model.Validation{Valid: true}
}

func invalid(msg string) model.Validation {
	return model.Validation{Valid: false, Error: msg}
}

func balancedBrackets(code string) bool {
	var stack []rune
	for _, ch := range code {
		switch ch {
		case '(', '{', '[':
			stack = append(stack, ch)
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != bracketPairs[ch] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

func balancedQuotes(code string) bool {
	for _, q := range quoteChars {
		if strings.Count(code, q)%2 != 0 {
			return false
		}
	}
	return true
}

// parsePython parses src with the tree-sitter Python grammar. The caller
// must Close the returned tree.
func parsePython(src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, fmt.Errorf("parsing python: %w", err)
	}
	return tree, nil
}

// pythonSyntaxError returns a message describing the first syntax error in
// code, or "" when the tree is clean.
func pythonSyntaxError(code string) string {
	src := []byte(code)
	tree, err := parsePython(src)
	if err != nil {
		return err.Error()
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return legacyStatementError(root)
	}

	node := firstErrorNode(root)
	if node == nil {
		return "invalid syntax (<unknown>, line 1)"
	}
	line := int(node.StartPoint().Row) + 1
	if node.IsMissing() {
		return fmt.Sprintf("expected '%s' (<unknown>, line %d)", node.Type(), line)
	}
	return fmt.Sprintf("invalid syntax (<unknown>, line %d)", line)
}

// firstErrorNode finds the first ERROR or MISSING node in document order.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.IsError() || node.IsMissing() {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return nil
}

// legacyStatementError reports Python 2 statements, which the grammar
// accepts but Python 3 does not.
func legacyStatementError(node *sitter.Node) string {
	line := int(node.StartPoint().Row) + 1
	switch node.Type() {
	case "print_statement":
		return fmt.Sprintf("Missing parentheses in call to 'print'. Did you mean print(...)? (<unknown>, line %d)", line)
	case "exec_statement":
		return fmt.Sprintf("Missing parentheses in call to 'exec'. Did you mean exec(...)? (<unknown>, line %d)", line)
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if msg := legacyStatementError(node.NamedChild(i)); msg != "" {
			return msg
		}
	}
	return ""
}
