package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

// ExtractStructure lists functions and classes defined with Python-style
// "def " and "class " line prefixes.
func ExtractStructure(code string) model.Structure {
	s := model.Structure{Functions: []string{}, Classes: []string{}}
	for _, line := range SplitLines(code) {
		stripped := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(stripped, "def "):
			name, _, _ := strings.Cut(strings.TrimPrefix(stripped, "def "), "(")
			s.Functions = append(s.Functions, name)
		case strings.HasPrefix(stripped, "class "):
			name, _, _ := strings.Cut(strings.TrimPrefix(stripped, "class "), "(")
			name, _, _ = strings.Cut(name, ":")
			s.Classes = append(s.Classes, name)
		}
	}
	return s
}
