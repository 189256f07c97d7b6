package diff

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/codeq/internal/model"
)

const highlightStyle = "dracula"

// chromaLexers names the chroma lexer for every language the identifier
// can report. Generic code is left plain.
var chromaLexers = map[model.Language]string{
	model.LangPython:     "python",
	model.LangJavaScript: "javascript",
	model.LangTypeScript: "typescript",
	model.LangJava:       "java",
	model.LangCPP:        "c++",
	model.LangC:          "c",
}

// HighlightedLine is one source line split into colored tokens.
type HighlightedLine struct {
	Tokens []Token
}

// Token is a run of text sharing one color.
type Token struct {
	Text  string
	Color string // hex, empty for the terminal default
}

func (hl HighlightedLine) Plain() string {
	var b strings.Builder
	for _, t := range hl.Tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}

// Render colors each token for the terminal.
func (hl HighlightedLine) Render() string {
	var b strings.Builder
	for _, t := range hl.Tokens {
		if t.Color == "" {
			b.WriteString(t.Text)
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(t.Color)).Render(t.Text))
	}
	return b.String()
}

// HighlightLines tokenizes lines as one snippet and returns exactly one
// HighlightedLine per input line. hint is a detected language ("python",
// "cpp") or a file name; an unknown hint or generic code stays plain.
func HighlightLines(hint string, lines []string) []HighlightedLine {
	lexer := lexerFor(hint)
	if lexer == nil {
		return plainLines(lines)
	}
	it, err := lexer.Tokenise(nil, strings.Join(lines, "\n"))
	if err != nil {
		return plainLines(lines)
	}

	style := styles.Get(highlightStyle)
	out := make([]HighlightedLine, len(lines))
	row := 0
	for _, tok := range it.Tokens() {
		color := tokenColor(style, tok.Type)
		rest := tok.Value
		for row < len(out) {
			part, tail, more := strings.Cut(rest, "\n")
			if part != "" {
				out[row].Tokens = append(out[row].Tokens, Token{Text: part, Color: color})
			}
			if !more {
				break
			}
			row++
			rest = tail
		}
	}
	for i := range out {
		if len(out[i].Tokens) == 0 {
			out[i].Tokens = []Token{{}}
		}
	}
	return out
}

func plainLines(lines []string) []HighlightedLine {
	out := make([]HighlightedLine, len(lines))
	for i, line := range lines {
		out[i] = HighlightedLine{Tokens: []Token{{Text: line}}}
	}
	return out
}

func lexerFor(hint string) chroma.Lexer {
	lang := model.Language(strings.ToLower(strings.TrimSpace(hint)))
	if lang == "" || lang == model.LangGeneric {
		return nil
	}

	var lexer chroma.Lexer
	if name, ok := chromaLexers[lang]; ok {
		lexer = lexers.Get(name)
	}
	if lexer == nil && filepath.Ext(hint) != "" {
		lexer = lexers.Match(filepath.Base(hint))
	}
	if lexer == nil {
		return nil
	}
	return chroma.Coalesce(lexer)
}

func tokenColor(style *chroma.Style, tt chroma.TokenType) string {
	if entry := style.Get(tt); entry.Colour.IsSet() {
		return entry.Colour.String()
	}
	return ""
}
