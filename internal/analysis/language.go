package analysis

import (
	"strings"

	"github.com/sprite-ai/codeq/internal/model"
)

// EscalationThreshold is the confidence below which detection is handed to
// the AI collaborator.
const EscalationThreshold = 0.5

// escalatedConfidence is assigned to any language the collaborator names
// that the alias table recognizes.
const escalatedConfidence = 0.9

// languageSignals are scored in this order; the first language to reach a
// strictly higher score keeps the lead.
var languageSignals = []struct {
	lang model.Language
	set  PatternSet
}{
	{model.LangPython, PatternSet{Name: "python", Patterns: []string{"def ", "import ", "print(", "async def", "self", "elif ", "lambda "}}},
	{model.LangJavaScript, PatternSet{Name: "javascript", Patterns: []string{"console.log", "function ", "=>", "var ", "let ", "const "}}},
	{model.LangJava, PatternSet{Name: "java", Patterns: []string{"public class", "system.out", "public static void"}}},
	{model.LangCPP, PatternSet{Name: "cpp", Patterns: []string{"#include", "std::", "cout<<", "cout <<"}}},
	{model.LangC, PatternSet{Name: "c", Patterns: []string{"printf(", "scanf(", "int main("}}},
	{model.LangTypeScript, PatternSet{Name: "typescript", Patterns: []string{"interface ", "type ", ": string", ": number"}}},
}

// languageAliases maps collaborator answers and overrides to canonical tags.
var languageAliases = map[string]model.Language{
	"python":     model.LangPython,
	"py":         model.LangPython,
	"javascript": model.LangJavaScript,
	"js":         model.LangJavaScript,
	"typescript": model.LangTypeScript,
	"ts":         model.LangTypeScript,
	"java":       model.LangJava,
	"c++":        model.LangCPP,
	"cpp":        model.LangCPP,
	"c":          model.LangC,
	"generic":    model.LangGeneric,
}

// selfHealMarkers name text that rules out the grammar-aware language.
var selfHealMarkers = []struct {
	marker string
	lang   model.Language
}{
	{"#include", model.LangC},
}

// Identify scores code against every language's signal table.
func Identify(code string) model.Detection {
	lowered := strings.ToLower(code)

	best := model.LangGeneric
	bestScore := 0
	bestTotal := 1
	for _, ls := range languageSignals {
		if score := ls.set.Score(lowered); score > bestScore {
			best = ls.lang
			bestScore = score
			bestTotal = len(ls.set.Patterns)
		}
	}

	if bestScore == 0 {
		return model.Detection{Language: model.LangGeneric, Confidence: 0}
	}
	return model.Detection{
		Language:   best,
		Confidence: min(1.0, float64(bestScore)/float64(bestTotal)),
	}
}

// NeedsEscalation reports whether d is too uncertain to stand on its own.
func NeedsEscalation(d model.Detection) bool {
	return d.Confidence < EscalationThreshold
}

// NormalizeLanguage maps a user-supplied language name to its canonical tag.
// Names outside the alias table are kept, lower-cased.
func NormalizeLanguage(name string) model.Language {
	name = strings.ToLower(strings.TrimSpace(name))
	if lang, ok := languageAliases[name]; ok {
		return lang
	}
	return model.Language(name)
}

// Override returns the detection for a caller-supplied language. The caller
// has already decided, so confidence is 1.
func Override(name string) model.Detection {
	return model.Detection{Language: NormalizeLanguage(name), Confidence: 1}
}

// ParseLanguageAnswer interprets the collaborator's one-word answer. Only the
// first token counts; unknown or empty answers give generic with confidence 0.
func ParseLanguageAnswer(answer string) model.Detection {
	fields := strings.Fields(strings.ToLower(answer))
	if len(fields) == 0 {
		return model.Detection{Language: model.LangGeneric, Escalated: true}
	}
	token := strings.Trim(fields[0], ".,:;!\"'`")
	lang, ok := languageAliases[token]
	if !ok || lang == model.LangGeneric {
		return model.Detection{Language: model.LangGeneric, Escalated: true}
	}
	return model.Detection{Language: lang, Confidence: escalatedConfidence, Escalated: true}
}

// SelfHeal switches away from the grammar-aware language when the text
// carries an unambiguous marker of another family.
func SelfHeal(d model.Detection, code string) model.Detection {
	if !d.Language.GrammarAware() {
		return d
	}
	for _, m := range selfHealMarkers {
		if strings.Contains(code, m.marker) {
			d.Language = m.lang
			return d
		}
	}
	return d
}
