package ai

import (
	"encoding/json"
	"strings"
)

// stubKey marks a structured reply that a stub produced.
const stubKey = "_stubbed"

// parseStructured decodes a structured reply. It accepts the reply as is,
// or the outermost {...} block inside it.
func parseStructured(text string, hint map[string]any) Structured {
	obj, ok := decodeObject(text)
	if !ok {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start >= 0 && end > start {
			obj, ok = decodeObject(text[start : end+1])
		}
	}

	if !ok {
		return Structured{Fields: copyHint(hint), ParseError: true, Raw: Truncate(text, rawLimit)}
	}
	if flag, _ := obj[stubKey].(bool); flag {
		delete(obj, stubKey)
		delete(obj, "note")
		return Structured{Fields: obj, Stubbed: true}
	}
	return Structured{Fields: obj}
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}
