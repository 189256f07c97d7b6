// Package scan surveys a set of files by extension and by a few risky
// name and content markers, without parsing anything.
package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sprite-ai/codeq/internal/analysis"
)

const maxScanBytes = 1_000_000

var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".jsx":  "javascript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".cs":   "csharp",
	".cpp":  "cpp",
	".c":    "c",
	".h":    "c",
	".json": "json",
	".yml":  "yaml",
	".yaml": "yaml",
	".md":   "markdown",
	".sql":  "sql",
	".sh":   "shell",
	".bat":  "shell",
	".ps1":  "shell",
	".env":  "env",
}

var riskyNameKeywords = []string{
	"auth", "login", "password", "secret", "token", "key", "keys", "crypto",
	"payment", "billing", "admin", "rbac", "acl", "permission", "oauth", "jwt",
	"session", "webhook",
}

// contentMarkers label file contents. Each label is reported once.
var contentMarkers = []analysis.PatternSet{
	{Name: "hardcoded_password", Patterns: []string{"password =", "pwd =", "pass =", "password:"}},
	{Name: "secret_like", Patterns: []string{"api_key", "apikey", "secret", "token", "bearer "}},
	{Name: "dangerous_exec", Patterns: []string{"eval(", "exec(", "os.system(", "subprocess.call(", "subprocess.run("}},
	{Name: "sql_string", Patterns: []string{"select ", "insert ", "update ", "delete "}},
}

// LanguageCount is one row of the language breakdown.
type LanguageCount struct {
	Language string `json:"language"`
	Files    int    `json:"files"`
}

// RiskyModule is a file with at least one reason to look at it first.
type RiskyModule struct {
	FilePath string   `json:"file_path"`
	Language string   `json:"language"`
	Reasons  []string `json:"reasons"`
}

type Report struct {
	TotalFiles        int             `json:"total_files"`
	LanguageBreakdown []LanguageCount `json:"language_breakdown"`
	RiskyModules      []RiskyModule   `json:"risky_modules"`
	Summary           string          `json:"summary"`
}

// Scan classifies paths. Files that do not exist or cannot be read still
// count and still get their path-based reasons.
func Scan(paths []string) Report {
	counts := make(map[string]int)
	risky := []RiskyModule{}

	for _, p := range paths {
		lang := LanguageFromPath(p)
		counts[lang]++

		reasons := append(pathReasons(p), contentReasons(p)...)
		if len(reasons) > 0 {
			risky = append(risky, RiskyModule{
				FilePath: p,
				Language: lang,
				Reasons:  sortedUnique(reasons),
			})
		}
	}

	breakdown := make([]LanguageCount, 0, len(counts))
	for lang, n := range counts {
		breakdown = append(breakdown, LanguageCount{Language: lang, Files: n})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Files != breakdown[j].Files {
			return breakdown[i].Files > breakdown[j].Files
		}
		return breakdown[i].Language < breakdown[j].Language
	})

	return Report{
		TotalFiles:        len(paths),
		LanguageBreakdown: breakdown,
		RiskyModules:      risky,
		Summary:           summarize(len(paths), breakdown, len(risky)),
	}
}

// LanguageFromPath names the language of a file by its extension.
func LanguageFromPath(path string) string {
	if lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return "other"
}

func pathReasons(path string) []string {
	name := strings.ToLower(path)
	var reasons []string
	for _, kw := range riskyNameKeywords {
		if strings.Contains(name, kw) {
			reasons = append(reasons, "name_contains:"+kw)
		}
	}
	if strings.HasPrefix(filepath.Base(path), ".env") {
		reasons = append(reasons, "sensitive_env_file")
	}
	return reasons
}

func contentReasons(path string) []string {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}
	if info.Size() > maxScanBytes {
		return []string{"file_too_large_to_scan"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	lowered := strings.ToLower(string(data))

	var labels []string
	for _, m := range contentMarkers {
		if m.Score(lowered) > 0 {
			labels = append(labels, m.Name)
		}
	}
	return labels
}

func sortedUnique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func summarize(total int, breakdown []LanguageCount, risky int) string {
	if total == 0 {
		return "No files provided."
	}
	top := breakdown[0]
	return fmt.Sprintf("Scanned %d files. Top language: %s (%d). Flagged %d potentially risky module(s) using simple heuristics.",
		total, top.Language, top.Files, risky)
}
