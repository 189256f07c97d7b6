package scan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	clean := write(t, dir, "util.py", "def add(a, b):\n    return a + b\n")
	risky := write(t, dir, "db.py", "query = 'SELECT * FROM users'\neval(query)\n")
	env := write(t, dir, ".env", "API_KEY=abc\n")
	missing := filepath.Join(dir, "auth", "login.go")

	r := Scan([]string{clean, risky, env, missing})

	if r.TotalFiles != 4 {
		t.Errorf("total = %d, want 4", r.TotalFiles)
	}
	wantBreakdown := []LanguageCount{{"python", 2}, {"env", 1}, {"go", 1}}
	if d := cmp.Diff(wantBreakdown, r.LanguageBreakdown); d != "" {
		t.Errorf("breakdown mismatch (-want +got):\n%s", d)
	}

	wantRisky := []RiskyModule{
		{FilePath: risky, Language: "python", Reasons: []string{"dangerous_exec", "sql_string"}},
		{FilePath: env, Language: "env", Reasons: []string{"secret_like", "sensitive_env_file"}},
		{FilePath: missing, Language: "go", Reasons: []string{"name_contains:auth", "name_contains:login"}},
	}
	if d := cmp.Diff(wantRisky, r.RiskyModules); d != "" {
		t.Errorf("risky mismatch (-want +got):\n%s", d)
	}

	want := "Scanned 4 files. Top language: python (2). Flagged 3 potentially risky module(s) using simple heuristics."
	if r.Summary != want {
		t.Errorf("summary = %q", r.Summary)
	}
}

func TestScanLargeFile(t *testing.T) {
	dir := t.TempDir()
	big := write(t, dir, "big.sql", strings.Repeat("x", maxScanBytes+1))

	r := Scan([]string{big})
	if len(r.RiskyModules) != 1 {
		t.Fatalf("expected one risky module, got %d", len(r.RiskyModules))
	}
	if d := cmp.Diff([]string{"file_too_large_to_scan"}, r.RiskyModules[0].Reasons); d != "" {
		t.Errorf("reasons mismatch (-want +got):\n%s", d)
	}
}

func TestScanEmpty(t *testing.T) {
	r := Scan(nil)
	if r.TotalFiles != 0 || r.Summary != "No files provided." {
		t.Errorf("unexpected report %+v", r)
	}
	if r.RiskyModules == nil || r.LanguageBreakdown == nil {
		t.Error("empty report should carry empty lists")
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]string{
		"a/b/main.PY":   "python",
		"web/App.tsx":   "typescript",
		"include/x.h":   "c",
		"Makefile":      "other",
		"deploy/run.sh": "shell",
	}
	for path, want := range tests {
		if got := LanguageFromPath(path); got != want {
			t.Errorf("LanguageFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
