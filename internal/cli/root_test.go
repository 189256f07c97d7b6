package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/diff"
	"github.com/sprite-ai/codeq/internal/model"
	"github.com/sprite-ai/codeq/internal/scan"
)

const (
	linearPy = `def total(xs):
    s = 0
    for x in xs:
        s += x
    return s
`
	quadraticPy = `def pairs(xs):
    out = 0
    for x in xs:
        for y in xs:
            out += x * y
    return out
`
)

// runCLI executes the root command with the stub backend. Flag values live
// on package-level commands, so they are reset first.
func runCLI(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--provider", "stub"}, args...))
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err = rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"analyze", "compare", "scan", "explain", "suggest", "autofix", "chat", "serve", "version"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	// version vars are set via ldflags; in tests they have their defaults
	if version != "dev" {
		t.Errorf("expected default version %q, got %q", "dev", version)
	}

	out, _, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "codeq dev "), out)
}

func TestAnalyzeFromStdin(t *testing.T) {
	out, _, err := runCLI(t, linearPy, "analyze", "--format", "json")
	require.NoError(t, err)

	var res model.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, model.LangPython, res.Language)
	assert.Equal(t, model.BigOLinear, res.Complexity.Time)
	assert.Equal(t, []string{"total"}, res.Structure.Functions)
}

func TestAnalyzeTextReport(t *testing.T) {
	path := writeTemp(t, "total.py", linearPy)

	out, _, err := runCLI(t, "", "analyze", path)
	require.NoError(t, err)
	for _, want := range []string{path, "python", "Time complexity", "O(n)", "Functions", "total"} {
		assert.Contains(t, out, want)
	}
}

func TestAnalyzeEmptyInputExitsWithTwo(t *testing.T) {
	out, _, err := runCLI(t, "", "analyze", "-")

	var exit *ExitError
	require.True(t, errors.As(err, &exit), "got %v", err)
	assert.Equal(t, 2, exit.Code)
	assert.Contains(t, out, string(model.ErrEmptyInput))
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	_, _, err := runCLI(t, linearPy, "analyze", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestCompareFiles(t *testing.T) {
	a := writeTemp(t, "a.py", linearPy)
	b := writeTemp(t, "b.py", quadraticPy)

	out, _, err := runCLI(t, "", "compare", "--format", "json", a, b)
	require.NoError(t, err)

	var c model.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, model.VersionA, c.BetterVersion)
	require.NotNil(t, c.Metrics)
	assert.Equal(t, "O(n^2)", c.Metrics.B.BigO)
}

func TestCompareFromPatch(t *testing.T) {
	patch := `diff --git a/calc.py b/calc.py
--- a/calc.py
+++ b/calc.py
@@ -1,2 +1,2 @@
 def f(x):
-    return x
+    return x + 1
`
	out, _, err := runCLI(t, patch, "compare", "--patch", "-", "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "## Comparison: `calc.py` vs `calc.py`")
	assert.Contains(t, out, "**+1** added, **-1** removed lines")
}

func TestCompareNeedsTwoVersions(t *testing.T) {
	a := writeTemp(t, "a.py", linearPy)

	_, _, err := runCLI(t, "", "compare", a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compare needs two files")
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.py"), []byte("password = 'x'\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.go"), []byte("package util\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".git", "config"), []byte("[core]\n"), 0o644))

	out, _, err := runCLI(t, "", "scan", "--format", "json", dir)
	require.NoError(t, err)

	var rep scan.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 2, rep.TotalFiles)
	require.Len(t, rep.RiskyModules, 1)
	assert.Equal(t, filepath.Join(dir, "auth.py"), rep.RiskyModules[0].FilePath)
}

func TestExplainWithStub(t *testing.T) {
	out, _, err := runCLI(t, linearPy, "explain", "--format", "json")
	require.NoError(t, err)

	var e struct {
		Stubbed   bool     `json:"stubbed"`
		KeyPoints []string `json:"key_points"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &e))
	assert.True(t, e.Stubbed)
	assert.NotNil(t, e.KeyPoints)
}

func TestAutofixKeepsCodeWithStub(t *testing.T) {
	path := writeTemp(t, "total.py", linearPy)

	out, errOut, err := runCLI(t, "", "autofix", "--write", path)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "+0 -0 lines")
	assert.Contains(t, errOut, "placeholder output")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, linearPy, string(data))
}

func TestAutofixWriteNeedsFile(t *testing.T) {
	_, _, err := runCLI(t, linearPy, "autofix", "--write")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--write needs a file argument")
}

func TestChatJoinsQuestion(t *testing.T) {
	path := writeTemp(t, "total.py", linearPy)

	out, _, err := runCLI(t, "", "chat", "--format", "json", path, "what", "does", "this", "do?")
	require.NoError(t, err)

	var ans struct {
		Stubbed bool `json:"stubbed"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ans))
	assert.True(t, ans.Stubbed)
}

func TestValidFormat(t *testing.T) {
	assert.NoError(t, validFormat("json", reportFormats...))
	assert.EqualError(t, validFormat("pretty", formatText, formatJSON), `unknown format "pretty" (want text, json)`)
}

func TestWritePrettyWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writePretty(&buf, "## Title\n"))
	assert.Equal(t, "## Title\n", buf.String())
}

func TestComparisonTextFailure(t *testing.T) {
	c := &model.Comparison{
		Error:       model.ErrCompilation,
		Message:     "Code is invalid even after correction for versions: B.",
		FailedSides: []model.Version{model.VersionB},
		Diff:        diff.Lines(linearPy, quadraticPy),
	}
	out := comparisonText(c, "a.py", "b.py")
	assert.Contains(t, out, "A=a.py  B=b.py")
	assert.Contains(t, out, "versions: B.")
	assert.NotContains(t, out, "Better version")
}

func TestWatchFileRerunsOnWrite(t *testing.T) {
	path := writeTemp(t, "watched.py", linearPy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, zap.NewNop(), func() error {
			runs.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(quadraticPy), 0o644))
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchFile did not stop after cancel")
	}
}
