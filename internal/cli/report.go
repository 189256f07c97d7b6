package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/sprite-ai/codeq/internal/model"
	"github.com/sprite-ai/codeq/internal/scan"
)

const (
	formatText     = "text"
	formatJSON     = "json"
	formatMarkdown = "markdown"
	formatPretty   = "pretty"
)

var reportFormats = []string{formatText, formatJSON, formatMarkdown, formatPretty}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#bd93f9"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	errStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555"))
	goodStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#50fa7b"))
)

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writePretty renders markdown for the terminal, or prints it as is when
// w is not a terminal.
func writePretty(w io.Writer, md string) error {
	if !isTerminal(w) {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// --- Analysis ---

func writeResult(w io.Writer, res *model.Result, name, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, res)
	case formatMarkdown:
		_, err := io.WriteString(w, resultMarkdown(res, name))
		return err
	case formatPretty:
		return writePretty(w, resultMarkdown(res, name))
	default:
		_, err := io.WriteString(w, resultText(res, name))
		return err
	}
}

func resultText(res *model.Result, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s (confidence %.2f)\n", headerStyle.Render(name), res.Language, res.Confidence)

	if res.Failed() {
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render(string(res.Error)+":"), res.Message)
		return b.String()
	}

	if res.WasCorrected {
		b.WriteString(labelStyle.Render("Code was auto-corrected before analysis.") + "\n")
	}
	row := func(label, value string) {
		fmt.Fprintf(&b, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-22s", label)), value)
	}
	row("Time complexity", res.TimeComplexity())
	row("Space complexity", res.SpaceComplexity())
	row("Cyclomatic complexity", fmt.Sprint(res.Metrics.CyclomaticComplexity))
	row("Maintainability", fmt.Sprintf("%.1f", res.Metrics.Maintainability))
	row("Risk", fmt.Sprintf("%s%s (%d), trend %s", riskIcon(res.Risk.Level), res.Risk.Level, res.Risk.Score, res.Risk.Trend))
	row("Security", res.SecuritySummary)
	if len(res.Structure.Functions) > 0 {
		row("Functions", strings.Join(res.Structure.Functions, ", "))
	}
	if len(res.Structure.Classes) > 0 {
		row("Classes", strings.Join(res.Structure.Classes, ", "))
	}

	if len(res.Findings) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range res.Findings {
			fmt.Fprintf(&b, "  %-8s %s\n", f.Severity, f.Message)
		}
	}
	if r := res.Refinement; r != nil {
		fmt.Fprintf(&b, "\nAlgorithm: %s\n", r.Algorithm)
		if r.Recommendation != "" {
			fmt.Fprintf(&b, "Recommendation: %s\n", r.Recommendation)
		}
		if r.Explanation != "" {
			fmt.Fprintf(&b, "%s\n", r.Explanation)
		}
	}
	if res.AISummary != "" {
		fmt.Fprintf(&b, "\n%s\n", res.AISummary)
	}
	return b.String()
}

func resultMarkdown(res *model.Result, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Analysis: `%s`\n\n", name)
	fmt.Fprintf(&b, "**Language:** %s (confidence %.2f)\n\n", res.Language, res.Confidence)

	if res.Failed() {
		fmt.Fprintf(&b, "**%s:** %s\n", res.Error, res.Message)
		return b.String()
	}

	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Time complexity | %s |\n", res.TimeComplexity())
	fmt.Fprintf(&b, "| Space complexity | %s |\n", res.SpaceComplexity())
	fmt.Fprintf(&b, "| Cyclomatic complexity | %d |\n", res.Metrics.CyclomaticComplexity)
	fmt.Fprintf(&b, "| Maintainability | %.1f |\n", res.Metrics.Maintainability)
	fmt.Fprintf(&b, "| Risk | %s (%d) |\n", res.Risk.Level, res.Risk.Score)
	fmt.Fprintf(&b, "| Trend | %s |\n", res.Risk.Trend)
	if res.WasCorrected {
		b.WriteString("| Auto-corrected | yes |\n")
	}

	fmt.Fprintf(&b, "\n**Security:** %s\n", res.SecuritySummary)
	for _, f := range res.Findings {
		fmt.Fprintf(&b, "- *%s* %s\n", f.Severity, f.Message)
	}
	if r := res.Refinement; r != nil {
		fmt.Fprintf(&b, "\n**Algorithm:** %s\n", r.Algorithm)
		if r.Recommendation != "" {
			fmt.Fprintf(&b, "\n**Recommendation:** %s\n", r.Recommendation)
		}
	}
	if res.AISummary != "" {
		fmt.Fprintf(&b, "\n### Summary\n\n%s\n", res.AISummary)
	}
	return b.String()
}

// --- Comparison ---

func writeComparison(w io.Writer, c *model.Comparison, nameA, nameB, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, c)
	case formatMarkdown:
		_, err := io.WriteString(w, comparisonMarkdown(c, nameA, nameB))
		return err
	case formatPretty:
		return writePretty(w, comparisonMarkdown(c, nameA, nameB))
	default:
		_, err := io.WriteString(w, comparisonText(c, nameA, nameB))
		return err
	}
}

func comparisonText(c *model.Comparison, nameA, nameB string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  A=%s  B=%s\n", headerStyle.Render("Compare"), nameA, nameB)
	fmt.Fprintf(&b, "%d line(s) added, %d removed\n", len(c.Diff.Added), len(c.Diff.Removed))

	if c.Failed() {
		fmt.Fprintf(&b, "%s %s\n", errStyle.Render(string(c.Error)+":"), c.Message)
		return b.String()
	}

	fmt.Fprintf(&b, "%s\n", goodStyle.Render("Better version: "+string(c.BetterVersion)))
	for _, n := range c.Notes {
		fmt.Fprintf(&b, "  %s\n", n)
	}
	if m := c.Metrics; m != nil {
		fmt.Fprintf(&b, "\n  %-22s %-10s %-10s\n", "", "A", "B")
		fmt.Fprintf(&b, "  %-22s %-10s %-10s\n", "Big-O", m.A.BigO, m.B.BigO)
		fmt.Fprintf(&b, "  %-22s %-10d %-10d\n", "Cyclomatic complexity", m.A.CyclomaticComplexity, m.B.CyclomaticComplexity)
		fmt.Fprintf(&b, "  %-22s %-10.1f %-10.1f\n", "Maintainability", m.A.Maintainability, m.B.Maintainability)
		fmt.Fprintf(&b, "  %-22s %-10d %-10d\n", "Risk score", m.A.RiskScore, m.B.RiskScore)
	}
	return b.String()
}

func comparisonMarkdown(c *model.Comparison, nameA, nameB string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Comparison: `%s` vs `%s`\n\n", nameA, nameB)
	fmt.Fprintf(&b, "**+%d** added, **-%d** removed lines\n\n", len(c.Diff.Added), len(c.Diff.Removed))

	if c.Failed() {
		fmt.Fprintf(&b, "**%s:** %s\n", c.Error, c.Message)
		return b.String()
	}

	fmt.Fprintf(&b, "**Better version:** %s\n\n", c.BetterVersion)
	for _, n := range c.Notes {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	if m := c.Metrics; m != nil {
		b.WriteString("\n| Metric | A | B |\n")
		b.WriteString("|--------|---|---|\n")
		fmt.Fprintf(&b, "| Big-O | %s | %s |\n", m.A.BigO, m.B.BigO)
		fmt.Fprintf(&b, "| Cyclomatic complexity | %d | %d |\n", m.A.CyclomaticComplexity, m.B.CyclomaticComplexity)
		fmt.Fprintf(&b, "| Maintainability | %.1f | %.1f |\n", m.A.Maintainability, m.B.Maintainability)
		fmt.Fprintf(&b, "| Risk | %s (%d) | %s (%d) |\n", m.A.RiskLevel, m.A.RiskScore, m.B.RiskLevel, m.B.RiskScore)
	}
	return b.String()
}

// --- Scan ---

func writeScan(w io.Writer, rep scan.Report, format string) error {
	if format == formatJSON {
		return writeJSON(w, rep)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", rep.Summary)
	for _, lc := range rep.LanguageBreakdown {
		fmt.Fprintf(&b, "  %-12s %d\n", lc.Language, lc.Files)
	}
	if len(rep.RiskyModules) > 0 {
		b.WriteString("\nRisky modules:\n")
		for _, m := range rep.RiskyModules {
			fmt.Fprintf(&b, "  %s (%s): %s\n", m.FilePath, m.Language, strings.Join(m.Reasons, ", "))
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func riskIcon(r model.RiskLevel) string {
	switch r {
	case model.RiskCritical:
		return "!! "
	case model.RiskHigh:
		return "! "
	case model.RiskMedium:
		return "* "
	default:
		return ""
	}
}
