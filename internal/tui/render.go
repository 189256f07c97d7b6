package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/codeq/internal/analysis"
	"github.com/sprite-ai/codeq/internal/diff"
	"github.com/sprite-ai/codeq/internal/model"
)

type lineOp int

const (
	opContext lineOp = iota
	opAdd
	opDelete
)

// renderedLine is a single line of code ready for display.
type renderedLine struct {
	Num     int // 0 in the diff pane
	Op      lineOp
	Content string

	// Syntax highlighting tokens (nil = no highlighting)
	Tokens []diff.Token
}

// renderSide produces the lines of one version. Lines listed in changed
// are marked with op.
func renderSide(code, hint string, changed []string, op lineOp) []renderedLine {
	src := analysis.SplitLines(code)
	marked := make(map[string]bool, len(changed))
	for _, l := range changed {
		marked[l] = true
	}

	highlighted := diff.HighlightLines(hint, src)
	lines := make([]renderedLine, len(src))
	for i, l := range src {
		rl := renderedLine{Num: i + 1, Content: l}
		if i < len(highlighted) {
			rl.Tokens = highlighted[i].Tokens
		}
		if marked[l] {
			rl.Op = op
		}
		lines[i] = rl
	}
	return lines
}

// renderLineDiff lists the removed lines, then the added ones.
func renderLineDiff(d model.LineDiff) []renderedLine {
	lines := make([]renderedLine, 0, len(d.Added)+len(d.Removed))
	for _, l := range d.Removed {
		lines = append(lines, renderedLine{Op: opDelete, Content: l})
	}
	for _, l := range d.Added {
		lines = append(lines, renderedLine{Op: opAdd, Content: l})
	}
	return lines
}

// renderHighlightedContent renders line content with syntax tokens.
func renderHighlightedContent(rl renderedLine, prefix string) string {
	if len(rl.Tokens) == 0 {
		return prefix + rl.Content
	}
	return prefix + diff.HighlightedLine{Tokens: rl.Tokens}.Render()
}

// styleLine applies styling to a rendered line.
func styleLine(rl renderedLine, width int) string {
	num := "    "
	if rl.Num > 0 {
		num = fmt.Sprintf("%4d", rl.Num)
	}
	lineNum := theme.lineNumber.Render(num)

	var prefix string
	var style func(string) string

	switch rl.Op {
	case opAdd:
		prefix = "+"
		style = func(s string) string { return theme.added.Render(s) }
	case opDelete:
		prefix = "-"
		style = func(s string) string { return theme.deleted.Render(s) }
	default:
		prefix = " "
	}

	var content string
	if style == nil {
		content = renderHighlightedContent(rl, prefix)
	} else {
		content = style(prefix + rl.Content)
	}

	maxContent := width - 6
	if maxContent > 0 && lipgloss.Width(content) > maxContent {
		content = truncate(prefix+rl.Content, maxContent)
		if style != nil {
			content = style(content)
		}
	}

	return lineNum + " " + content
}

// styleLineSplit renders line i of both versions side by side.
func styleLineSplit(a, b []renderedLine, i, halfWidth int) string {
	left := strings.Repeat(" ", halfWidth)
	right := ""
	if i < len(a) {
		left = padRight(styleLine(a[i], halfWidth), halfWidth)
	}
	if i < len(b) {
		right = styleLine(b[i], halfWidth)
	}
	return left + " │ " + right
}

func renderLines(lines []renderedLine, width int) string {
	if len(lines) == 0 {
		return theme.help.Render("(no lines)")
	}
	out := make([]string, len(lines))
	for i, rl := range lines {
		out[i] = styleLine(rl, width)
	}
	return strings.Join(out, "\n")
}

func renderSplit(a, b []renderedLine, width int) string {
	halfWidth := (width - 3) / 2
	n := max(len(a), len(b))
	out := make([]string, n)
	for i := range n {
		out[i] = styleLineSplit(a, b, i, halfWidth)
	}
	return strings.Join(out, "\n")
}

// renderReport is the verdict, the notes and the metrics table.
func renderReport(in Input, width int) string {
	var b strings.Builder
	c := in.Comparison

	b.WriteString(theme.title.Render(fmt.Sprintf("%s vs %s", in.NameA, in.NameB)))
	b.WriteByte('\n')

	if c.Failed() {
		b.WriteString(theme.fail.Render(string(c.Error)))
		b.WriteString("\n")
		b.WriteString(theme.note.Width(width).Render(c.Message))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(theme.verdict.Render(fmt.Sprintf("Better version: %s", c.BetterVersion)))
	b.WriteString("\n\n")

	b.WriteString(theme.section.Render("Notes"))
	b.WriteByte('\n')
	for _, n := range c.Notes {
		b.WriteString(theme.note.Width(width).Render("• " + n))
		b.WriteByte('\n')
	}

	if m := c.Metrics; m != nil {
		b.WriteByte('\n')
		b.WriteString(theme.section.Render("Metrics"))
		b.WriteByte('\n')
		fmt.Fprintf(&b, "  %-22s %-12s %-12s %s\n", "", "A", "B", "Δ")
		fmt.Fprintf(&b, "  %-22s %-12s %-12s\n", "Big-O", m.A.BigO, m.B.BigO)
		fmt.Fprintf(&b, "  %-22s %-12d %-12d %+d\n", "Cyclomatic complexity",
			m.A.CyclomaticComplexity, m.B.CyclomaticComplexity, m.Delta.CyclomaticComplexity)
		fmt.Fprintf(&b, "  %-22s %-12.1f %-12.1f\n", "Maintainability", m.A.Maintainability, m.B.Maintainability)
		fmt.Fprintf(&b, "  %-22s %-12d %-12d %+d\n", "Risk score",
			m.A.RiskScore, m.B.RiskScore, m.Delta.RiskScore)
		fmt.Fprintf(&b, "  %-22s %s %s\n", "Risk level",
			riskStyle(m.A.RiskLevel).Width(12).Render(m.A.RiskLevel.String()),
			riskStyle(m.B.RiskLevel).Width(12).Render(m.B.RiskLevel.String()))
	}

	for _, side := range []struct {
		name string
		res  *model.Result
	}{{"A", c.VersionA}, {"B", c.VersionB}} {
		if side.res == nil || len(side.res.Findings) == 0 {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(theme.section.Render("Findings in " + side.name))
		b.WriteByte('\n')
		for _, f := range side.res.Findings {
			b.WriteString(riskStyle(severityRisk(f.Severity)).Render("  " + f.Message))
			b.WriteByte('\n')
		}
	}

	return b.String()
}

func severityRisk(s model.Severity) model.RiskLevel {
	switch s {
	case model.SeverityError:
		return model.RiskHigh
	case model.SeverityWarning:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}
