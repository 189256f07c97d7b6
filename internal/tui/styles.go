package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/codeq/internal/model"
)

type palette struct {
	fg, dim, border, surface lipgloss.Color
	red, orange, yellow      lipgloss.Color
	green, cyan, purple      lipgloss.Color
}

// dracula matches the chroma style used for code tokens.
var dracula = palette{
	fg:      "#f8f8f2",
	dim:     "#6272a4",
	border:  "#44475a",
	surface: "#343746",
	red:     "#ff5555",
	orange:  "#ffb86c",
	yellow:  "#f1fa8c",
	green:   "#50fa7b",
	cyan:    "#8be9fd",
	purple:  "#bd93f9",
}

type styleSet struct {
	tab, tabActive lipgloss.Style
	pane           lipgloss.Style
	lineNumber     lipgloss.Style
	added, deleted lipgloss.Style
	section, title lipgloss.Style
	status         lipgloss.Style
	verdict, fail  lipgloss.Style
	note           lipgloss.Style
	help, helpKey  lipgloss.Style
	risk           map[model.RiskLevel]lipgloss.Style
}

var theme = newStyleSet(dracula)

func newStyleSet(p palette) styleSet {
	s := lipgloss.NewStyle
	return styleSet{
		tab:        s().Foreground(p.dim).Padding(0, 2),
		tabActive:  s().Foreground(p.fg).Background(p.border).Bold(true).Padding(0, 2),
		pane:       s().Border(lipgloss.RoundedBorder()).BorderForeground(p.border).Padding(0, 1),
		lineNumber: s().Foreground(p.dim).Width(4).Align(lipgloss.Right),
		added:      s().Foreground(p.green),
		deleted:    s().Foreground(p.red),
		section:    s().Foreground(p.purple).Bold(true),
		title:      s().Foreground(p.cyan).Bold(true).Padding(0, 0, 1, 0),
		status:     s().Foreground(p.fg).Background(p.surface).Padding(0, 1),
		verdict:    s().Foreground(p.green).Bold(true),
		fail:       s().Foreground(p.red).Bold(true),
		note:       s().Foreground(p.fg),
		help:       s().Foreground(p.dim),
		helpKey:    s().Foreground(p.yellow),
		risk: map[model.RiskLevel]lipgloss.Style{
			model.RiskCritical: s().Foreground(p.red).Bold(true),
			model.RiskHigh:     s().Foreground(p.orange).Bold(true),
			model.RiskMedium:   s().Foreground(p.yellow),
			model.RiskLow:      s().Foreground(p.cyan),
		},
	}
}

// riskStyle falls back to the muted help style for unknown levels.
func riskStyle(level model.RiskLevel) lipgloss.Style {
	if st, ok := theme.risk[level]; ok {
		return st
	}
	return theme.help
}
