// Package tui implements the Bubble Tea comparison viewer.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sprite-ai/codeq/internal/model"
)

type pane int

const (
	paneReport pane = iota
	paneA
	paneB
	paneDiff
	paneCount
)

var paneNames = [paneCount]string{"Report", "A", "B", "Diff"}

// Input is what the viewer shows: both versions as submitted and the
// comparison computed from them.
type Input struct {
	NameA, NameB string
	CodeA, CodeB string
	Language     string // highlighting hint, may be empty
	Comparison   *model.Comparison
}

// Model is the top-level Bubble Tea model for the comparison viewer.
type Model struct {
	in Input

	// UI state
	width  int
	height int
	ready  bool

	pane     pane
	split    bool
	showHelp bool

	viewport viewport.Model

	// Rendered lines per code pane
	lines [paneCount][]renderedLine
}

// New creates a viewer model.
func New(in Input) Model {
	if in.NameA == "" {
		in.NameA = "A"
	}
	if in.NameB == "" {
		in.NameB = "B"
	}
	if in.Comparison == nil {
		in.Comparison = &model.Comparison{}
	}

	hintA, hintB := in.Language, in.Language
	if hintA == "" {
		hintA, hintB = in.NameA, in.NameB
	}

	m := Model{in: in}
	d := in.Comparison.Diff
	m.lines[paneA] = renderSide(in.CodeA, hintA, d.Removed, opDelete)
	m.lines[paneB] = renderSide(in.CodeB, hintB, d.Added, opAdd)
	m.lines[paneDiff] = renderLineDiff(d)
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		vpHeight := max(m.height-5, 1) // tabs + status bar + borders
		vpWidth := max(m.width-4, 10)
		if !m.ready {
			m.viewport = viewport.New(vpWidth, vpHeight)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = vpHeight
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.showHelp {
			if key.Matches(msg, keys.Help, keys.Quit) {
				m.showHelp = false
			}
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Down):
			m.viewport.SetYOffset(m.viewport.YOffset + 1)

		case key.Matches(msg, keys.Up):
			m.viewport.SetYOffset(m.viewport.YOffset - 1)

		case key.Matches(msg, keys.PageDown):
			m.viewport.SetYOffset(m.viewport.YOffset + m.viewport.Height)

		case key.Matches(msg, keys.PageUp):
			m.viewport.SetYOffset(m.viewport.YOffset - m.viewport.Height)

		case key.Matches(msg, keys.Top):
			m.viewport.GotoTop()

		case key.Matches(msg, keys.Bottom):
			m.viewport.GotoBottom()

		case key.Matches(msg, keys.NextPane):
			m.pane = (m.pane + 1) % paneCount
			m.refresh()
			m.viewport.GotoTop()

		case key.Matches(msg, keys.PrevPane):
			m.pane = (m.pane + paneCount - 1) % paneCount
			m.refresh()
			m.viewport.GotoTop()

		case key.Matches(msg, keys.NextChange):
			m.jumpToNextChange()

		case key.Matches(msg, keys.PrevChange):
			m.jumpToPrevChange()

		case key.Matches(msg, keys.Toggle):
			m.split = !m.split
			m.refresh()

		case key.Matches(msg, keys.Help):
			m.showHelp = true
		}
	}

	return m, nil
}

// refresh re-renders the current pane into the viewport.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.content(m.viewport.Width))
}

func (m Model) content(width int) string {
	switch {
	case m.pane == paneReport:
		return renderReport(m.in, width)
	case m.splitActive():
		return renderSplit(m.lines[paneA], m.lines[paneB], width)
	default:
		return renderLines(m.lines[m.pane], width)
	}
}

func (m Model) splitActive() bool {
	return m.split && (m.pane == paneA || m.pane == paneB)
}

// isChange reports whether line i of the current pane is added or
// removed. In split view either side counts.
func (m Model) isChange(i int) bool {
	if m.splitActive() {
		return isChangeAt(m.lines[paneA], i) || isChangeAt(m.lines[paneB], i)
	}
	return isChangeAt(m.lines[m.pane], i)
}

func (m Model) lineCount() int {
	if m.splitActive() {
		return max(len(m.lines[paneA]), len(m.lines[paneB]))
	}
	return len(m.lines[m.pane])
}

func isChangeAt(lines []renderedLine, i int) bool {
	return i < len(lines) && lines[i].Op != opContext
}

func (m *Model) jumpToNextChange() {
	for i := m.viewport.YOffset + 1; i < m.lineCount(); i++ {
		if m.isChange(i) {
			m.viewport.SetYOffset(i)
			return
		}
	}
}

func (m *Model) jumpToPrevChange() {
	for i := m.viewport.YOffset - 1; i >= 0; i-- {
		if m.isChange(i) {
			m.viewport.SetYOffset(i)
			return
		}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready || m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	tabs := m.renderTabs()
	body := theme.pane.Width(m.width - 2).Render(m.viewport.View())
	return lipgloss.JoinVertical(lipgloss.Left, tabs, body, m.renderStatusBar())
}

func (m Model) renderTabs() string {
	parts := make([]string, paneCount)
	for p := range paneCount {
		label := paneNames[p]
		switch p {
		case paneA:
			label += " " + m.in.NameA
		case paneB:
			label += " " + m.in.NameB
		}
		if p == m.pane {
			parts[p] = theme.tabActive.Render(label)
		} else {
			parts[p] = theme.tab.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m Model) renderStatusBar() string {
	c := m.in.Comparison

	left := " " + paneNames[m.pane]
	if m.pane != paneReport {
		left += fmt.Sprintf("  Line %d/%d", min(m.viewport.YOffset+1, max(m.lineCount(), 1)), m.lineCount())
	}

	verdict := "no verdict"
	switch {
	case c.Failed():
		verdict = string(c.Error)
	case c.BetterVersion != "":
		verdict = "better: " + string(c.BetterVersion)
	}

	mode := "single"
	if m.split {
		mode = "split"
	}

	right := fmt.Sprintf("+%d -%d  %s  %s  ? help ", len(c.Diff.Added), len(c.Diff.Removed), verdict, mode)

	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	return theme.status.Width(m.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(theme.title.Render("codeq compare: Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, kb := range []key.Binding{
		keys.Up, keys.Down, keys.PageUp, keys.PageDown, keys.Top, keys.Bottom,
		keys.NextPane, keys.PrevPane, keys.NextChange, keys.PrevChange,
		keys.Toggle, keys.Help, keys.Quit,
	} {
		h := kb.Help()
		fmt.Fprintf(&b, "  %s  %s\n", theme.helpKey.Width(12).Render(h.Key), h.Desc)
	}

	b.WriteString("\n")
	b.WriteString(theme.help.Render("Press ? to close help"))

	return b.String()
}

// Run starts the viewer and blocks until the user quits.
func Run(in Input) error {
	p := tea.NewProgram(New(in), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
