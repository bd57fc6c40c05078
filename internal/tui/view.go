package tui

import (
	"fmt"
	"strings"

	"shellpane/internal/tui/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85"))
	modeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1F1D2B")).Background(lipgloss.Color("#FFB454")).Padding(0, 1)
	promptStyle = render.DefaultPalette().Prompt
)

func (m *Model) View() string {
	parts := []string{m.renderHeader(), m.viewport.View()}
	for _, l := range m.promptHead {
		parts = append(parts, promptStyle.Render(l))
	}
	if m.commands.Open() {
		parts = append(parts, m.commands.View(m.width))
	}
	parts = append(parts, m.textarea.View(), m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "shellpane"
	}
	left := titleStyle.Render(title)
	if m.copyMode {
		left = lipgloss.JoinHorizontal(lipgloss.Top, left, " ", modeStyle.Render("COPY"))
	}
	info := []string{}
	if m.sessionID != "" {
		info = append(info, shortID(m.sessionID))
	}
	if limit := m.buf.MaxLines(); limit > 0 {
		info = append(info, fmt.Sprintf("%d/%d lines", m.buf.LineCount(), limit))
	} else {
		info = append(info, fmt.Sprintf("%d lines", m.buf.LineCount()))
	}
	right := dimStyle.Render(strings.Join(info, " • "))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderStatus() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	line := m.status.Render(width, m.spin.View())
	text := render.LinesToStrings([]render.Line{line})[0]
	used := lipgloss.Width(text)
	if m.notice != "" && used+3 < width {
		notice := runewidth.Truncate(m.notice, width-used-3, "…")
		if used > 0 {
			text += "   "
		}
		text += dimStyle.Render(notice)
	}
	return text
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
