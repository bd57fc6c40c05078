package meta

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

var (
	nameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C4A1FF"))
	descStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	highlightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EBCB8B"))
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#2F2A3D"))
)

// View 渲染弹窗内容（不含外围边框）。
func (s *State) View(width int) string {
	if !s.Open() {
		return ""
	}
	contentWidth := width
	if contentWidth <= 20 {
		contentWidth = 20
	}
	var lines []string
	for _, entry := range s.visibleEntries(contentWidth) {
		for _, line := range entry.lines {
			if entry.selected {
				line = selectedStyle.Render(line)
			}
			lines = append(lines, line)
		}
	}
	return lipgloss.NewStyle().Width(contentWidth).Render(strings.Join(lines, "\n"))
}

// Height 返回弹窗当前占用的行数。
func (s *State) Height(width int) int {
	if !s.Open() {
		return 0
	}
	return lipgloss.Height(s.View(width))
}

type renderedEntry struct {
	lines    []string
	selected bool
	height   int
}

func (s *State) visibleEntries(contentWidth int) []renderedEntry {
	if len(s.matches) == 0 {
		return []renderedEntry{{lines: []string{"no matches"}, height: 1}}
	}

	nameWidth, descWidth := computeColumnWidths(contentWidth, s.matches)
	entries := make([]renderedEntry, 0, len(s.matches))
	for idx, m := range s.matches {
		name := applyHighlights(m.item.DisplayName(), m.highlights)
		nameCell := lipgloss.NewStyle().Width(nameWidth).Render(nameStyle.Render(name))
		pad := strings.Repeat(" ", lipgloss.Width(nameCell))
		descLines := wrapLine(m.item.Description, descWidth)
		lines := make([]string, 0, len(descLines))
		for i, raw := range descLines {
			lead := pad
			if i == 0 {
				lead = nameCell
			}
			lines = append(lines, fmt.Sprintf("%s  %s", lead, descStyle.Render(raw)))
		}
		entries = append(entries, renderedEntry{
			lines:    lines,
			height:   len(lines),
			selected: idx == s.selected,
		})
	}
	return clampByHeight(entries, s.maxLines, s.selected)
}

func computeColumnWidths(contentWidth int, matches []match) (int, int) {
	maxName := 10
	for _, m := range matches {
		if w := lipgloss.Width(m.item.DisplayName()); w > maxName {
			maxName = w
		}
	}
	if maxName > contentWidth-12 {
		maxName = contentWidth - 12
	}
	descWidth := contentWidth - maxName - 2
	if descWidth < 8 {
		descWidth = 8
	}
	return maxName, descWidth
}

// clampByHeight 取一段不超过 maxLines 行、且包含选中项的连续条目。
func clampByHeight(entries []renderedEntry, maxLines int, selected int) []renderedEntry {
	if maxLines <= 0 {
		return entries
	}
	for start := 0; start < len(entries); start++ {
		height := 0
		end := start
		for end < len(entries) && height+entries[end].height <= maxLines {
			height += entries[end].height
			end++
		}
		if selected < end {
			return entries[start:end]
		}
	}
	return []renderedEntry{entries[selected]}
}

func wrapLine(line string, width int) []string {
	if width <= 0 || runewidth.StringWidth(line) <= width {
		return []string{line}
	}
	var out []string
	current := ""
	for _, word := range strings.Fields(line) {
		switch {
		case current == "":
			current = word
		case runewidth.StringWidth(current)+1+runewidth.StringWidth(word) <= width:
			current += " " + word
		default:
			out = append(out, current)
			current = word
		}
	}
	if current != "" {
		out = append(out, current)
	}
	if len(out) == 0 {
		return []string{line}
	}
	return out
}

func applyHighlights(name string, indexes []int) string {
	if len(indexes) == 0 {
		return name
	}
	marked := map[int]bool{}
	for _, idx := range indexes {
		marked[idx] = true
	}
	var sb strings.Builder
	for i, r := range []rune(name) {
		if marked[i] {
			sb.WriteString(highlightStyle.Render(string(r)))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
