package render

import (
	"strings"

	"shellpane/internal/buffer"

	"github.com/charmbracelet/lipgloss"
)

// Palette 给每种 Run 样式一个 lipgloss 样式。
type Palette struct {
	Output  lipgloss.Style
	Error   lipgloss.Style
	Command lipgloss.Style
	Prompt  lipgloss.Style
	// Keyword 叠加在带 Keyword 标志的 Run 上。
	Keyword lipgloss.Style
}

func DefaultPalette() Palette {
	return Palette{
		Output:  lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F")),
		Command: lipgloss.NewStyle().Foreground(lipgloss.Color("#82AAFF")),
		Prompt:  lipgloss.NewStyle().Foreground(lipgloss.Color("#7D7A85")),
		Keyword: lipgloss.NewStyle().Bold(true),
	}
}

// Style 返回 class 对应的样式。
func (p Palette) Style(c buffer.Class) lipgloss.Style {
	var s lipgloss.Style
	switch c.Base() {
	case buffer.Error:
		s = p.Error
	case buffer.Command:
		s = p.Command
	case buffer.Prompt:
		s = p.Prompt
	default:
		s = p.Output
	}
	if c.IsKeyword() {
		s = s.Inherit(p.Keyword)
	}
	return s
}

// ConsoleOptions 控制 scrollback 的渲染。
type ConsoleOptions struct {
	Palette Palette
	// Syntax 非 nil 时 Command Run 逐 token 着色。
	Syntax *Highlighter
	Width  int
}

// RenderRuns 把 Run 序列切成显示行：一行可以跨多个 Run（例如提示符后接输入），
// 最后一个 '\n' 之后的未完成行也会输出。
func RenderRuns(runs []buffer.Run, opts ConsoleOptions) []Line {
	var lines []Line
	cur := Line{}
	open := false
	for _, r := range runs {
		style := opts.Palette.Style(r.Class)
		for i, part := range strings.Split(r.Text, "\n") {
			if i > 0 {
				lines = append(lines, cur)
				cur = Line{}
				open = false
			}
			if part == "" {
				continue
			}
			open = true
			if opts.Syntax != nil && r.Class.Base() == buffer.Command {
				cur.Spans = append(cur.Spans, opts.Syntax.Spans(part, style)...)
				continue
			}
			cur.Spans = append(cur.Spans, Span{Text: part, Style: style})
		}
	}
	if open {
		lines = append(lines, cur)
	}
	return WrapLines(lines, opts.Width)
}
