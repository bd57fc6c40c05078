package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

const tabWidth = 8

// WrapLine 按显示宽度硬换行。console 输出保持原样，不做按词重排。
func WrapLine(line Line, width int) []Line {
	if width <= 0 {
		return []Line{expandTabs(line)}
	}
	line = expandTabs(line)
	if runewidth.StringWidth(line.Text()) <= width {
		return []Line{line}
	}

	out := []Line{}
	cur := Line{Style: line.Style}
	col := 0
	for _, sp := range line.Spans {
		var sb strings.Builder
		for _, r := range sp.Text {
			rw := runewidth.RuneWidth(r)
			if col > 0 && col+rw > width {
				if sb.Len() > 0 {
					cur.Spans = append(cur.Spans, Span{Text: sb.String(), Style: sp.Style})
					sb.Reset()
				}
				out = append(out, cur)
				cur = Line{Style: line.Style}
				col = 0
			}
			sb.WriteRune(r)
			col += rw
		}
		if sb.Len() > 0 {
			cur.Spans = append(cur.Spans, Span{Text: sb.String(), Style: sp.Style})
		}
	}
	if len(cur.Spans) > 0 || len(out) == 0 {
		out = append(out, cur)
	}
	return out
}

// WrapLines 对每一行执行 WrapLine。
func WrapLines(lines []Line, width int) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, WrapLine(l, width)...)
	}
	return out
}

func expandTabs(line Line) Line {
	if !strings.Contains(line.Text(), "\t") {
		return line
	}
	out := Line{Style: line.Style, Spans: make([]Span, 0, len(line.Spans))}
	col := 0
	for _, sp := range line.Spans {
		var sb strings.Builder
		for _, r := range sp.Text {
			if r == '\t' {
				n := tabWidth - col%tabWidth
				sb.WriteString(strings.Repeat(" ", n))
				col += n
				continue
			}
			sb.WriteRune(r)
			col += runewidth.RuneWidth(r)
		}
		out.Spans = append(out.Spans, Span{Text: sb.String(), Style: sp.Style})
	}
	return out
}
