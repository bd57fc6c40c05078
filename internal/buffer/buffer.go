package buffer

import (
	"strings"

	"shellpane/internal/vconsole"
)

// Class 标记一段 Run 的语义样式；Keyword 是可叠加的标志位。
type Class uint8

const (
	Output Class = 1 << iota
	Error
	Command
	Prompt
	Keyword
)

// Base 去掉 Keyword 标志后的样式。
func (c Class) Base() Class {
	return c &^ Keyword
}

// IsKeyword 报告是否带 Keyword 标志。
func (c Class) IsKeyword() bool {
	return c&Keyword != 0
}

// IsOutput 零值视为普通输出。
func (c Class) IsOutput() bool {
	return c == 0 || c == Output
}

func (c Class) String() string {
	var name string
	switch c.Base() {
	case 0, Output:
		name = "output"
	case Error:
		name = "error"
	case Command:
		name = "command"
	case Prompt:
		name = "prompt"
	default:
		name = "unknown"
	}
	if c.IsKeyword() {
		name += "+keyword"
	}
	return name
}

// Run 是 scrollback 中一段已渲染的文本。
type Run struct {
	Class Class
	Text  string
}

type run struct {
	Run
	// console 只在 trailing output run 上存在，保留光标状态供下一次输出改写。
	console *vconsole.Console
}

// Buffer 是行导向的 scrollback 缓冲：一串带样式的 Run，外加至多一个
// trailing output run。所有方法都假定单一写者，调用方负责串行化。
type Buffer struct {
	runs     []*run
	lines    int
	maxLines int
	trailing *run
	epoch    uint64
	revision uint64
}

// New 创建空缓冲；maxLines <= 0 表示不限制。
func New(maxLines int) *Buffer {
	return &Buffer{maxLines: maxLines}
}

// Append 写入一段文本。toTop 为 true 时插到最前（用于回放历史）。
// 返回 false 表示写入后触发了裁剪，继续往顶部插入已无意义。
func (b *Buffer) Append(text string, class Class, toTop bool) bool {
	if class.IsOutput() && !toTop && b.trailing != nil {
		// 追加到已有的尾部输出上：新内容可能用 \r \b 改写前一次的输出，
		// 所以交给 trailing run 自己的 Console 继续解释。
		old := countLines(b.trailing.Text)
		b.trailing.console.Submit(vconsole.Normalize(text))
		b.trailing.Text = ensureNewLine(b.trailing.console.String())
		b.lines += countLines(b.trailing.Text) - old
		b.revision++
		return !b.trim()
	}

	text = vconsole.Consolify(text)
	if text == "" {
		return true
	}
	r := &run{Run: Run{Class: class, Text: text}}
	if class.IsOutput() {
		r.Class = Output
		console := vconsole.New()
		console.Submit(text)
		snapshot := console.String()
		// 尾部追加总是补换行：若下一段仍是输出，会走 trailing 分支用 Console
		// 内容覆盖掉这个换行。往顶部插入时，只有紧邻的下一段不是输出才补，
		// 否则两段输出应当直接拼接。
		if !toTop || len(b.runs) == 0 || !b.runs[0].Class.IsOutput() {
			snapshot = ensureNewLine(snapshot)
		}
		r.Text = snapshot
		if !toTop {
			r.console = console
		}
	}

	if toTop {
		b.runs = append([]*run{r}, b.runs...)
		b.trailing = nil
	} else {
		b.runs = append(b.runs, r)
		if r.console != nil {
			b.trailing = r
		} else {
			b.trailing = nil
		}
	}
	b.lines += countLines(r.Text)
	b.revision++
	return !b.trim()
}

// SetMaxLines 修改行数上限并立即按新上限裁剪，返回裁掉的行数。
func (b *Buffer) SetMaxLines(maxLines int) int {
	b.maxLines = maxLines
	before := b.lines
	b.trim()
	return before - b.lines
}

// MaxLines 返回当前上限。
func (b *Buffer) MaxLines() int {
	return b.maxLines
}

// Clear 丢弃全部内容与 trailing 状态，并推进 epoch 让进行中的回放停止。
func (b *Buffer) Clear() {
	b.runs = nil
	b.lines = 0
	b.trailing = nil
	b.epoch++
	b.revision++
}

// Epoch 每次 Clear 加一。
func (b *Buffer) Epoch() uint64 {
	return b.epoch
}

// Revision 每次内容变化加一，渲染层据此判断是否需要重绘。
func (b *Buffer) Revision() uint64 {
	return b.revision
}

// LineCount 返回增量维护的行数。
func (b *Buffer) LineCount() int {
	return b.lines
}

// Recount 扫描全部内容重新计算行数，用于校验增量计数。
func (b *Buffer) Recount() int {
	n := 0
	for _, r := range b.runs {
		n += countLines(r.Text)
	}
	return n
}

// HasTrailing 报告当前是否存在 trailing output run。
func (b *Buffer) HasTrailing() bool {
	return b.trailing != nil
}

// Len 返回 Run 个数。
func (b *Buffer) Len() int {
	return len(b.runs)
}

// Runs 返回内容快照。
func (b *Buffer) Runs() []Run {
	out := make([]Run, 0, len(b.runs))
	for _, r := range b.runs {
		out = append(out, r.Run)
	}
	return out
}

// Text 返回全部内容拼接后的纯文本。
func (b *Buffer) Text() string {
	var sb strings.Builder
	for _, r := range b.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func ensureNewLine(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func countLines(s string) int {
	return strings.Count(s, "\n")
}
