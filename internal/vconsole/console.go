package vconsole

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Console 把带控制字符的输出折叠成终端最终看到的文本。
//
// 只有最后一行（尚未遇到 \n 的行）是可写的：\r 把光标移回行首，之后的字符
// 覆盖已有内容；\b 左移一格但不擦除；\n 结束当前行。光标状态在多次 Submit
// 之间保留，因此后续 chunk 可以继续改写前一次的输出。
type Console struct {
	lines []string
	cur   []rune
	col   int
}

// New 创建空的 Console。
func New() *Console {
	return &Console{}
}

// Submit 解释一段原始文本。
func (c *Console) Submit(text string) {
	if c == nil || text == "" {
		return
	}
	for _, r := range text {
		switch r {
		case '\n':
			c.lines = append(c.lines, string(c.cur))
			c.cur = c.cur[:0]
			c.col = 0
		case '\r':
			c.col = 0
		case '\b':
			if c.col > 0 {
				c.col--
			}
		default:
			c.put(r)
		}
	}
}

func (c *Console) put(r rune) {
	for len(c.cur) < c.col {
		c.cur = append(c.cur, ' ')
	}
	if c.col < len(c.cur) {
		c.cur[c.col] = r
	} else {
		c.cur = append(c.cur, r)
	}
	c.col++
}

// String 返回已完成的行与当前行，用 \n 连接。
func (c *Console) String() string {
	if c == nil {
		return ""
	}
	if len(c.lines) == 0 {
		return string(c.cur)
	}
	var b strings.Builder
	for _, line := range c.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString(string(c.cur))
	return b.String()
}

// LineCount 返回已完成（以 \n 结束）的行数。
func (c *Console) LineCount() int {
	if c == nil {
		return 0
	}
	return len(c.lines)
}

// Column 返回当前光标列。
func (c *Console) Column() int {
	if c == nil {
		return 0
	}
	return c.col
}

// DropLines 丢弃最旧的 n 行已完成内容，当前行与光标不受影响。
// 用于 scrollback 裁剪后保持与渲染内容一致。
func (c *Console) DropLines(n int) {
	if c == nil || n <= 0 {
		return
	}
	if n >= len(c.lines) {
		c.lines = nil
		return
	}
	c.lines = append([]string(nil), c.lines[n:]...)
}

// Normalize 只做清洗：\r\n 折叠为 \n，去掉 ANSI 转义序列，不解释 \r 与 \b。
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return ansi.Strip(text)
}

// Consolify 先 Normalize，再用一个新的 Console 解释控制字符。
func Consolify(text string) string {
	text = Normalize(text)
	if text == "" {
		return ""
	}
	c := New()
	c.Submit(text)
	return c.String()
}
