package render

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-enry/go-enry/v2"
)

const defaultSyntaxStyle = "catppuccin-mocha"

// Highlighter 用 chroma 给输入行逐 token 着色。nil Highlighter 不着色。
type Highlighter struct {
	lexer chroma.Lexer
	style *chroma.Style
	base  chroma.Colour
}

// NewHighlighter 按语言名（chroma 名称或别名）和配色创建着色器；
// 不认识的语言退回纯文本 lexer。
func NewHighlighter(language, styleName string) *Highlighter {
	lexer := lexers.Fallback
	if language != "" {
		if l := lexers.Get(language); l != nil {
			lexer = l
		}
	}
	if styleName == "" {
		styleName = defaultSyntaxStyle
	}
	style := styles.Get(styleName)
	return &Highlighter{
		lexer: chroma.Coalesce(lexer),
		style: style,
		base:  style.Get(chroma.Text).Colour,
	}
}

// Language 返回实际使用的 lexer 名称。
func (h *Highlighter) Language() string {
	if h == nil {
		return ""
	}
	return h.lexer.Config().Name
}

// DetectLanguage 根据解释器命令猜测语言：先按 shebang 规则识别，
// 识别不了时用命令名本身（chroma 会按别名再匹配一次）。
func DetectLanguage(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	name := filepath.Base(fields[0])
	if lang, _ := enry.GetLanguageByShebang([]byte("#!/usr/bin/env " + name + "\n")); lang != "" {
		return lang
	}
	return strings.ToLower(name)
}

type spanKey struct {
	colour chroma.Colour
	bold   bool
	italic bool
}

// Spans 把一行代码切成带样式的 Span，颜色叠加在 base 之上；
// 与正文同色的 token 保持 base 样式。相邻同样式的 token 合并。
func (h *Highlighter) Spans(line string, base lipgloss.Style) []Span {
	if line == "" {
		return nil
	}
	if h == nil {
		return []Span{{Text: line, Style: base}}
	}
	tokens, err := chroma.Tokenise(h.lexer, nil, line)
	if err != nil {
		return []Span{{Text: line, Style: base}}
	}

	var spans []Span
	var keys []spanKey
	remaining := line
	for _, tok := range tokens {
		if tok.Type == chroma.EOFType || remaining == "" {
			break
		}
		// lexer 可能补一个结尾换行，只取原文里有的部分。
		text := tok.Value
		if len(text) > len(remaining) {
			text = remaining
		}
		remaining = remaining[len(text):]
		if text == "" {
			continue
		}

		entry := h.style.Get(tok.Type)
		key := spanKey{bold: entry.Bold == chroma.Yes, italic: entry.Italic == chroma.Yes}
		if entry.Colour.IsSet() && entry.Colour != h.base {
			key.colour = entry.Colour
		}
		if n := len(spans); n > 0 && keys[n-1] == key {
			spans[n-1].Text += text
			continue
		}
		style := base
		if key.colour.IsSet() {
			style = style.Foreground(lipgloss.Color(key.colour.String()))
		}
		if key.bold {
			style = style.Bold(true)
		}
		if key.italic {
			style = style.Italic(true)
		}
		spans = append(spans, Span{Text: text, Style: style})
		keys = append(keys, key)
	}
	if remaining != "" {
		spans = append(spans, Span{Text: remaining, Style: base})
	}
	return spans
}
