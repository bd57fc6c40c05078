package process

import (
	"strings"
	"unicode/utf8"
)

// PromptSplitter 从一段 stdout 中拆出末尾的提示符。
// 只有当 chunk 的最后一行（最后一个 '\n' 之后）恰好等于某个提示符时才视为提示符。
type PromptSplitter struct {
	prompts []string
}

func NewPromptSplitter(prompts []string) PromptSplitter {
	var out []string
	for _, p := range prompts {
		if p != "" {
			out = append(out, p)
		}
	}
	return PromptSplitter{prompts: out}
}

// Split 返回 (output, prompt)。没有匹配时 prompt 为空，output 为原文。
func (s PromptSplitter) Split(chunk string) (string, string) {
	if chunk == "" || len(s.prompts) == 0 {
		return chunk, ""
	}
	tail := chunk
	head := ""
	if i := strings.LastIndexByte(chunk, '\n'); i >= 0 {
		head = chunk[:i+1]
		tail = chunk[i+1:]
	}
	for _, p := range s.prompts {
		if tail == p {
			return head, tail
		}
	}
	return chunk, ""
}

// utf8Boundary 把 b 切成完整的 UTF-8 前缀和尚未读完的尾巴。
// 尾巴最多 utf8.UTFMax-1 字节，留给下一次 Read 拼接。
func utf8Boundary(b []byte) ([]byte, []byte) {
	n := len(b)
	for i := 1; i < utf8.UTFMax && i <= n; i++ {
		c := b[n-i]
		if c < utf8.RuneSelf {
			return b, nil
		}
		if utf8.RuneStart(c) {
			if utf8.FullRune(b[n-i:]) {
				return b, nil
			}
			return b[:n-i], b[n-i:]
		}
	}
	return b, nil
}
