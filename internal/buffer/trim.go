package buffer

import "strings"

// trim 在超过上限时从头部淘汰最旧的行，返回是否发生了裁剪。
func (b *Buffer) trim() bool {
	if b.maxLines <= 0 {
		return false
	}
	excess := b.lines - b.maxLines
	if excess <= 0 {
		return false
	}
	b.lines -= b.trimLines(excess)
	b.revision++
	return true
}

// trimLines 删除头部直到第 n 个换行（含）为止的内容。完整消耗的 Run 整体
// 移除，否则截掉其前缀。返回实际删除的行数。
func (b *Buffer) trimLines(n int) int {
	removed := 0
	for len(b.runs) > 0 && removed < n {
		r := b.runs[0]
		rest, dropped, whole := cutLines(r.Text, n-removed)
		removed += dropped
		if whole || rest == "" {
			if r == b.trailing {
				b.trailing = nil
			}
			b.runs[0] = nil
			b.runs = b.runs[1:]
			continue
		}
		r.Text = rest
		if r == b.trailing {
			r.console.DropLines(dropped)
		}
	}
	return removed
}

// cutLines 跳过 text 中的前 n 个换行。whole 为 true 表示换行不足 n 个，
// 整段都应删除。
func cutLines(text string, n int) (rest string, dropped int, whole bool) {
	pos := 0
	for dropped < n {
		idx := strings.IndexByte(text[pos:], '\n')
		if idx < 0 {
			return "", dropped, true
		}
		pos += idx + 1
		dropped++
	}
	return text[pos:], dropped, false
}
