package render

import (
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Viewport 包装 bubbles viewport，缓存上一次的行以跳过无变化的刷新。
// 是否贴底由调用方决定（滚动经过 debounce 合并）。
type Viewport struct {
	viewport.Model
	lastLines []string
}

func NewViewport(width, height int) Viewport {
	return Viewport{Model: viewport.New(width, height)}
}

// Resize 更新宽高；宽度变化时丢弃缓存。
func (v *Viewport) Resize(width, height int) {
	if v == nil {
		return
	}
	if v.Width != width {
		v.Invalidate()
	}
	v.Width = width
	v.Height = height
}

// HandleUpdate 代理 bubbles 的 Update（鼠标滚轮等）。
func (v *Viewport) HandleUpdate(msg tea.Msg) tea.Cmd {
	if v == nil {
		return nil
	}
	var cmd tea.Cmd
	v.Model, cmd = v.Model.Update(msg)
	return cmd
}

// SetLines 更新内容，返回内容是否变化。
func (v *Viewport) SetLines(lines []string) bool {
	if v == nil {
		return false
	}
	if v.lastLines != nil && slices.Equal(lines, v.lastLines) {
		return false
	}
	v.lastLines = append([]string{}, lines...)
	v.SetContent(strings.Join(lines, "\n"))
	return true
}

func (v *Viewport) ScrollPageDown() {
	if v != nil {
		v.ViewDown()
	}
}

func (v *Viewport) ScrollPageUp() {
	if v != nil {
		v.ViewUp()
	}
}

func (v *Viewport) ScrollLineDown(n int) {
	if v != nil {
		v.LineDown(n)
	}
}

func (v *Viewport) ScrollLineUp(n int) {
	if v != nil {
		v.LineUp(n)
	}
}

// Invalidate 清空已缓存的行，强制下次 SetLines 重新设置内容。
func (v *Viewport) Invalidate() {
	if v == nil {
		return
	}
	v.lastLines = nil
}
