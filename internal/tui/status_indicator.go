package tui

import (
	"fmt"
	"time"

	"shellpane/internal/tui/render"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// StatusIndicatorState 枚举状态行可显示的状态。
type StatusIndicatorState int

const (
	// StatusIdle 解释器尚未启动，不显示状态行。
	StatusIdle StatusIndicatorState = iota
	// StatusBusy 已发送输入、尚未看到提示符，计时器累加。
	StatusBusy
	// StatusReady 解释器在提示符处等待输入。
	StatusReady
	// StatusRestoring 正在回放会话历史，计时器累加。
	StatusRestoring
	// StatusExited 子进程已结束。
	StatusExited
)

func (s StatusIndicatorState) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusBusy:
		return "busy"
	case StatusReady:
		return "ready"
	case StatusRestoring:
		return "restoring"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

func (s StatusIndicatorState) defaultHeader() string {
	switch s {
	case StatusBusy:
		return "Running"
	case StatusReady:
		return "Ready"
	case StatusRestoring:
		return "Restoring session"
	case StatusExited:
		return "Exited"
	default:
		return ""
	}
}

func (s StatusIndicatorState) tracksElapsed() bool {
	return s == StatusBusy || s == StatusRestoring
}

func (s StatusIndicatorState) valid() bool {
	return s >= StatusIdle && s <= StatusExited
}

var leadStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

// StatusIndicator 维护状态行：spinner + 标题 + 计时/按键提示。
type StatusIndicator struct {
	header string
	state  StatusIndicatorState
	// prev 是进入当前状态之前的状态。
	prev StatusIndicatorState

	elapsedRunning time.Duration
	lastResumeAt   time.Time
	paused         bool

	clock func() time.Time
}

// NewStatusIndicator 创建状态行，clock 为 nil 时使用 time.Now。
func NewStatusIndicator(state StatusIndicatorState, clock func() time.Time) *StatusIndicator {
	if clock == nil {
		clock = time.Now
	}
	if !state.valid() {
		state = StatusIdle
	}
	w := &StatusIndicator{
		header:       state.defaultHeader(),
		state:        state,
		clock:        clock,
		lastResumeAt: clock(),
		paused:       !state.tracksElapsed(),
	}
	return w
}

func (w *StatusIndicator) State() StatusIndicatorState {
	if w == nil {
		return StatusIdle
	}
	return w.state
}

// UpdateHeader 动态更新标题文本。
func (w *StatusIndicator) UpdateHeader(header string) {
	if w == nil {
		return
	}
	w.header = header
}

// SetState 切换状态；进入计时状态时计时从零开始。
func (w *StatusIndicator) SetState(state StatusIndicatorState) {
	if w == nil || !state.valid() {
		return
	}
	if state == w.state {
		return
	}
	now := w.clock()
	if state.tracksElapsed() {
		w.elapsedRunning = 0
		w.lastResumeAt = now
		w.paused = false
	} else {
		w.pauseTimerAt(now)
	}
	w.prev = w.state
	w.state = state
	w.header = state.defaultHeader()
}

// ElapsedSeconds 返回当前状态累计的秒数。
func (w *StatusIndicator) ElapsedSeconds() uint64 {
	if w == nil {
		return 0
	}
	return w.elapsedSecondsAt(w.clock())
}

// Visible 报告是否需要绘制状态行。
func (w *StatusIndicator) Visible() bool {
	return w != nil && w.state != StatusIdle
}

// Render 绘制状态行。frame 是当前 spinner 帧，只在计时状态下使用。
func (w *StatusIndicator) Render(width int, frame string) render.Line {
	if !w.Visible() || width <= 0 {
		return render.Line{}
	}
	lead := "•"
	switch w.state {
	case StatusBusy, StatusRestoring:
		if frame != "" {
			lead = frame
		}
	case StatusExited:
		lead = "■"
	}
	spans := []render.Span{{Text: lead, Style: leadStyle}}
	if w.header != "" {
		spans = append(spans, render.Span{Text: " "}, render.Span{Text: w.header})
	}
	if hint := w.hint(); hint != "" {
		spans = append(spans, render.Span{Text: " "}, render.Span{
			Text:  hint,
			Style: lipgloss.NewStyle().Faint(true),
		})
	}
	return render.Line{Spans: clampSpans(spans, width)}
}

func (w *StatusIndicator) hint() string {
	secs := w.ElapsedSeconds()
	elapsed := fmtElapsedCompact(secs)
	switch w.state {
	case StatusReady:
		// 上一条命令的耗时，不足一秒不显示。
		if w.prev == StatusBusy && secs > 0 {
			return fmt.Sprintf("(took %s)", elapsed)
		}
		return ""
	case StatusBusy:
		return fmt.Sprintf("(%s • ctrl+c to interrupt)", elapsed)
	case StatusRestoring:
		return fmt.Sprintf("(%s • ctrl+l to discard)", elapsed)
	case StatusExited:
		return "(ctrl+d to quit)"
	default:
		return ""
	}
}

func (w *StatusIndicator) pauseTimerAt(now time.Time) {
	if w.paused {
		return
	}
	w.elapsedRunning += now.Sub(w.lastResumeAt)
	w.paused = true
}

func (w *StatusIndicator) elapsedDurationAt(now time.Time) time.Duration {
	if w.paused {
		return w.elapsedRunning
	}
	return w.elapsedRunning + now.Sub(w.lastResumeAt)
}

func (w *StatusIndicator) elapsedSecondsAt(now time.Time) uint64 {
	return uint64(w.elapsedDurationAt(now).Seconds())
}

// fmtElapsedCompact 将秒数格式化为友好字符串。
func fmtElapsedCompact(elapsedSecs uint64) string {
	switch {
	case elapsedSecs < 60:
		return fmt.Sprintf("%ds", elapsedSecs)
	case elapsedSecs < 3600:
		minutes := elapsedSecs / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dm %02ds", minutes, seconds)
	default:
		hours := elapsedSecs / 3600
		minutes := (elapsedSecs % 3600) / 60
		seconds := elapsedSecs % 60
		return fmt.Sprintf("%dh %02dm %02ds", hours, minutes, seconds)
	}
}

func clampSpans(spans []render.Span, width int) []render.Span {
	if width <= 0 {
		return nil
	}
	remaining := width
	out := make([]render.Span, 0, len(spans))
	for _, sp := range spans {
		if remaining <= 0 {
			break
		}
		tw := runewidth.StringWidth(sp.Text)
		if tw <= remaining {
			out = append(out, sp)
			remaining -= tw
			continue
		}
		text := runewidth.Truncate(sp.Text, remaining, "")
		if text != "" {
			sp.Text = text
			out = append(out, sp)
			remaining = 0
		}
	}
	return out
}
