package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"shellpane/internal/buffer"
	"shellpane/internal/debounce"
	"shellpane/internal/events"
	"shellpane/internal/history"
	"shellpane/internal/logger"
	"shellpane/internal/replay"
	"shellpane/internal/tui/meta"
	"shellpane/internal/tui/render"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var log = logger.Named("tui")

const (
	minConsoleWidth = 30
	inputQueueSize  = 64
	maxInputLines   = 6
	eventDrainLimit = 64
)

// Backend 是解释器进程在界面侧的最小接口；*process.Process 满足它。
type Backend interface {
	SendInput(ctx context.Context, line string) error
	Interrupt() error
	Resize(cols, rows int) error
}

type Options struct {
	Backend Backend
	Events  <-chan events.ConsoleEvent
	// Store 为 nil 时不记录 console action。
	Store *history.Store
	// Replay 是恢复会话时要回放的 action（旧到新）。
	Replay      []history.Action
	MaxLines    int
	SyntaxColor bool
	// Language 是输入着色用的 chroma 语言名，认不出时按纯文本处理。
	Language    string
	ScrollDelay time.Duration
	Title       string
	SessionID   string
	// CopyText 默认写系统剪贴板。
	CopyText func(string) error
	Clock    func() time.Time
}

type consoleEventsMsg struct {
	Events []events.ConsoleEvent
}

type eventsClosedMsg struct{}

type replayStepMsg struct{}

type scrollMsg struct{}

type copyResultMsg struct {
	Lines int
	Err   error
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	backend  Backend
	eventsCh <-chan events.ConsoleEvent
	store    *history.Store

	buf       *buffer.Buffer
	replayer  *replay.Replayer
	scroll    *debounce.Coalescer
	scrollCh  chan struct{}
	inputCh   chan string
	closeOnce sync.Once

	textarea textarea.Model
	viewport render.Viewport
	spin     spinner.Model
	status   *StatusIndicator
	history  promptHistory
	palette  render.Palette
	commands *meta.State
	popupH   int

	// promptLabel 是当前提示符（已 consolify），多行时前几行显示在输入行上方。
	promptLabel string
	promptHead  []string
	// promptQueue 与已排队的输入一一对应，收到 input 回显时取出写进 scrollback。
	promptQueue   []string
	pendingPrompt string
	pendingInput  string

	syntaxColor bool
	highlighter *render.Highlighter
	copyMode    bool
	copyText    func(string) error
	exited      bool
	exitCode    int
	notice      string

	title       string
	sessionID   string
	width       int
	height      int
	consoleCols int
	consoleRows int
	rendered    uint64
	dirty       bool
}

func New(opts Options) *Model {
	ti := textarea.New()
	ti.Prompt = ""
	ti.Placeholder = ""
	ti.CharLimit = 0
	ti.ShowLineNumbers = false
	ti.SetWidth(80)
	ti.SetHeight(1)
	ti.KeyMap.InsertNewline.SetEnabled(false)
	ti.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	// 帧保持纯文本，由状态行统一着色和计算宽度。
	spin.Style = lipgloss.NewStyle()

	copyText := opts.CopyText
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctx:         ctx,
		cancel:      cancel,
		backend:     opts.Backend,
		eventsCh:    opts.Events,
		store:       opts.Store,
		buf:         buffer.New(opts.MaxLines),
		scrollCh:    make(chan struct{}, 1),
		inputCh:     make(chan string, inputQueueSize),
		textarea:    ti,
		viewport:    render.NewViewport(80, 20),
		spin:        spin,
		palette:     render.DefaultPalette(),
		commands:    meta.NewState(meta.Options{}),
		syntaxColor: opts.SyntaxColor,
		highlighter: render.NewHighlighter(opts.Language, ""),
		copyText:    copyText,
		title:       opts.Title,
		sessionID:   opts.SessionID,
		dirty:       true,
	}
	m.scroll = debounce.New(opts.ScrollDelay, m.requestScroll)

	initial := StatusIdle
	if m.backend != nil {
		initial = StatusBusy
	}
	if len(opts.Replay) > 0 {
		initial = StatusRestoring
		m.replayer = replay.New(m.buf, opts.Replay)
		var inputs []string
		for _, a := range opts.Replay {
			if a.Type == history.Input {
				inputs = append(inputs, a.Data)
			}
		}
		m.history.Set(inputs)
	}
	m.status = NewStatusIndicator(initial, opts.Clock)

	if m.backend != nil {
		go m.sendLoop()
	}
	return m
}

func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listenEvents(), m.listenScroll(), m.spin.Tick, textarea.Blink}
	if m.replayer != nil {
		cmds = append(cmds, replayStep)
	}
	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m.finish(cmds...)
	case consoleEventsMsg:
		for _, evt := range msg.Events {
			m.handleEvent(evt)
		}
		cmds = append(cmds, m.listenEvents())
		return m.finish(cmds...)
	case eventsClosedMsg:
		log.Debugf("console event stream closed")
		m.eventsCh = nil
		return m.finish(cmds...)
	case replayStepMsg:
		cmds = append(cmds, m.stepReplay())
		return m.finish(cmds...)
	case scrollMsg:
		if !m.copyMode {
			m.flush()
			m.viewport.GotoBottom()
		}
		cmds = append(cmds, m.listenScroll())
		return m.finish(cmds...)
	case copyResultMsg:
		if msg.Err != nil {
			m.notice = fmt.Sprintf("copy failed: %v", msg.Err)
			log.Warnf("copy to clipboard: %v", msg.Err)
		} else {
			m.notice = fmt.Sprintf("copied %d lines", msg.Lines)
		}
		return m.finish(cmds...)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		return m.finish(cmds...)
	case tea.MouseMsg:
		cmds = append(cmds, m.viewport.HandleUpdate(msg))
		return m.finish(cmds...)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	return m.finish(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if m.copyMode {
		switch msg.String() {
		case "y", "enter":
			cmds = append(cmds, m.copyBuffer())
			m.setCopyMode(false)
		case "esc", "q", "ctrl+s", "ctrl+c":
			m.setCopyMode(false)
		case "up", "k":
			m.viewport.ScrollLineUp(1)
		case "down", "j":
			m.viewport.ScrollLineDown(1)
		default:
			m.handleScrollKeys(msg)
		}
		return m.finish(cmds...)
	}
	if act, ok := m.commands.HandleKey(msg.String()); ok {
		cmds = append(cmds, m.applyCommandAction(act))
		return m.finish(cmds...)
	}
	if m.handleScrollKeys(msg) {
		return m.finish(cmds...)
	}

	switch msg.String() {
	case "ctrl+d":
		if m.exited || m.textarea.Value() == "" {
			cmds = append(cmds, tea.Quit)
		}
		return m.finish(cmds...)
	case "ctrl+c":
		if m.exited || m.backend == nil {
			cmds = append(cmds, tea.Quit)
			return m.finish(cmds...)
		}
		m.textarea.Reset()
		m.history.ResetBrowsing()
		if err := m.backend.Interrupt(); err != nil {
			log.Warnf("interrupt: %v", err)
		}
		return m.finish(cmds...)
	case "ctrl+l":
		m.clearConsole()
		return m.finish(cmds...)
	case "ctrl+s":
		m.setCopyMode(true)
		return m.finish(cmds...)
	case "alt+enter":
		m.textarea.InsertString("\n")
		m.setComposerHeight()
		return m.finish(cmds...)
	case "enter":
		cmds = append(cmds, m.processCommandEntry())
		return m.finish(cmds...)
	case "up":
		if m.textarea.LineCount() <= 1 {
			if text, ok := m.history.Prev(m.textarea.Value()); ok {
				m.textarea.SetValue(text)
				m.setComposerHeight()
			}
			return m.finish(cmds...)
		}
	case "down":
		// 不在浏览历史时 Down 交给输入框。
		if m.textarea.LineCount() <= 1 && m.history.Browsing() {
			if text, ok := m.history.Next(); ok {
				m.textarea.SetValue(text)
				m.setComposerHeight()
			}
			return m.finish(cmds...)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.setComposerHeight()
	m.syncCommands()
	cmds = append(cmds, cmd)
	return m.finish(cmds...)
}

func (m *Model) handleScrollKeys(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyPgUp:
		m.viewport.ScrollPageUp()
	case tea.KeyPgDown:
		m.viewport.ScrollPageDown()
	case tea.KeyHome, tea.KeyCtrlHome:
		m.viewport.GotoTop()
	case tea.KeyEnd, tea.KeyCtrlEnd:
		m.viewport.GotoBottom()
	case tea.KeyUp:
		if !msg.Alt {
			return false
		}
		m.viewport.ScrollLineUp(1)
	case tea.KeyDown:
		if !msg.Alt {
			return false
		}
		m.viewport.ScrollLineDown(1)
	default:
		return false
	}
	return true
}

func (m *Model) finish(cmds ...tea.Cmd) (tea.Model, tea.Cmd) {
	m.flush()
	return m, tea.Batch(cmds...)
}

// flush 在缓冲有变化时重新渲染 scrollback。
func (m *Model) flush() {
	if !m.dirty && m.buf.Revision() == m.rendered {
		return
	}
	opts := render.ConsoleOptions{Palette: m.palette, Width: m.viewport.Width}
	if m.syntaxColor {
		opts.Syntax = m.highlighter
	}
	lines := render.RenderRuns(m.buf.Runs(), opts)
	if m.pendingPrompt != "" || m.pendingInput != "" {
		pending := []buffer.Run{
			{Class: buffer.Prompt | buffer.Keyword, Text: m.pendingPrompt},
			{Class: buffer.Command | buffer.Keyword, Text: m.pendingInput},
		}
		lines = append(lines, render.RenderRuns(pending, opts)...)
	}
	m.viewport.SetLines(render.LinesToStrings(lines))
	m.rendered = m.buf.Revision()
	m.dirty = false
}

func (m *Model) listenEvents() tea.Cmd {
	ch := m.eventsCh
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		batch := []events.ConsoleEvent{evt}
		// 一次取走已经到达的事件，输出洪峰时只渲染一次。
		for len(batch) < eventDrainLimit {
			select {
			case next, ok := <-ch:
				if !ok {
					return consoleEventsMsg{Events: batch}
				}
				batch = append(batch, next)
			default:
				return consoleEventsMsg{Events: batch}
			}
		}
		return consoleEventsMsg{Events: batch}
	}
}

func (m *Model) listenScroll() tea.Cmd {
	ch, done := m.scrollCh, m.ctx.Done()
	return func() tea.Msg {
		select {
		case <-ch:
			return scrollMsg{}
		case <-done:
			return nil
		}
	}
}

func (m *Model) requestScroll() {
	select {
	case m.scrollCh <- struct{}{}:
	default:
	}
}

func replayStep() tea.Msg { return replayStepMsg{} }

// stepReplay 执行一个回放批次；还有剩余时返回下一步，批次之间让出事件循环。
func (m *Model) stepReplay() tea.Cmd {
	if m.replayer == nil {
		return nil
	}
	if m.replayer.Step() {
		return replayStep
	}
	log.WithFields(logger.Fields{
		"state":   m.replayer.State().String(),
		"applied": m.replayer.Applied(),
	}).Infof("session replay finished")
	m.replayer = nil
	if m.status.State() == StatusRestoring {
		m.status.SetState(m.liveState())
	}
	m.scrollToBottomAsync()
	return nil
}

func (m *Model) liveState() StatusIndicatorState {
	switch {
	case m.exited:
		return StatusExited
	case m.backend == nil:
		return StatusIdle
	case m.promptLabel != "" && len(m.promptQueue) == 0:
		return StatusReady
	default:
		return StatusBusy
	}
}

func (m *Model) sendLoop() {
	for line := range m.inputCh {
		if err := m.backend.SendInput(m.ctx, line); err != nil {
			log.Warnf("send input: %v", err)
		}
	}
}

// Close 停止输入发送和滚动计时器。可重复调用。
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.scroll.Cancel()
		close(m.inputCh)
	})
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.textarea.SetWidth(width)
	m.relayout()

	cols := consoleWidth(width)
	rows := m.viewport.Height
	if m.backend == nil || (cols == m.consoleCols && rows == m.consoleRows) {
		return
	}
	m.consoleCols, m.consoleRows = cols, rows
	if err := m.backend.Resize(cols, rows); err != nil {
		log.Warnf("resize console: %v", err)
	}
}

// consoleWidth 是告诉解释器的行宽：可见宽度减 2，至少 minConsoleWidth。
func consoleWidth(width int) int {
	w := width - 2
	if w < minConsoleWidth {
		w = minConsoleWidth
	}
	return w
}

func (m *Model) relayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	reserved := 2 + len(m.promptHead) + m.popupH + m.textarea.Height()
	h := m.height - reserved
	if h < 3 {
		h = 3
	}
	m.viewport.Resize(m.width, h)
	m.dirty = true
}

func (m *Model) setComposerHeight() {
	lines := m.textarea.LineCount()
	if lines < 1 {
		lines = 1
	}
	if lines > maxInputLines {
		lines = maxInputLines
	}
	if m.textarea.Height() != lines {
		m.textarea.SetHeight(lines)
		m.relayout()
	}
}

func (m *Model) setCopyMode(on bool) {
	m.copyMode = on
	if on {
		m.notice = "copy mode: y copy • esc cancel"
		return
	}
	m.notice = ""
	m.scrollToBottomAsync()
}

func (m *Model) copyBuffer() tea.Cmd {
	text, lines, fn := m.buf.Text(), m.buf.LineCount(), m.copyText
	return func() tea.Msg {
		return copyResultMsg{Lines: lines, Err: fn(text)}
	}
}

// syncCommands 根据输入框内容开关命令弹窗，高度变化时重新布局。
func (m *Model) syncCommands() {
	m.commands.SyncInput(meta.Input{
		Value:        m.textarea.Value(),
		CursorLine:   m.textarea.Line(),
		CursorColumn: m.textarea.LineInfo().CharOffset,
	})
	if h := m.commands.Height(m.width); h != m.popupH {
		m.popupH = h
		m.relayout()
	}
}

func (m *Model) applyCommandAction(act meta.Action) tea.Cmd {
	switch act.Kind {
	case meta.ActionInsert:
		m.textarea.SetValue(act.NewValue)
		m.textarea.CursorEnd()
		m.syncCommands()
	case meta.ActionSubmitCommand:
		m.textarea.Reset()
		m.history.ResetBrowsing()
		m.syncCommands()
		return m.runCommand(act.Command, act.Args)
	case meta.ActionError:
		m.notice = act.Message
	case meta.ActionClose:
		m.syncCommands()
	}
	return nil
}

// handleMeta 处理以 ':' 开头的界面命令，返回是否已处理。
func (m *Model) handleMeta(text string) (bool, tea.Cmd) {
	act := m.commands.ResolveSubmit(text)
	switch act.Kind {
	case meta.ActionNone:
		return false, nil
	case meta.ActionSubmitCommand:
		return true, m.runCommand(act.Command, act.Args)
	default:
		m.notice = act.Message
		return true, nil
	}
}

func (m *Model) runCommand(cmd meta.Command, args string) tea.Cmd {
	fields := strings.Fields(args)
	switch cmd {
	case meta.CommandMax:
		if len(fields) != 1 {
			m.notice = fmt.Sprintf("usage: :max N (current %d)", m.buf.MaxLines())
			return nil
		}
		n, err := strconv.Atoi(fields[0])
		if err != nil || n < 0 {
			m.notice = fmt.Sprintf("invalid line limit %q", fields[0])
			return nil
		}
		removed := m.buf.SetMaxLines(n)
		m.notice = fmt.Sprintf("scrollback limit %d (%d lines removed)", n, removed)
	case meta.CommandSyntax:
		m.syntaxColor = len(fields) == 0 || fields[0] != "off"
		m.dirty = true
	case meta.CommandClear:
		m.clearConsole()
	case meta.CommandCopy:
		return m.copyBuffer()
	case meta.CommandQuit:
		return tea.Quit
	}
	return nil
}

// SessionID 返回当前会话 id。
func (m *Model) SessionID() string { return m.sessionID }

// Exited 报告子进程是否已结束，以及退出码。
func (m *Model) Exited() (bool, int) { return m.exited, m.exitCode }

// Buffer 返回 scrollback 缓冲。
func (m *Model) Buffer() *buffer.Buffer { return m.buf }
