package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"shellpane/internal/buffer"
	"shellpane/internal/events"
	"shellpane/internal/history"
	"shellpane/internal/replay"

	tea "github.com/charmbracelet/bubbletea"
)

type stubBackend struct {
	mu         sync.Mutex
	sent       chan string
	interrupts int
	sizes      [][2]int
}

func newStubBackend() *stubBackend {
	return &stubBackend{sent: make(chan string, 16)}
}

func (b *stubBackend) SendInput(ctx context.Context, line string) error {
	b.sent <- line
	return nil
}

func (b *stubBackend) Interrupt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupts++
	return nil
}

func (b *stubBackend) Resize(cols, rows int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sizes = append(b.sizes, [2]int{cols, rows})
	return nil
}

func (b *stubBackend) lastSize() [2]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.sizes) == 0 {
		return [2]int{}
	}
	return b.sizes[len(b.sizes)-1]
}

func (b *stubBackend) next(t *testing.T) string {
	t.Helper()
	select {
	case line := <-b.sent:
		return line
	case <-time.After(2 * time.Second):
		t.Fatalf("no input reached the backend")
		return ""
	}
}

func feed(m *Model, evts ...events.ConsoleEvent) {
	m.Update(consoleEventsMsg{Events: evts})
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func submit(m *Model, text string) {
	m.textarea.SetValue(text)
	m.Update(key(tea.KeyEnter))
}

// collect 执行 cmd，展开 BatchMsg，返回所有非 nil 的消息；会阻塞的监听命令不要传进来。
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func TestLiveSessionRecordsReplayableActions(t *testing.T) {
	store := &history.Store{Path: filepath.Join(t.TempDir(), "s.jsonl")}
	backend := newStubBackend()
	m := New(Options{Backend: backend, Store: store, MaxLines: 100})
	defer m.Close()

	feed(m,
		events.ConsoleEvent{Kind: events.KindOutput, Text: "R version 4.4\n"},
		events.ConsoleEvent{Kind: events.KindPrompt, Text: "> "},
	)
	if m.textarea.Prompt != "> " || m.status.State() != StatusReady {
		t.Fatalf("prompt=%q status=%s", m.textarea.Prompt, m.status.State())
	}

	submit(m, "1+1")
	if got := backend.next(t); got != "1+1" {
		t.Fatalf("backend got %q", got)
	}
	if m.pendingPrompt != "> " || m.pendingInput != "1+1\n" {
		t.Fatalf("pending=(%q,%q)", m.pendingPrompt, m.pendingInput)
	}
	if m.textarea.Prompt != "" || m.status.State() != StatusBusy {
		t.Fatalf("after entry prompt=%q status=%s", m.textarea.Prompt, m.status.State())
	}

	feed(m,
		events.ConsoleEvent{Kind: events.KindInput, Text: "1+1"},
		events.ConsoleEvent{Kind: events.KindOutput, Text: "[1] 2\n"},
		events.ConsoleEvent{Kind: events.KindError, Text: "Warning message\n"},
		events.ConsoleEvent{Kind: events.KindPrompt, Text: "> "},
	)
	if m.pendingPrompt != "" || m.pendingInput != "" {
		t.Fatalf("input echo should clear the pending line")
	}

	// 空行输入：提示符之后仍然要换行。
	submit(m, "")
	if got := backend.next(t); got != "" {
		t.Fatalf("backend got %q for blank line", got)
	}
	feed(m,
		events.ConsoleEvent{Kind: events.KindInput, Text: ""},
		events.ConsoleEvent{Kind: events.KindPrompt, Text: "> "},
	)
	submit(m, "1")
	if got := backend.next(t); got != "1" {
		t.Fatalf("backend got %q", got)
	}
	feed(m,
		events.ConsoleEvent{Kind: events.KindInput, Text: "1"},
		events.ConsoleEvent{Kind: events.KindOutput, Text: "[1] 1\n"},
	)

	wantRuns := []buffer.Run{
		{Class: buffer.Output, Text: "R version 4.4\n"},
		{Class: buffer.Prompt | buffer.Keyword, Text: "> "},
		{Class: buffer.Command | buffer.Keyword, Text: "1+1\n"},
		{Class: buffer.Output, Text: "[1] 2\n"},
		{Class: buffer.Error, Text: "Warning message\n"},
		{Class: buffer.Prompt | buffer.Keyword, Text: "> "},
		{Class: buffer.Command | buffer.Keyword, Text: "\n"},
		{Class: buffer.Prompt | buffer.Keyword, Text: "> "},
		{Class: buffer.Command | buffer.Keyword, Text: "1\n"},
		{Class: buffer.Output, Text: "[1] 1\n"},
	}
	if got := m.buf.Runs(); !reflect.DeepEqual(got, wantRuns) {
		t.Fatalf("live runs=%+v", got)
	}
	if got, want := m.buf.Text(), "R version 4.4\n> 1+1\n[1] 2\nWarning message\n> \n> 1\n[1] 1\n"; got != want {
		t.Fatalf("live text=%q want %q", got, want)
	}

	actions, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(actions) != 10 {
		t.Fatalf("recorded %d actions: %+v", len(actions), actions)
	}

	// 用记录下来的 action 重建，应当得到同样的 scrollback。
	rebuilt := buffer.New(100)
	if err := replay.New(rebuilt, actions).Run(context.Background()); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := rebuilt.Runs(); !reflect.DeepEqual(got, wantRuns) {
		t.Fatalf("replayed runs=%+v", got)
	}
}

func TestResumeReplaysInBatchesAndClearStopsIt(t *testing.T) {
	actions := make([]history.Action, 0, 1100)
	for i := 0; i < 1100; i++ {
		actions = append(actions, history.Action{Type: history.Output, Data: fmt.Sprintf("line %d\n", i)})
	}
	m := New(Options{Replay: actions})
	defer m.Close()
	if m.status.State() != StatusRestoring {
		t.Fatalf("status=%s want restoring", m.status.State())
	}

	_, cmd := m.Update(replayStepMsg{})
	if m.buf.LineCount() != replay.FirstBatch {
		t.Fatalf("after first batch LineCount=%d", m.buf.LineCount())
	}
	if cmd == nil {
		t.Fatalf("replay should schedule another step")
	}
	if !strings.HasPrefix(m.buf.Text(), "line 100\n") {
		t.Fatalf("first batch should hold the newest actions, head=%.20q", m.buf.Text())
	}

	m.Update(key(tea.KeyCtrlL))
	if m.buf.LineCount() != 0 {
		t.Fatalf("clear left %d lines", m.buf.LineCount())
	}
	m.Update(replayStepMsg{})
	if m.buf.LineCount() != 0 || m.replayer != nil {
		t.Fatalf("replay continued after clear: lines=%d", m.buf.LineCount())
	}
	if m.status.State() != StatusIdle {
		t.Fatalf("status after replay=%s", m.status.State())
	}
}

func TestInputHistorySeededFromReplay(t *testing.T) {
	m := New(Options{Replay: []history.Action{
		{Type: history.Input, Data: "x <- 1"},
		{Type: history.Output, Data: "ignored\n"},
		{Type: history.Input, Data: "print(x)"},
	}})
	defer m.Close()

	m.Update(key(tea.KeyUp))
	if got := m.textarea.Value(); got != "print(x)" {
		t.Fatalf("first Up=%q", got)
	}
	m.Update(key(tea.KeyUp))
	if got := m.textarea.Value(); got != "x <- 1" {
		t.Fatalf("second Up=%q", got)
	}
	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeyDown))
	if got := m.textarea.Value(); got != "" {
		t.Fatalf("Down past newest should restore the draft, got %q", got)
	}
	if m.history.Browsing() {
		t.Fatalf("history should stop browsing after the draft is restored")
	}

	m.textarea.SetValue("draft")
	m.Update(key(tea.KeyDown))
	if got := m.textarea.Value(); got != "draft" || m.history.Browsing() {
		t.Fatalf("Down outside history changed input to %q (browsing=%v)", got, m.history.Browsing())
	}
	m.Update(key(tea.KeyUp))
	if got := m.textarea.Value(); got != "print(x)" {
		t.Fatalf("Up from draft=%q", got)
	}
	m.Update(key(tea.KeyDown))
	if got := m.textarea.Value(); got != "draft" {
		t.Fatalf("Down should bring the draft back, got %q", got)
	}
}

func TestMaxMetaCommandTrimsScrollback(t *testing.T) {
	backend := newStubBackend()
	m := New(Options{Backend: backend, MaxLines: 100})
	defer m.Close()
	for i := 0; i < 10; i++ {
		feed(m, events.ConsoleEvent{Kind: events.KindOutput, Text: fmt.Sprintf("%d\n", i)})
	}

	submit(m, ":max 3")
	if m.buf.LineCount() != 3 || m.buf.Text() != "7\n8\n9\n" {
		t.Fatalf("after :max 3 text=%q", m.buf.Text())
	}
	if !strings.Contains(m.notice, "7 lines removed") {
		t.Fatalf("notice=%q", m.notice)
	}
	select {
	case line := <-backend.sent:
		t.Fatalf("meta command leaked to the interpreter: %q", line)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestCopyModeFreezesAutoscroll(t *testing.T) {
	var copied string
	m := New(Options{MaxLines: 100, CopyText: func(s string) error {
		copied = s
		return nil
	}})
	defer m.Close()
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 12})
	for i := 0; i < 30; i++ {
		feed(m, events.ConsoleEvent{Kind: events.KindOutput, Text: fmt.Sprintf("row %d\n", i)})
	}
	m.Update(scrollMsg{})
	if !m.viewport.AtBottom() {
		t.Fatalf("scroll message should move to the bottom")
	}

	m.Update(key(tea.KeyCtrlS))
	if !m.copyMode {
		t.Fatalf("ctrl+s should enter copy mode")
	}
	m.Update(key(tea.KeyHome))
	m.Update(scrollMsg{})
	if m.viewport.YOffset != 0 {
		t.Fatalf("copy mode should freeze autoscroll, YOffset=%d", m.viewport.YOffset)
	}

	_, cmd := m.Update(runes("y"))
	if m.copyMode {
		t.Fatalf("y should leave copy mode")
	}
	var result *copyResultMsg
	for _, msg := range collect(cmd) {
		if r, ok := msg.(copyResultMsg); ok {
			result = &r
		}
	}
	if result == nil || result.Err != nil || result.Lines != 30 {
		t.Fatalf("copy result=%+v", result)
	}
	if copied != m.buf.Text() {
		t.Fatalf("clipboard got %d bytes, want buffer text", len(copied))
	}
	m.Update(*result)
	if m.notice != "copied 30 lines" {
		t.Fatalf("notice=%q", m.notice)
	}
}

func TestCopyFailureIsReported(t *testing.T) {
	m := New(Options{CopyText: func(string) error { return errors.New("no clipboard") }})
	defer m.Close()
	m.Update(copyResultMsg{Err: errors.New("no clipboard")})
	if !strings.Contains(m.notice, "no clipboard") {
		t.Fatalf("notice=%q", m.notice)
	}
}

func TestResizePropagatesConsoleWidth(t *testing.T) {
	backend := newStubBackend()
	m := New(Options{Backend: backend})
	defer m.Close()

	m.Update(tea.WindowSizeMsg{Width: 20, Height: 30})
	if got := backend.lastSize(); got[0] != minConsoleWidth || got[1] != m.viewport.Height {
		t.Fatalf("narrow size=%v viewport height=%d", got, m.viewport.Height)
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	if got := backend.lastSize(); got[0] != 98 {
		t.Fatalf("wide size=%v", got)
	}
	if m.viewport.Width != 100 {
		t.Fatalf("viewport width=%d", m.viewport.Width)
	}
}

func TestMultiLinePromptSplitsAboveInput(t *testing.T) {
	m := New(Options{})
	defer m.Close()
	m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	before := m.viewport.Height

	m.consolePrompt("Choose one:\r\n1: yes\n> ")
	if m.textarea.Prompt != "> " {
		t.Fatalf("input prompt=%q", m.textarea.Prompt)
	}
	if !reflect.DeepEqual(m.promptHead, []string{"Choose one:", "1: yes"}) {
		t.Fatalf("promptHead=%q", m.promptHead)
	}
	if m.viewport.Height != before-2 {
		t.Fatalf("viewport height=%d want %d", m.viewport.Height, before-2)
	}
	if view := m.View(); !strings.Contains(view, "1: yes") {
		t.Fatalf("view does not show the prompt head")
	}
}

func TestExitStopsInput(t *testing.T) {
	backend := newStubBackend()
	m := New(Options{Backend: backend})
	defer m.Close()

	feed(m, events.ConsoleEvent{Kind: events.KindExit, ExitCode: 2})
	if exited, code := m.Exited(); !exited || code != 2 {
		t.Fatalf("Exited()=(%v,%d)", exited, code)
	}
	if m.status.State() != StatusExited {
		t.Fatalf("status=%s", m.status.State())
	}
	submit(m, "q()")
	if m.notice != "interpreter is not running" {
		t.Fatalf("notice=%q", m.notice)
	}
	_, cmd := m.Update(key(tea.KeyCtrlC))
	found := false
	for _, msg := range collect(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			found = true
		}
	}
	if !found {
		t.Fatalf("ctrl+c after exit should quit")
	}
}

func TestCtrlCInterruptsRunningInterpreter(t *testing.T) {
	backend := newStubBackend()
	m := New(Options{Backend: backend})
	defer m.Close()
	m.textarea.SetValue("long_running()")
	m.Update(key(tea.KeyCtrlC))
	if m.textarea.Value() != "" {
		t.Fatalf("ctrl+c should discard the input line")
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.interrupts != 1 {
		t.Fatalf("interrupts=%d", backend.interrupts)
	}
}

func TestOutputNudgesDebouncedScroll(t *testing.T) {
	m := New(Options{ScrollDelay: time.Hour})
	defer m.Close()
	feed(m, events.ConsoleEvent{Kind: events.KindOutput, Text: "x\n"})
	if !m.scroll.Pending() {
		t.Fatalf("output should schedule a scroll")
	}
}

func TestCommandPopupDispatchesSelection(t *testing.T) {
	backend := newStubBackend()
	m := New(Options{Backend: backend})
	defer m.Close()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	feed(m, events.ConsoleEvent{Kind: events.KindOutput, Text: "old output\n"})
	before := m.viewport.Height

	m.Update(runes(":cle"))
	if !m.commands.Open() {
		t.Fatalf("typing the command prefix should open the popup")
	}
	if m.viewport.Height >= before {
		t.Fatalf("popup should take room from the viewport: %d >= %d", m.viewport.Height, before)
	}
	m.Update(key(tea.KeyEnter))
	if m.buf.LineCount() != 0 {
		t.Fatalf(":clear left %q", m.buf.Text())
	}
	if m.commands.Open() || m.textarea.Value() != "" {
		t.Fatalf("popup should close and reset the input")
	}
	if m.viewport.Height != before {
		t.Fatalf("viewport height=%d want %d", m.viewport.Height, before)
	}
	select {
	case line := <-backend.sent:
		t.Fatalf("command leaked to the interpreter: %q", line)
	case <-time.After(20 * time.Millisecond):
	}
}
