package tui

import (
	"fmt"
	"strings"

	"shellpane/internal/buffer"
	"shellpane/internal/events"
	"shellpane/internal/history"
	"shellpane/internal/vconsole"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) handleEvent(evt events.ConsoleEvent) {
	switch evt.Kind {
	case events.KindOutput:
		m.consoleWriteOutput(evt.Text)
		m.record(history.Output, evt.Text)
	case events.KindError:
		m.consoleWriteError(evt.Text)
		m.record(history.Error, evt.Text)
	case events.KindPrompt:
		m.consolePrompt(evt.Text)
		if m.status.State() != StatusRestoring {
			m.status.SetState(m.liveState())
		}
	case events.KindInput:
		if prompt := m.popPrompt(); prompt != "" {
			m.consoleWritePrompt(prompt)
			m.record(history.Prompt, prompt)
		}
		m.consoleWriteInput(evt.Text + "\n")
		m.record(history.Input, evt.Text)
	case events.KindExit:
		m.exited = true
		m.exitCode = evt.ExitCode
		m.promptQueue = nil
		m.pendingPrompt, m.pendingInput = "", ""
		m.consolePrompt("")
		m.status.SetState(StatusExited)
		m.status.UpdateHeader(fmt.Sprintf("Exited (code %d)", evt.ExitCode))
		m.dirty = true
	}
}

func (m *Model) consoleWriteError(text string) {
	m.output(text, buffer.Error)
}

func (m *Model) consoleWriteOutput(text string) {
	m.output(text, buffer.Output)
}

// consoleWriteInput 写入输入回显，同时清掉待确认行。
func (m *Model) consoleWriteInput(text string) {
	m.pendingPrompt, m.pendingInput = "", ""
	m.dirty = true
	m.output(text, buffer.Command|buffer.Keyword)
}

func (m *Model) consoleWritePrompt(text string) {
	m.output(text, buffer.Prompt|buffer.Keyword)
}

func (m *Model) output(text string, class buffer.Class) {
	m.buf.Append(text, class, false)
	m.scrollToBottomAsync()
}

// consolePrompt 设置输入行前的提示符；多行提示符的前几行显示在输入行上方。
func (m *Model) consolePrompt(prompt string) {
	prompt = vconsole.Consolify(prompt)
	m.promptLabel = prompt
	lines := strings.Split(prompt, "\n")
	m.promptHead = lines[:len(lines)-1]
	m.textarea.Prompt = lines[len(lines)-1]
	if m.width > 0 {
		m.textarea.SetWidth(m.width)
	}
	m.relayout()
	m.ensureInputVisible()
}

// processCommandEntry 取走输入框内容：提示符和第一行移到待确认行，
// 每一行按顺序排队发给解释器。
func (m *Model) processCommandEntry() tea.Cmd {
	text := m.textarea.Value()
	m.textarea.Reset()
	m.setComposerHeight()
	m.syncCommands()
	if handled, cmd := m.handleMeta(text); handled {
		m.history.ResetBrowsing()
		return cmd
	}
	if m.exited || m.backend == nil {
		m.notice = "interpreter is not running"
		return nil
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		prompt := ""
		if i == 0 {
			prompt = m.promptLabel
		}
		select {
		case m.inputCh <- line:
			m.promptQueue = append(m.promptQueue, prompt)
			continue
		default:
		}
		m.notice = "input queue full, dropped remaining lines"
		log.Warnf("input queue full, dropped %d lines", len(lines)-i)
		break
	}
	m.pendingPrompt = m.promptLabel
	m.pendingInput = lines[0] + "\n"
	m.history.Add(text)
	m.consolePrompt("")
	if m.status.State() != StatusRestoring {
		m.status.SetState(StatusBusy)
	}
	m.dirty = true
	return nil
}

func (m *Model) popPrompt() string {
	if len(m.promptQueue) == 0 {
		return ""
	}
	p := m.promptQueue[0]
	m.promptQueue = m.promptQueue[1:]
	return p
}

// clearConsole 清空 scrollback；正在进行的回放会在下一个批次前停下。
func (m *Model) clearConsole() {
	m.buf.Clear()
	m.notice = ""
	m.dirty = true
	m.flush()
	m.viewport.GotoTop()
}

func (m *Model) ensureInputVisible() {
	if m.copyMode {
		return
	}
	m.flush()
	m.viewport.GotoBottom()
}

func (m *Model) scrollToBottomAsync() {
	m.scroll.Nudge()
}

// record 追加一条 console action；写失败后停止记录，避免每条输出都报错。
// 空行 INPUT 照常记录。
func (m *Model) record(t history.ActionType, data string) {
	if m.store == nil || history.Droppable(history.Action{Type: t, Data: data}) {
		return
	}
	if err := m.store.Append(history.Action{Type: t, Data: data}); err != nil {
		log.Warnf("record %s action: %v", t, err)
		m.notice = "session log disabled: " + err.Error()
		m.store = nil
	}
}
