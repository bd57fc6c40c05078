package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Result 返回 TUI 运行后的必要信息。
type Result struct {
	SessionID string
	Exited    bool
	ExitCode  int
	Lines     int
}

// Run 封装 Bubble Tea 入口，返回最终的 UI 结果。
func Run(opts Options) (Result, error) {
	model := New(opts)
	defer model.Close()

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	m, err := program.Run()
	if err != nil {
		return Result{}, err
	}
	tuiModel, ok := m.(*Model)
	if !ok {
		return Result{}, errors.New("unexpected tui model")
	}
	exited, code := tuiModel.Exited()
	return Result{
		SessionID: tuiModel.SessionID(),
		Exited:    exited,
		ExitCode:  code,
		Lines:     tuiModel.Buffer().LineCount(),
	}, nil
}
