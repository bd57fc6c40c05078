package events

import "time"

// Kind 描述一条 console 事件的类别。
type Kind string

const (
	KindOutput Kind = "output"
	KindError  Kind = "error"
	// KindPrompt 解释器等待输入时打印的提示符。
	KindPrompt Kind = "prompt"
	// KindInput 已发送给解释器的一行输入（回显）。
	KindInput Kind = "input"
	// KindExit 子进程结束；ExitCode 有效。
	KindExit Kind = "exit"
)

// ConsoleEvent 是进程后端与界面之间传递的唯一消息格式。
type ConsoleEvent struct {
	Kind     Kind
	Text     string
	ExitCode int
	Err      error
	TS       time.Time
}
