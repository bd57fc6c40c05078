package meta

import "strings"

// Prefix 是界面命令的前导字符；以它开头的输入不会发给解释器。
const Prefix = ":"

// Command 表示内置界面命令的标识符。
type Command string

const (
	CommandMax    Command = "max"
	CommandSyntax Command = "syntax"
	CommandClear  Command = "clear"
	CommandCopy   Command = "copy"
	CommandQuit   Command = "quit"
)

// Item 代表弹窗中的一行条目。
type Item struct {
	Command     Command
	Usage       string
	Description string
}

// Token 返回无前缀的匹配键。
func (i Item) Token() string {
	return string(i.Command)
}

// DisplayName 返回带前缀的展示名称，附带参数用法。
func (i Item) DisplayName() string {
	name := Prefix + i.Token()
	if strings.TrimSpace(i.Usage) != "" {
		name += " " + i.Usage
	}
	return name
}

func builtinItems() []Item {
	return []Item{
		{Command: CommandMax, Usage: "N", Description: "set the scrollback line limit"},
		{Command: CommandSyntax, Usage: "on|off", Description: "toggle syntax coloring of input"},
		{Command: CommandClear, Description: "clear the console"},
		{Command: CommandCopy, Description: "copy the scrollback to the clipboard"},
		{Command: CommandQuit, Description: "leave the console"},
	}
}
