package meta

import (
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
)

// Options 控制弹窗高度。
type Options struct {
	MaxLines int
}

// Input 表示当前文本与光标状态。
type Input struct {
	Value        string
	CursorLine   int
	CursorColumn int
}

// ActionKind 描述按键触发后的处理类型。
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionClose
	ActionInsert
	ActionSubmitCommand
	ActionError
)

// Action 汇总弹窗处理结果。
type Action struct {
	Kind         ActionKind
	Command      Command
	NewValue     string
	CursorColumn int
	Args         string
	Message      string
}

const unknownCommand = "unknown command, type : to list commands"

// State 维护命令弹窗的匹配与选择状态。
type State struct {
	items    []Item
	matches  []match
	selected int
	open     bool
	input    parsedInput
	maxLines int
}

type match struct {
	item       Item
	highlights []int
	score      int
}

type parsedInput struct {
	rest  string
	token tokenInfo
}

type tokenInfo struct {
	found  bool
	active bool
	value  string
	end    int
	args   string
}

// NewState 构造命令弹窗状态机。
func NewState(opts Options) *State {
	maxLines := opts.MaxLines
	if maxLines <= 0 {
		maxLines = 6
	}
	return &State{items: builtinItems(), maxLines: maxLines}
}

// Open 返回弹窗是否展示。
func (s *State) Open() bool {
	return s != nil && s.open
}

// Close 收起弹窗。
func (s *State) Close() {
	if s == nil {
		return
	}
	s.open = false
	s.matches = nil
	s.selected = 0
}

// SyncInput 根据最新文本同步过滤列表与选中项。
func (s *State) SyncInput(in Input) {
	if s == nil {
		return
	}
	s.input = parseInput(in)
	tok := s.input.token
	s.open = tok.found && tok.active && in.CursorLine == 0
	if !s.open {
		s.matches = nil
		return
	}
	s.matches = filterMatches(s.items, tok.value)
	if s.selected >= len(s.matches) {
		s.selected = 0
	}
}

// ResolveSubmit 按 Enter 行为解析输入，不依赖弹窗是否打开。
// 不以 Prefix 开头的输入返回 ActionNone。
func (s *State) ResolveSubmit(value string) Action {
	p := parseInput(Input{Value: value, CursorColumn: runeLen(firstLine(value))})
	if !p.token.found {
		return Action{Kind: ActionNone}
	}
	if p.token.value == "" {
		return Action{Kind: ActionError, Message: unknownCommand}
	}
	item, ok := s.findExactItem(p.token.value)
	if !ok {
		return Action{Kind: ActionError, Message: unknownCommand}
	}
	return Action{Kind: ActionSubmitCommand, Command: item.Command, Args: p.token.args}
}

// HandleKey 处理弹窗打开时的按键，第二个返回值表示按键已被消费。
func (s *State) HandleKey(key string) (Action, bool) {
	if !s.Open() {
		return Action{}, false
	}
	switch key {
	case "up", "ctrl+p":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected--
		if s.selected < 0 {
			s.selected = len(s.matches) - 1
		}
		return Action{Kind: ActionNone}, true
	case "down", "ctrl+n":
		if len(s.matches) == 0 {
			return Action{Kind: ActionClose}, true
		}
		s.selected++
		if s.selected >= len(s.matches) {
			s.selected = 0
		}
		return Action{Kind: ActionNone}, true
	case "esc":
		s.open = false
		return Action{Kind: ActionClose}, true
	case "tab":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError, Message: unknownCommand}, true
		}
		cmd := s.matches[s.selected].item.Command
		value := buildCommandValue(cmd, s.input)
		return Action{
			Kind:         ActionInsert,
			Command:      cmd,
			NewValue:     value,
			CursorColumn: runeLen(firstLine(value)),
		}, true
	case "enter":
		if len(s.matches) == 0 {
			return Action{Kind: ActionError, Message: unknownCommand}, true
		}
		s.open = false
		return Action{
			Kind:    ActionSubmitCommand,
			Command: s.matches[s.selected].item.Command,
			Args:    s.input.token.args,
		}, true
	default:
		return Action{}, false
	}
}

// Selected 返回当前选中的条目。
func (s *State) Selected() (Item, bool) {
	if !s.Open() || len(s.matches) == 0 {
		return Item{}, false
	}
	return s.matches[s.selected].item, true
}

func (s *State) findExactItem(token string) (Item, bool) {
	for _, item := range s.items {
		if strings.EqualFold(item.Token(), token) {
			return item, true
		}
	}
	return Item{}, false
}

func filterMatches(items []Item, query string) []match {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		matches := make([]match, 0, len(items))
		for _, item := range items {
			matches = append(matches, match{item: item})
		}
		return matches
	}

	keys := make([]string, len(items))
	for i, item := range items {
		keys[i] = strings.ToLower(item.Token())
	}
	results := fuzzy.Find(strings.ToLower(trimmed), keys)
	matches := make([]match, 0, len(results))
	for _, res := range results {
		matches = append(matches, match{
			item: items[res.Index],
			// 展示名带前缀，高亮下标整体右移一位
			highlights: shift(res.MatchedIndexes, runeLen(Prefix)),
			score:      res.Score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score == matches[j].score {
			return matches[i].item.Token() < matches[j].item.Token()
		}
		return matches[i].score > matches[j].score
	})
	return matches
}

func shift(indexes []int, offset int) []int {
	if offset == 0 || len(indexes) == 0 {
		return indexes
	}
	out := make([]int, len(indexes))
	for i, idx := range indexes {
		out[i] = idx + offset
	}
	return out
}

func buildCommandValue(cmd Command, input parsedInput) string {
	token := Prefix + string(cmd)
	if args := strings.TrimSpace(input.token.args); args != "" {
		return token + " " + args + input.rest
	}
	return token + " " + input.rest
}

func parseInput(in Input) parsedInput {
	first, rest := splitFirstLine(in.Value)
	return parsedInput{rest: rest, token: locateToken([]rune(first), in.CursorColumn)}
}

func splitFirstLine(value string) (string, string) {
	if idx := strings.IndexByte(value, '\n'); idx >= 0 {
		return value[:idx], value[idx:]
	}
	return value, ""
}

func firstLine(value string) string {
	line, _ := splitFirstLine(value)
	return line
}

func locateToken(runes []rune, cursor int) tokenInfo {
	prefix := []rune(Prefix)
	if len(runes) < len(prefix) || string(runes[:len(prefix)]) != Prefix {
		return tokenInfo{}
	}
	token := tokenInfo{found: true, end: len(runes)}
	for i := len(prefix); i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			token.end = i
			break
		}
	}
	token.value = string(runes[len(prefix):token.end])
	token.args = strings.TrimSpace(string(runes[token.end:]))
	token.active = cursor <= token.end
	return token
}

func runeLen(text string) int {
	return len([]rune(text))
}
