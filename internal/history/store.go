package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNilStore 表示在 nil Store 上调用。
var ErrNilStore = errors.New("history store is nil")

// DefaultLimit 是单个会话保留/回放的 action 上限。
const DefaultLimit = 1000

// ActionType 是 console action 的类别，数值顺序与会话历史约定一致。
type ActionType int

const (
	Prompt ActionType = iota
	Input
	Output
	Error
)

func (t ActionType) String() string {
	switch t {
	case Prompt:
		return "prompt"
	case Input:
		return "input"
	case Output:
		return "output"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("action(%d)", int(t))
	}
}

// ParseActionType 解析 String() 的输出。
func ParseActionType(s string) (ActionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prompt":
		return Prompt, nil
	case "input":
		return Input, nil
	case "output":
		return Output, nil
	case "error":
		return Error, nil
	}
	return 0, fmt.Errorf("unknown action type %q", s)
}

func (t ActionType) MarshalText() ([]byte, error) {
	if t < Prompt || t > Error {
		return nil, fmt.Errorf("invalid action type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *ActionType) UnmarshalText(b []byte) error {
	v, err := ParseActionType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Action 是一条不可变的 console 历史记录。
type Action struct {
	Type ActionType `json:"type"`
	Data string     `json:"data"`
	TS   time.Time  `json:"ts"`
}

// Store 以 JSONL 追加保存 action，按写入顺序（旧到新）读取。
type Store struct {
	Path string
	// Limit <= 0 时使用 DefaultLimit。
	Limit int
}

func (s *Store) limit() int {
	if s.Limit <= 0 {
		return DefaultLimit
	}
	return s.Limit
}

func (s *Store) ensureDir() error {
	if s == nil {
		return ErrNilStore
	}
	if strings.TrimSpace(s.Path) == "" {
		return errors.New("history store path is empty")
	}
	return os.MkdirAll(filepath.Dir(s.Path), 0o755)
}

// Droppable 报告 action 是否不影响回放结果：空的 PROMPT/OUTPUT/ERROR。
// INPUT 即使为空也会产生一个换行，不能丢。
func Droppable(a Action) bool {
	return a.Data == "" && a.Type != Input
}

// Append 追加若干 action；Droppable 的 action 被忽略。
func (s *Store) Append(actions ...Action) error {
	if s == nil {
		return ErrNilStore
	}
	if err := s.ensureDir(); err != nil {
		return err
	}
	f, err := os.OpenFile(s.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, a := range actions {
		if Droppable(a) {
			continue
		}
		if a.TS.IsZero() {
			a.TS = time.Now()
		}
		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

// Load 读取最近的至多 Limit 条 action（旧到新）。缺失文件返回空；无法解析的行跳过。
func (s *Store) Load() ([]Action, error) {
	all, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	if n := s.limit(); len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}

// Compact 重写文件，只保留最近的 Limit 条。
func (s *Store) Compact() error {
	all, err := s.loadAll()
	if err != nil {
		return err
	}
	n := s.limit()
	if len(all) <= n {
		return nil
	}
	keep := all[len(all)-n:]

	tmp := s.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, a := range keep {
		if err := enc.Encode(a); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.Path)
}

func (s *Store) loadAll() ([]Action, error) {
	if s == nil {
		return nil, ErrNilStore
	}
	if strings.TrimSpace(s.Path) == "" {
		return nil, errors.New("history store path is empty")
	}
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	var out []Action
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var a Action
		if err := json.Unmarshal([]byte(line), &a); err != nil {
			continue
		}
		if Droppable(a) {
			continue
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
