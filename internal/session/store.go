package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shellpane/internal/history"
	"shellpane/internal/logger"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
)

var log = logger.Named("session")

// ErrNoSessions 表示会话目录为空。
var ErrNoSessions = errors.New("no sessions found")

// Record 是一个会话的元数据；console action 存在同名 .jsonl 里。
type Record struct {
	ID      string    `json:"id"`
	Command string    `json:"command"`
	Args    []string  `json:"args,omitempty"`
	Workdir string    `json:"workdir,omitempty"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

// CommandLine 返回可读的命令行。
func (r Record) CommandLine() string {
	return strings.TrimSpace(r.Command + " " + strings.Join(r.Args, " "))
}

// Manager 管理一个会话目录。Dir 为空时使用 ~/.shellpane/sessions。
type Manager struct {
	Dir string
}

var defaultManager = &Manager{}

func (m *Manager) dir() (string, error) {
	if m != nil && m.Dir != "" {
		return m.Dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shellpane", "sessions"), nil
}

func (m *Manager) ensureDir() (string, error) {
	d, err := m.dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(d, 0o755); err != nil {
		return "", err
	}
	return d, nil
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("empty session id")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// Create 新建会话并落盘。
func (m *Manager) Create(command string, args []string, workdir string) (Record, error) {
	now := time.Now()
	rec := Record{
		ID:      uuid.NewString(),
		Command: command,
		Args:    append([]string(nil), args...),
		Workdir: workdir,
		Created: now,
		Updated: now,
	}
	if err := m.save(rec); err != nil {
		return Record{}, err
	}
	log.WithField("session", rec.ID).Infof("created session for %s", rec.CommandLine())
	return rec, nil
}

func (m *Manager) save(rec Record) error {
	if err := validID(rec.ID); err != nil {
		return err
	}
	d, err := m.ensureDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d, rec.ID+".json"), data, 0o644)
}

// Touch 更新会话的 Updated 时间。
func (m *Manager) Touch(id string) error {
	rec, err := m.Load(id)
	if err != nil {
		return err
	}
	rec.Updated = time.Now()
	return m.save(rec)
}

func (m *Manager) Load(id string) (Record, error) {
	var rec Record
	if err := validID(id); err != nil {
		return rec, err
	}
	d, err := m.dir()
	if err != nil {
		return rec, err
	}
	data, err := os.ReadFile(filepath.Join(d, id+".json"))
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse session %s: %w", id, err)
	}
	return rec, nil
}

// Last 返回最近更新的会话。
func (m *Manager) Last() (Record, error) {
	records, err := m.List()
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, ErrNoSessions
	}
	return records[0], nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}

func (m *Manager) ListIDs() ([]string, error) {
	d, err := m.dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, trimExt(e.Name()))
	}
	return ids, nil
}

// List 返回全部会话，最近更新的在前。无法解析的文件跳过。
func (m *Manager) List() ([]Record, error) {
	ids, err := m.ListIDs()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := m.Load(id)
		if err != nil {
			log.Debugf("skip session %s: %v", id, err)
			continue
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Updated.After(records[j].Updated)
	})
	return records, nil
}

// History 返回会话的 action 日志。
func (m *Manager) History(id string, limit int) (*history.Store, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	d, err := m.dir()
	if err != nil {
		return nil, err
	}
	return &history.Store{Path: filepath.Join(d, id+".jsonl"), Limit: limit}, nil
}

// Filter 按命令行、工作目录和 id 做模糊匹配，得分高的在前；空查询原样返回。
func Filter(records []Record, query string) []Record {
	query = strings.TrimSpace(query)
	if query == "" {
		return records
	}
	keys := make([]string, len(records))
	for i, rec := range records {
		keys[i] = strings.ToLower(rec.CommandLine() + " " + rec.Workdir + " " + rec.ID)
	}
	matches := fuzzy.Find(strings.ToLower(query), keys)
	out := make([]Record, 0, len(matches))
	for _, m := range matches {
		out = append(out, records[m.Index])
	}
	return out
}

func Create(command string, args []string, workdir string) (Record, error) {
	return defaultManager.Create(command, args, workdir)
}

func Touch(id string) error { return defaultManager.Touch(id) }

func Load(id string) (Record, error) { return defaultManager.Load(id) }

func Last() (Record, error) { return defaultManager.Last() }

func List() ([]Record, error) { return defaultManager.List() }

func History(id string, limit int) (*history.Store, error) {
	return defaultManager.History(id, limit)
}
