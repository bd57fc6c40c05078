package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the only persisted config file schema.
type Config struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Workdir string   `toml:"workdir"`
	// Prompts 是解释器用来结束一轮输出的提示符，按顺序匹配。
	Prompts []string `toml:"prompts"`
	// MaxLines 控制 scrollback 保留的行数，<= 0 表示不限制。
	MaxLines    int  `toml:"max_lines"`
	SyntaxColor bool `toml:"syntax_color"`
	// SyntaxLanguage 为空时按 command 推断。
	SyntaxLanguage string `toml:"syntax_language"`
	ActionsLimit   int    `toml:"actions_limit"`
	PTY            bool   `toml:"pty"`
	LogPath        string `toml:"log_path"`
	LogLevel       string `toml:"log_level"`
	ScrollDelayMs  int    `toml:"scroll_delay_ms"`
	Source         string `toml:"-"`
}

func Default() Config {
	return Config{
		Command:       "R",
		Args:          []string{"--no-readline", "--interactive", "--quiet"},
		Prompts:       []string{"> ", "+ "},
		MaxLines:      1000,
		SyntaxColor:   true,
		ActionsLimit:  1000,
		PTY:           true,
		LogPath:       "",
		LogLevel:      "info",
		ScrollDelayMs: 5,
	}
}

func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".shellpane")
}

func DefaultPath() string {
	dir := DefaultDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if env := strings.TrimSpace(os.Getenv("SHELLPANE_COMMAND")); env != "" {
		fields := strings.Fields(env)
		cfg.Command = fields[0]
		cfg.Args = fields[1:]
	}
}
