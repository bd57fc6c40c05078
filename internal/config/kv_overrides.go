package config

import (
	"strconv"
	"strings"
)

// ApplyKVOverrides applies free-form -c key=value overrides.
func ApplyKVOverrides(cfg Config, overrides []string) Config {
	if len(overrides) == 0 {
		return cfg
	}
	for _, raw := range overrides {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		switch key {
		case "command":
			cfg.Command = val
		case "args":
			cfg.Args = strings.Fields(val)
		case "workdir", "cd":
			cfg.Workdir = val
		case "prompts":
			cfg.Prompts = splitList(parts[1])
		case "max_lines", "max-lines":
			if n, err := strconv.Atoi(val); err == nil {
				cfg.MaxLines = n
			}
		case "syntax_color", "syntax-color":
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.SyntaxColor = b
			}
		case "syntax_language", "language":
			cfg.SyntaxLanguage = val
		case "actions_limit", "actions-limit":
			if n, err := strconv.Atoi(val); err == nil && n > 0 {
				cfg.ActionsLimit = n
			}
		case "pty":
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.PTY = b
			}
		case "log_path", "log-path":
			cfg.LogPath = val
		case "log_level", "log-level":
			cfg.LogLevel = val
		case "scroll_delay_ms", "scroll-delay-ms":
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.ScrollDelayMs = n
			}
		}
	}
	return cfg
}

// splitList 按逗号拆分，保留提示符里的空格（"> " 的尾随空格是有意义的）。
func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
