package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shellpane/internal/config"
	"shellpane/internal/events"
	"shellpane/internal/history"
	"shellpane/internal/logger"
	"shellpane/internal/process"
	"shellpane/internal/session"
	"shellpane/internal/tui"
	"shellpane/internal/tui/render"
)

var log = logger.Named("cli")

func main() {
	logger.Configure()
	// 进入 TUI 之前的错误直接打到终端，setupLogging 之后改写文件。
	logger.Root().SetOutput(os.Stderr)

	root, rest, err := parseRootArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse args: %v\n", err)
		os.Exit(2)
	}
	if len(rest) > 0 {
		switch rest[0] {
		case "resume":
			resumeMain(root, rest[1:])
			return
		case "replay":
			replayMain(root, rest[1:])
			return
		case "sessions":
			sessionsMain(root, rest[1:])
			return
		case "completion":
			completionMain(rest[1:])
			return
		}
	}

	runInteractive(root, rest)
}

func runInteractive(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("shellpane")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse args: %v", err)
	}
	cli.command = fs.Args()
	cfg := loadConfig(root, cli)
	closeLog := setupLogging(cfg)
	defer closeLog()

	command, cmdArgs := cfg.Command, cfg.Args
	if len(cli.command) > 0 {
		command, cmdArgs = cli.command[0], cli.command[1:]
	}
	if strings.TrimSpace(command) == "" {
		log.Fatalf("no interpreter command configured")
	}
	rec, err := session.Create(command, cmdArgs, resolveWorkdir(cfg.Workdir))
	if err != nil {
		log.Fatalf("failed to create session: %v", err)
	}
	startInteractiveSession(cfg, rec, false)
}

func loadConfig(root rootArgs, cli *interactiveArgs) config.Config {
	path := root.cfgPath
	if cli != nil && cli.cfgPath != "" {
		path = cli.cfgPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	overrides := root.overrides
	if cli != nil {
		overrides = prependOverrides(root.overrides, cli.overrides())
	}
	return config.ApplyKVOverrides(cfg, overrides)
}

// setupLogging 按配置设置级别并把日志写到文件；TUI 运行期间终端不可用。
func setupLogging(cfg config.Config) func() {
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q: %v\n", cfg.LogLevel, err)
	}
	logFile, path, err := logger.SetupFile(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize log file: %v\n", err)
		return func() {}
	}
	log.WithField("path", path).Debugf("logging to file")
	return func() { logFile.Close() }
}

func startInteractiveSession(cfg config.Config, rec session.Record, resume bool) {
	store, err := session.History(rec.ID, cfg.ActionsLimit)
	if err != nil {
		log.Fatalf("failed to open session history: %v", err)
	}
	var actions []history.Action
	if resume {
		actions, err = store.Load()
		if err != nil {
			log.Fatalf("failed to load session history: %v", err)
		}
	}
	log.WithFields(logger.Fields{
		"session": rec.ID,
		"command": rec.CommandLine(),
		"replay":  len(actions),
	}).Infof("starting console session")

	bus := events.NewBus(0)
	sub := bus.Subscribe()
	proc := process.New(process.Options{
		Command: rec.Command,
		Args:    rec.Args,
		Workdir: rec.Workdir,
		Prompts: cfg.Prompts,
		PTY:     cfg.PTY,
	}, bus)

	ctx, cancel := context.WithCancel(context.Background())
	if err := proc.Start(ctx); err != nil {
		cancel()
		log.Fatalf("failed to start %s: %v", rec.CommandLine(), err)
	}

	result, runErr := tui.Run(tui.Options{
		Backend:     proc,
		Events:      sub,
		Store:       store,
		Replay:      actions,
		MaxLines:    cfg.MaxLines,
		SyntaxColor: cfg.SyntaxColor,
		Language:    syntaxLanguage(cfg, rec),
		ScrollDelay: time.Duration(cfg.ScrollDelayMs) * time.Millisecond,
		Title:       rec.CommandLine(),
		SessionID:   rec.ID,
	})

	// 先取消 ctx，读循环里阻塞的 Publish 才能退出。
	cancel()
	if err := proc.Close(); err != nil {
		log.Warnf("close interpreter: %v", err)
	}
	bus.Close()

	if err := store.Compact(); err != nil {
		log.Warnf("failed to compact session history: %v", err)
	}
	if err := session.Touch(rec.ID); err != nil {
		log.Warnf("failed to update session: %v", err)
	}
	if runErr != nil {
		log.Errorf("program exit: %v", runErr)
		fmt.Fprintf(os.Stderr, "program exit: %v\n", runErr)
		os.Exit(1)
	}
	printExitSummary(os.Stdout, result)
}

func syntaxLanguage(cfg config.Config, rec session.Record) string {
	if lang := strings.TrimSpace(cfg.SyntaxLanguage); lang != "" {
		return lang
	}
	return render.DetectLanguage(rec.Command)
}

func printExitSummary(w io.Writer, res tui.Result) {
	if res.Exited {
		fmt.Fprintf(w, "Interpreter exited with code %d\n", res.ExitCode)
	}
	if res.SessionID != "" {
		fmt.Fprintf(w, "To continue this session, run shellpane resume %s\n", res.SessionID)
	}
}

func resolveWorkdir(input string) string {
	if strings.TrimSpace(input) == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		return wd
	}
	if filepath.IsAbs(input) {
		return input
	}
	wd, err := os.Getwd()
	if err != nil {
		return input
	}
	return filepath.Join(wd, input)
}
