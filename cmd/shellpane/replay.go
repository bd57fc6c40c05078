package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"shellpane/internal/buffer"
	"shellpane/internal/history"
	"shellpane/internal/logger"
	"shellpane/internal/replay"
	"shellpane/internal/session"
)

func replayMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("replay", flag.ExitOnError)
	var resumeLast bool
	var maxLines int
	fs.BoolVar(&resumeLast, "last", false, "Replay the most recent session")
	fs.IntVar(&maxLines, "max-lines", -1, "Scrollback line limit (default from config)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse replay args: %v", err)
	}
	id := fs.Arg(0)
	if id == "" && !resumeLast {
		log.Fatalf("usage: shellpane replay [--last] <session-id>")
	}

	cfg := loadConfig(root, nil)
	if maxLines >= 0 {
		cfg.MaxLines = maxLines
	}
	rec, err := loadSession(id, resumeLast)
	if err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	store, err := session.History(rec.ID, cfg.ActionsLimit)
	if err != nil {
		log.Fatalf("failed to open session history: %v", err)
	}
	actions, err := store.Load()
	if err != nil {
		log.Fatalf("failed to load session history: %v", err)
	}
	if err := writeReplay(context.Background(), os.Stdout, actions, cfg.MaxLines); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

// writeReplay 不经过 TUI，把 action 回放进一个缓冲后输出纯文本。
func writeReplay(ctx context.Context, w io.Writer, actions []history.Action, maxLines int) error {
	buf := buffer.New(maxLines)
	r := replay.New(buf, actions)
	if err := r.Run(ctx); err != nil {
		return err
	}
	log.WithFields(logger.Fields{
		"state":   r.State().String(),
		"applied": r.Applied(),
		"lines":   buf.LineCount(),
	}).Debugf("replay finished")
	_, err := fmt.Fprint(w, buf.Text())
	return err
}
