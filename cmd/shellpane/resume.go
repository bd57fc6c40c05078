package main

import "shellpane/internal/session"

func resumeMain(root rootArgs, args []string) {
	fs, cli := newInteractiveFlagSet("resume")
	var sessionID string
	var resumeLast bool
	fs.StringVar(&sessionID, "session", "", "Session id to resume")
	fs.BoolVar(&resumeLast, "last", false, "Resume most recent session")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse resume args: %v", err)
	}
	if sessionID == "" && fs.NArg() > 0 {
		sessionID = fs.Arg(0)
	}
	if sessionID == "" && !resumeLast {
		resumeLast = true
	}

	cfg := loadConfig(root, cli)
	closeLog := setupLogging(cfg)
	defer closeLog()

	rec, err := loadSession(sessionID, resumeLast)
	if err != nil {
		log.Fatalf("failed to load session: %v", err)
	}
	if cli.workdir != "" {
		rec.Workdir = resolveWorkdir(cli.workdir)
	}
	startInteractiveSession(cfg, rec, true)
}

func loadSession(id string, last bool) (session.Record, error) {
	if last && id == "" {
		return session.Last()
	}
	return session.Load(id)
}
