package main

import (
	"reflect"
	"testing"
)

func TestParseRootArgsStopsAtSubcommand(t *testing.T) {
	root, rest, err := parseRootArgs([]string{"-c", "k=v", "--config", "/tmp/c.toml", "resume", "--last"})
	if err != nil {
		t.Fatalf("parseRootArgs returned error: %v", err)
	}
	if !reflect.DeepEqual(root.overrides, []string{"k=v"}) {
		t.Fatalf("unexpected overrides: %v", root.overrides)
	}
	if root.cfgPath != "/tmp/c.toml" {
		t.Fatalf("cfgPath=%q", root.cfgPath)
	}
	if !reflect.DeepEqual(rest, []string{"resume", "--last"}) {
		t.Fatalf("unexpected rest args: %v", rest)
	}
}

func TestParseRootArgsRejectsUnknownFlags(t *testing.T) {
	if _, _, err := parseRootArgs([]string{"--nope"}); err == nil {
		t.Fatalf("expected error for unknown root flag")
	}
}

func TestInteractiveFlagsBecomeOverrides(t *testing.T) {
	fs, cli := newInteractiveFlagSet("test")
	err := fs.Parse([]string{"-c", "prompts=>>> ,... ", "--max-lines", "50", "--no-pty", "-C", "work", "--", "python3", "-i"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []string{"prompts=>>> ,... ", "max_lines=50", "pty=false", "workdir=work"}
	if got := cli.overrides(); !reflect.DeepEqual(got, want) {
		t.Fatalf("overrides=%q want %q", got, want)
	}
	if !reflect.DeepEqual(fs.Args(), []string{"python3", "-i"}) {
		t.Fatalf("command args=%v", fs.Args())
	}
}

func TestLoadConfigAppliesOverridesInOrder(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHELLPANE_COMMAND", "")
	root := rootArgs{overrides: []string{"max_lines=10", "command=python3"}}
	cli := &interactiveArgs{maxLines: 20}
	cfg := loadConfig(root, cli)
	if cfg.MaxLines != 20 {
		t.Fatalf("subcommand flags should win, MaxLines=%d", cfg.MaxLines)
	}
	if cfg.Command != "python3" {
		t.Fatalf("Command=%q", cfg.Command)
	}
}
