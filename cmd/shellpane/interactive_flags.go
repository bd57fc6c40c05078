package main

import (
	"flag"
	"strconv"
)

// interactiveArgs 是新建和恢复会话共用的参数。
type interactiveArgs struct {
	cfgPath         string
	workdir         string
	maxLines        int
	noPTY           bool
	noSyntax        bool
	configOverrides stringSlice
	command         []string
}

func newInteractiveFlagSet(name string) (*flag.FlagSet, *interactiveArgs) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	args := &interactiveArgs{}

	fs.StringVar(&args.cfgPath, "config", "", "Path to config file (default ~/.shellpane/config.toml)")
	fs.StringVar(&args.workdir, "cd", "", "Working directory of the interpreter")
	fs.StringVar(&args.workdir, "C", "", "Alias for --cd")
	fs.IntVar(&args.maxLines, "max-lines", 0, "Scrollback line limit (overrides max_lines)")
	fs.BoolVar(&args.noPTY, "no-pty", false, "Use pipes instead of a pseudo terminal")
	fs.BoolVar(&args.noSyntax, "no-syntax", false, "Disable syntax coloring of input")
	fs.Var(&args.configOverrides, "c", "Override config value key=value (repeatable)")

	return fs, args
}

// overrides 把命令行开关折算成 -c 形式，排在显式 -c 之后生效。
func (i *interactiveArgs) overrides() []string {
	out := append([]string{}, i.configOverrides...)
	if i.maxLines != 0 {
		out = append(out, "max_lines="+strconv.Itoa(i.maxLines))
	}
	if i.noPTY {
		out = append(out, "pty=false")
	}
	if i.noSyntax {
		out = append(out, "syntax_color=false")
	}
	if i.workdir != "" {
		out = append(out, "workdir="+i.workdir)
	}
	return out
}
