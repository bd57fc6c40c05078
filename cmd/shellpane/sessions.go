package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"shellpane/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func sessionsMain(root rootArgs, args []string) {
	fs := flag.NewFlagSet("sessions", flag.ExitOnError)
	var limit int
	fs.IntVar(&limit, "n", 20, "Maximum number of sessions to list (0 = all)")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse sessions args: %v", err)
	}
	records, err := session.List()
	if err != nil {
		log.Fatalf("failed to load sessions: %v", err)
	}
	records = session.Filter(records, strings.Join(fs.Args(), " "))
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if len(records) == 0 {
		fmt.Println("no sessions")
		return
	}
	writeSessions(os.Stdout, records, time.Now())
}

func writeSessions(w io.Writer, records []session.Record, now time.Time) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("ID", "UPDATED", "COMMAND", "WORKDIR").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, rec := range records {
		t.Row(rec.ID, fmtAge(now.Sub(rec.Updated)), rec.CommandLine(), rec.Workdir)
	}
	fmt.Fprintln(w, t.String())
}

// fmtAge 把时间差格式化为 "5m ago" 这样的简短文本。
func fmtAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}
