package render

import (
	"slices"
	"testing"

	"shellpane/internal/buffer"
)

func TestRenderRunsJoinsPromptAndInput(t *testing.T) {
	runs := []buffer.Run{
		{Class: buffer.Output, Text: "hello\n"},
		{Class: buffer.Prompt | buffer.Keyword, Text: "> "},
		{Class: buffer.Command | buffer.Keyword, Text: "x <- 1\n"},
		{Class: buffer.Error, Text: "oops"},
	}
	lines := RenderRuns(runs, ConsoleOptions{Palette: DefaultPalette()})
	got := LinesToPlainStrings(lines)
	want := []string{"hello", "> x <- 1", "oops"}
	if !slices.Equal(got, want) {
		t.Fatalf("RenderRuns=%q want %q", got, want)
	}
	if len(lines[1].Spans) != 2 {
		t.Fatalf("prompt line should keep two spans, got %+v", lines[1].Spans)
	}
}

func TestRenderRunsBlankLinesAndWrap(t *testing.T) {
	runs := []buffer.Run{{Class: buffer.Output, Text: "a\n\nbcdefg\n"}}
	got := LinesToPlainStrings(RenderRuns(runs, ConsoleOptions{Width: 4}))
	want := []string{"a", "", "bcde", "fg"}
	if !slices.Equal(got, want) {
		t.Fatalf("RenderRuns=%q want %q", got, want)
	}
}

func TestRenderRunsSyntaxColorKeepsText(t *testing.T) {
	runs := []buffer.Run{{Class: buffer.Command | buffer.Keyword, Text: "f <- function(x) x + 1 # inc\n"}}
	plainLines := RenderRuns(runs, ConsoleOptions{})
	colored := RenderRuns(runs, ConsoleOptions{Syntax: NewHighlighter("r", "")})
	if plainLines[0].Text() != colored[0].Text() {
		t.Fatalf("syntax color changed text: %q vs %q", plainLines[0].Text(), colored[0].Text())
	}
	if len(colored[0].Spans) <= 1 {
		t.Fatalf("expected several spans, got %+v", colored[0].Spans)
	}
	if len(plainLines[0].Spans) != 1 {
		t.Fatalf("without a highlighter the input stays one span, got %+v", plainLines[0].Spans)
	}
}
