package render

import (
	"strings"
	"testing"
)

func spanTexts(spans []Span) []string {
	texts := make([]string, 0, len(spans))
	for _, sp := range spans {
		texts = append(texts, sp.Text)
	}
	return texts
}

func TestHighlighterSpansKeepText(t *testing.T) {
	line := `if (x == "a#b") 1.5e3 # note`
	spans := NewHighlighter("r", "").Spans(line, DefaultPalette().Command)
	texts := spanTexts(spans)
	if joined := strings.Join(texts, ""); joined != line {
		t.Fatalf("spans lost text: %q", joined)
	}
	if len(spans) < 3 {
		t.Fatalf("expected the line to be split into tokens, got %q", texts)
	}
	if texts[0] != "if" {
		t.Fatalf("keyword should be its own span, got %q", texts)
	}
	var str, comment bool
	for _, text := range texts {
		str = str || strings.Contains(text, `"a#b"`)
		comment = comment || strings.HasSuffix(text, "# note")
	}
	if !str || !comment {
		t.Fatalf("string or comment split apart: %q", texts)
	}
}

func TestHighlighterNilAndEmpty(t *testing.T) {
	var h *Highlighter
	spans := h.Spans("x <- 1", DefaultPalette().Command)
	if len(spans) != 1 || spans[0].Text != "x <- 1" {
		t.Fatalf("nil highlighter should return the line as one span, got %+v", spans)
	}
	if got := NewHighlighter("r", "").Spans("", DefaultPalette().Command); got != nil {
		t.Fatalf("empty line should have no spans, got %+v", got)
	}
}

func TestHighlighterUnknownLanguageFallsBack(t *testing.T) {
	h := NewHighlighter("no-such-language", "no-such-style")
	spans := h.Spans("anything at all", DefaultPalette().Command)
	if strings.Join(spanTexts(spans), "") != "anything at all" {
		t.Fatalf("fallback lexer lost text: %+v", spans)
	}
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		command string
		lexer   string
	}{
		{command: "R", lexer: "R"},
		{command: "/usr/bin/python3", lexer: "Python"},
		{command: "python3 -i", lexer: "Python"},
	}
	for _, tc := range cases {
		if got := NewHighlighter(DetectLanguage(tc.command), "").Language(); got != tc.lexer {
			t.Fatalf("DetectLanguage(%q) resolved to lexer %q want %q", tc.command, got, tc.lexer)
		}
	}
	if DetectLanguage("  ") != "" {
		t.Fatalf("blank command should not detect a language")
	}
}
