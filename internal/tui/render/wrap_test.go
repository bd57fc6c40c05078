package render

import (
	"slices"
	"testing"
)

func plain(text string) Line {
	return Line{Spans: []Span{{Text: text}}}
}

func TestWrapLineWithWideRunes(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []string
	}{
		{
			name:  "pure wide runes",
			text:  "你好世界",
			width: 4,
			want:  []string{"你好", "世界"},
		},
		{
			name:  "mix wide and ascii keeps spaces",
			text:  "你好 hello",
			width: 4,
			want:  []string{"你好", " hel", "lo"},
		},
		{
			name:  "fits",
			text:  "abc",
			width: 3,
			want:  []string{"abc"},
		},
		{
			name:  "empty line survives",
			text:  "",
			width: 5,
			want:  []string{""},
		},
		{
			name:  "tab expands before wrapping",
			text:  "a\tb",
			width: 20,
			want:  []string{"a       b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LinesToPlainStrings(WrapLine(plain(tt.text), tt.width))
			if !slices.Equal(got, tt.want) {
				t.Fatalf("WrapLine(%q,%d)=%q want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapLineKeepsSpanBoundaries(t *testing.T) {
	line := Line{Spans: []Span{{Text: "> "}, {Text: "print(1)"}}}
	got := WrapLine(line, 4)
	if len(got) != 3 {
		t.Fatalf("got %d lines: %q", len(got), LinesToPlainStrings(got))
	}
	if len(got[0].Spans) != 2 || got[0].Spans[0].Text != "> " || got[0].Spans[1].Text != "pr" {
		t.Fatalf("first line spans=%+v", got[0].Spans)
	}
	if got[2].Text() != "1)" {
		t.Fatalf("last line=%q", got[2].Text())
	}
}
