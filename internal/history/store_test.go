package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStoreAppendAndLoad(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "sub", "actions.jsonl")
	s := &Store{Path: path}

	if got, err := s.Load(); err != nil || len(got) != 0 {
		t.Fatalf("Load on missing file: got=%v err=%v", got, err)
	}

	if err := s.Append(
		Action{Type: Prompt, Data: "> "},
		Action{Type: Input, Data: "1 + 1"},
		Action{Type: Output, Data: ""},
		Action{Type: Output, Data: "[1] 2\n"},
		Action{Type: Prompt, Data: ""},
		Action{Type: Input, Data: ""},
	); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Action{
		{Type: Prompt, Data: "> "},
		{Type: Input, Data: "1 + 1"},
		{Type: Output, Data: "[1] 2\n"},
		{Type: Input, Data: ""},
	}
	if len(got) != len(want) {
		t.Fatalf("Load len=%d want=%d: %#v", len(got), len(want), got)
	}
	for i := range want {
		if got[i].Type != want[i].Type || got[i].Data != want[i].Data {
			t.Fatalf("Load[%d]=%+v want=%+v", i, got[i], want[i])
		}
		if got[i].TS.IsZero() {
			t.Fatalf("Load[%d] missing timestamp", i)
		}
	}
}

func TestStoreSkipsGarbage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "actions.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join([]string{
		`{"type":"input","data":"x","ts":"2025-01-01T00:00:00Z"}`,
		`{not json}`,
		`{"type":"bogus","data":"y","ts":"2025-01-01T00:00:00Z"}`,
		`{"type":"error","data":"boom","ts":"2025-01-01T00:00:00Z"}`,
		"",
	}, "\n")), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := (&Store{Path: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Type != Input || got[1].Type != Error || got[1].Data != "boom" {
		t.Fatalf("Load=%+v", got)
	}
}

func TestStoreLimitAndCompact(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "actions.jsonl")
	s := &Store{Path: path, Limit: 3}
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		if err := s.Append(Action{Type: Output, Data: d}); err != nil {
			t.Fatalf("Append %s: %v", d, err)
		}
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 3 || got[0].Data != "c" || got[2].Data != "e" {
		t.Fatalf("Load=%+v", got)
	}

	if err := s.Compact(); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if n := strings.Count(string(raw), "\n"); n != 3 {
		t.Fatalf("compacted file has %d lines, want 3:\n%s", n, raw)
	}
}

func TestStoreErrors(t *testing.T) {
	t.Parallel()

	var s *Store
	if err := s.Append(Action{Type: Output, Data: "hi"}); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := s.Load(); err == nil {
		t.Fatalf("expected error for nil store Load")
	}

	s = &Store{}
	if err := s.Append(Action{Type: Output, Data: "hi"}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestActionTypeText(t *testing.T) {
	for _, typ := range []ActionType{Prompt, Input, Output, Error} {
		b, err := typ.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", typ, err)
		}
		var back ActionType
		if err := back.UnmarshalText(b); err != nil || back != typ {
			t.Fatalf("UnmarshalText(%q)=%v err=%v", b, back, err)
		}
	}
	if _, err := ActionType(9).MarshalText(); err == nil {
		t.Fatalf("expected error for invalid type")
	}
}
