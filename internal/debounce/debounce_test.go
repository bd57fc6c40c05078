package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNudgeCoalesces(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{}, 4)
	c := New(20*time.Millisecond, func() {
		calls.Add(1)
		done <- struct{}{}
	})

	for i := 0; i < 10; i++ {
		c.Nudge()
	}
	if !c.Pending() {
		t.Fatalf("expected pending after Nudge")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("action never fired")
	}
	// 等一个窗口，确认没有第二次执行。
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d want 1", got)
	}
	if c.Pending() {
		t.Fatalf("expected no pending action after fire")
	}

	c.Nudge()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("second window never fired")
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls=%d want 2", got)
	}
}

func TestCancel(t *testing.T) {
	var calls atomic.Int32
	c := New(20*time.Millisecond, func() { calls.Add(1) })
	c.Nudge()
	c.Cancel()
	if c.Pending() {
		t.Fatalf("Cancel should clear pending")
	}
	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("calls=%d want 0", got)
	}
}

func TestNilSafe(t *testing.T) {
	var c *Coalescer
	c.Nudge()
	c.Cancel()
	if c.Pending() {
		t.Fatalf("nil coalescer reports pending")
	}
	New(time.Millisecond, nil).Nudge()
}
