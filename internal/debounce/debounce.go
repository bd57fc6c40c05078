package debounce

import (
	"sync"
	"time"
)

// Coalescer 把一个时间窗内的多次 Nudge 合并为一次执行。
// 第一次 Nudge 启动计时，窗口内的后续 Nudge 不会推迟执行时间。
type Coalescer struct {
	mu      sync.Mutex
	delay   time.Duration
	fn      func()
	timer   *time.Timer
	pending bool
	seq     uint64
}

// New 创建 Coalescer；delay <= 0 时 Nudge 仍然异步执行。
func New(delay time.Duration, fn func()) *Coalescer {
	if delay < 0 {
		delay = 0
	}
	return &Coalescer{delay: delay, fn: fn}
}

// Nudge 请求执行一次；已有待执行时不做任何事。
func (c *Coalescer) Nudge() {
	if c == nil || c.fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return
	}
	c.pending = true
	c.seq++
	seq := c.seq
	c.timer = time.AfterFunc(c.delay, func() { c.fire(seq) })
}

func (c *Coalescer) fire(seq uint64) {
	c.mu.Lock()
	// Cancel 之后又 Nudge 时，旧计时器可能已经在路上。
	if !c.pending || seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.timer = nil
	fn := c.fn
	c.mu.Unlock()
	fn()
}

// Cancel 取消尚未执行的动作。
func (c *Coalescer) Cancel() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = false
}

// Pending 报告是否有待执行的动作。
func (c *Coalescer) Pending() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}
