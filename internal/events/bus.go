package events

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusClosed 表示总线已关闭。
var ErrBusClosed = errors.New("event bus closed")

// Bus 把 console 事件广播给所有订阅者。
// 与丢弃式广播不同，这里的 Publish 会等待慢订阅者：丢一段输出就等于丢了屏幕内容。
type Bus struct {
	mu     sync.RWMutex
	subs   []chan ConsoleEvent
	buffer int
	done   chan struct{}
	once   sync.Once
}

// NewBus 创建总线，buffer 是每个订阅者的缓存大小。
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 256
	}
	return &Bus{buffer: buffer, done: make(chan struct{})}
}

// Subscribe 订阅事件流。通道会在 Close 时关闭。
func (b *Bus) Subscribe() <-chan ConsoleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan ConsoleEvent, b.buffer)
	if b.closed() {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// Publish 按顺序投递给每个订阅者，必要时阻塞；ctx 取消或总线关闭时返回错误。
func (b *Bus) Publish(ctx context.Context, evt ConsoleEvent) error {
	if evt.TS.IsZero() {
		evt.TS = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed() {
		return ErrBusClosed
	}
	for _, ch := range b.subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-b.done:
			return ErrBusClosed
		case ch <- evt:
		}
	}
	return nil
}

// Close 关闭总线和所有订阅通道，可重复调用。
func (b *Bus) Close() {
	b.once.Do(func() {
		// 先关闭 done，让阻塞中的 Publish 释放读锁。
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, ch := range b.subs {
			close(ch)
		}
		b.subs = nil
	})
}

// SubscriberCount 返回当前订阅者数量。
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
