// Package eventbus fans delivery outcomes out to in-process observers.
package eventbus

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one signal. Data carries a type specific payload.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// Bus never blocks a publisher. A subscriber whose buffer is full misses
// the event and the loss is counted.
type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

const defaultBuffer = 8

// New returns an in-memory bus. It starts no goroutines.
func New() Bus { return &memBus{} }

// Nop returns a bus that discards everything.
func Nop() Bus { return nopBus{} }

type nopBus struct{}

func (nopBus) Publish(Event) {}

func (nopBus) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}

type subscriber struct {
	ch chan Event
}

type memBus struct {
	// Publish sends under the read lock and unsubscribe closes under the
	// write lock, so a send never hits a closed channel.
	mu   sync.RWMutex
	subs []*subscriber

	dropped atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		select {
		case s.ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() { once.Do(func() { b.remove(s) }) }
}

func (b *memBus) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = slices.DeleteFunc(b.subs, func(x *subscriber) bool { return x == s })
	close(s.ch)
}

// Dropped reports how many events slow subscribers missed on b.
func Dropped(b Bus) uint64 {
	if mb, ok := b.(*memBus); ok {
		return mb.dropped.Load()
	}
	return 0
}
