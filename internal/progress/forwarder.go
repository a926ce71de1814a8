// Package progress delivers snapshots to a caller's sink without letting a
// slow sink stall the producers.
package progress

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the number of pending snapshots kept when none is given.
const DefaultBuffer = 16

// Forwarder hands snapshots to a sink on its own goroutine.
//
// Snapshots are wholesale: each supersedes the previous one, so when the
// sink falls behind and the buffer fills, the oldest pending snapshot is
// dropped. Delivery order otherwise matches publish order.
type Forwarder[T any] struct {
	log  *slog.Logger
	sink func(T)
	ch   chan T
	done chan struct{}

	mu     sync.RWMutex
	closed bool

	dropped atomic.Int64
}

// NewForwarder starts a forwarder delivering to sink. buffer <= 0 means
// DefaultBuffer. log may be nil.
func NewForwarder[T any](log *slog.Logger, sink func(T), buffer int) *Forwarder[T] {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	f := &Forwarder[T]{
		log:  log.With("component", "progress"),
		sink: sink,
		ch:   make(chan T, buffer),
		done: make(chan struct{}),
	}

	go f.deliver()

	return f
}

func (f *Forwarder[T]) deliver() {
	defer close(f.done)

	for v := range f.ch {
		f.sink(v)
	}
}

// Publish queues v. It never blocks; it is a no-op after Close.
func (f *Forwarder[T]) Publish(v T) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return
	}

	for {
		select {
		case f.ch <- v:
			return
		default:
		}

		select {
		case <-f.ch:
			f.dropped.Add(1)
		default:
		}
	}
}

// Dropped returns how many snapshots were superseded before delivery.
func (f *Forwarder[T]) Dropped() int64 {
	return f.dropped.Load()
}

// Close stops accepting snapshots, delivers what is pending and waits for
// the sink to return. It is safe to call more than once.
func (f *Forwarder[T]) Close() {
	f.mu.Lock()

	if !f.closed {
		f.closed = true
		close(f.ch)
	}

	f.mu.Unlock()

	<-f.done

	if n := f.dropped.Load(); n > 0 {
		f.log.Debug("Superseded progress snapshots dropped", "count", n)
	}
}
