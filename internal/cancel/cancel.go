// Package cancel binds a cancellation signal to the two-phase termination of
// a spawned process: a graceful request first, then a forced kill once the
// grace window has elapsed.
package cancel

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Process is the part of a spawned process the gateway controls.
type Process interface {
	Terminate() error
	Kill() error
}

// Binding ties one process to one cancellation signal.
// Release must be called once the process has exited.
type Binding struct {
	log   *slog.Logger
	proc  Process
	grace time.Duration

	mu       sync.Mutex
	stop     func() bool
	timer    *time.Timer
	released bool

	aborted atomic.Bool
}

// Bind attaches ctx to proc.
//
// If ctx is already done the process is killed immediately. Otherwise a
// one-shot listener is registered: when ctx is cancelled the process is asked
// to terminate, and killed if it is still running after grace.
func Bind(ctx context.Context, log *slog.Logger, proc Process, grace time.Duration) *Binding {
	b := &Binding{
		log:   log.With("component", "cancel_gateway"),
		proc:  proc,
		grace: grace,
	}

	if ctx == nil || ctx.Done() == nil {
		return b
	}

	if ctx.Err() != nil {
		b.log.Debug("Signal already active at spawn, killing process")
		b.aborted.Store(true)

		if err := proc.Kill(); err != nil {
			b.log.Debug("Kill failed", "error", err)
		}

		return b
	}

	b.mu.Lock()
	b.stop = context.AfterFunc(ctx, b.terminate)
	b.mu.Unlock()

	return b
}

func (b *Binding) terminate() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}

	err := b.proc.Terminate()
	if stderrors.Is(err, os.ErrProcessDone) {
		return
	}

	b.aborted.Store(true)

	if err != nil {
		b.log.Debug("Graceful termination failed, killing process", "error", err)

		if err := b.proc.Kill(); err != nil {
			b.log.Debug("Kill failed", "error", err)
		}

		return
	}

	b.log.Debug("Sent termination request", "grace", b.grace)
	b.timer = time.AfterFunc(b.grace, b.kill)
}

func (b *Binding) kill() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.released {
		return
	}

	b.log.Debug("Grace window elapsed, killing process")

	if err := b.proc.Kill(); err != nil {
		b.log.Debug("Kill failed", "error", err)
	}
}

// Release deregisters the listener and stops any pending kill timer.
// It is safe to call more than once.
func (b *Binding) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.released = true

	if b.stop != nil {
		b.stop()
	}

	if b.timer != nil {
		b.timer.Stop()
	}
}

// Aborted reports whether the gateway terminated the process.
func (b *Binding) Aborted() bool {
	return b.aborted.Load()
}
