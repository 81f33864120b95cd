// Package runstate holds the process-wide run flag shared by every loop in
// the prime search. The flag is injected into each component at construction
// instead of living in a package-level global.
package runstate

import (
	"context"
	"sync/atomic"
)

// State pairs a one-shot running flag with a cancellation context. The flag
// gates every loop's continuation condition; the context unblocks goroutines
// parked on a queue or socket operation.
//
// Shutdown is two-phase by contract: Halt flips the flag (terminal, exactly
// once), Interrupt cancels the context. Callers halt first so that loops
// observing the flag exit cleanly, then interrupt to wake anything blocked.
type State struct {
	running int32 // atomic, 1 while running
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a State in the running position, derived from parent.
func New(parent context.Context) *State {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &State{
		running: 1,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Running reports whether the process is still in its running phase.
func (s *State) Running() bool {
	return atomic.LoadInt32(&s.running) == 1
}

// Halt flips the running flag to false. Returns true only for the call that
// performed the transition; later calls are no-ops. The flag never returns
// to true.
func (s *State) Halt() bool {
	return atomic.CompareAndSwapInt32(&s.running, 1, 0)
}

// Interrupt cancels the context, waking every goroutine blocked on a
// context-aware operation. Safe to call more than once.
func (s *State) Interrupt() {
	s.cancel()
}

// Context returns the cancellation context passed to blocking operations.
func (s *State) Context() context.Context {
	return s.ctx
}

// Done returns a channel closed once Interrupt has been called.
func (s *State) Done() <-chan struct{} {
	return s.ctx.Done()
}
