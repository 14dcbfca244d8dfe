// File: reactor/registration.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"context"
	"sync"
	"time"
)

// Registration is a handle returned by the Reactor's factory methods.
// All methods except Activate must only be called from the Reactor's
// own goroutine; Activate is the single cross-thread-safe entry point.
type Registration struct {
	rx *Reactor

	mask       EventMask
	persistent bool
	noSelfRef  bool
	priority   int
	cb         Callback
	seq        uint64

	// timer bookkeeping
	deadline   time.Time
	lastDelay  time.Duration
	timerIndex int // index into the reactor's timer heap, -1 when absent

	// fd/self bookkeeping
	waiter     func(context.Context) (any, error)
	waitCancel context.CancelFunc
	waitStop   chan struct{}

	mu           sync.Mutex
	deleted      bool
	inReadyQueue bool
}

type fdResult struct {
	data any
	err  error
}

func newRegistration(rx *Reactor, mask EventMask, cb Callback, opts []Option) *Registration {
	r := &Registration{
		rx:         rx,
		mask:       mask,
		cb:         cb,
		priority:   0,
		timerIndex: -1,
		seq:        rx.nextSeq(),
	}
	for _, o := range opts {
		o(r)
	}
	if r.priority < 0 {
		r.priority = 0
	}
	return r
}

// Add arms a timer registration for the given delay from now, or
// re-arms it if already pending. Calling Add on a non-timer
// registration is a no-op kept only for interface parity.
func (r *Registration) Add(delay time.Duration) {
	if r.mask != EventTimer {
		return
	}
	r.mu.Lock()
	if r.deleted {
		r.mu.Unlock()
		return
	}
	r.lastDelay = delay
	r.deadline = time.Now().Add(delay)
	r.mu.Unlock()
	r.rx.armTimer(r)
}

// Del guarantees the callback will not fire after it returns, even if
// the registration was already sitting in the ready queue waiting to
// be drained: Del must only be called from the Reactor's own goroutine
// (see the type doc), the same goroutine that drains ready buckets in
// fireOne, so setting the deleted flag here always happens-before any
// later fireOne check for this registration within the same turn.
func (r *Registration) Del() {
	r.mu.Lock()
	r.deleted = true
	r.mu.Unlock()
	r.rx.removeTimer(r)
	if r.waitCancel != nil {
		r.waitCancel()
	}
	if r.waitStop != nil {
		select {
		case <-r.waitStop:
		default:
			close(r.waitStop)
		}
	}
}

// SetPriority changes the registration's priority. Non-negative only;
// lower numbers run first within a loop turn.
func (r *Registration) SetPriority(p int) {
	if p < 0 {
		p = 0
	}
	r.mu.Lock()
	r.priority = p
	r.mu.Unlock()
}

// Priority reports the current priority.
func (r *Registration) Priority() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.priority
}

// IsPending reports whether the registration is armed (in the timer
// heap) or already queued for dispatch (in a ready bucket).
func (r *Registration) IsPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timerIndex >= 0 || r.inReadyQueue
}

// Activate is the only method safe to call from a non-reactor thread.
// It enqueues a cross-thread wakeup the reactor observes on its next
// loop iteration. EnableThreads must have been called first.
func (r *Registration) Activate() {
	r.rx.activate(r, fdResult{})
}

// activateWithData is used internally by fd waiters to deliver a
// payload alongside the wakeup.
func (r *Registration) activateWithData(data any, err error) {
	r.rx.activate(r, fdResult{data: data, err: err})
}
