// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reactor is the single-threaded event loop described in spec §4.1:
// one goroutine drains fd readiness, timers and self-activated events
// in strict, re-checked priority order. The only operation safe to
// call from outside the loop goroutine is Registration.Activate.

package reactor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/zap"
)

// Reactor owns the fd-to-registration bookkeeping, the timer min-heap
// and the priority-indexed ready buckets described in spec §3.
type Reactor struct {
	logger *zap.Logger

	mu      sync.Mutex // guards buckets/activePri; only touched on the loop goroutine plus Stop/bookkeeping
	timers  *timerHeap
	buckets map[int]*queue.Queue
	active  *intHeap

	activateCh chan activation
	stopCh     chan struct{}
	doneCh     chan struct{}

	running     atomic.Bool
	threadsOK   atomic.Bool
	seqCounter  atomic.Uint64
}

type activation struct {
	reg    *Registration
	result fdResult
}

// New constructs a Reactor. logger may be nil (a nop logger is used).
func New(logger *zap.Logger) *Reactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reactor{
		logger:     logger,
		timers:     newTimerHeap(),
		buckets:    make(map[int]*queue.Queue),
		active:     newIntHeap(),
		activateCh: make(chan activation, 4096),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

func (rx *Reactor) nextSeq() uint64 { return rx.seqCounter.Add(1) }

// EnableThreads must be called before any cross-thread Activate is
// used. Failure to do so is a hard configuration error (spec §4.1,
// §7: "Configuration errors ... fatal at startup").
func (rx *Reactor) EnableThreads() { rx.threadsOK.Store(true) }

// NewTimerEvent creates a one-shot (or, with FlagPersistent, recurring)
// timer registration. Call Add on the returned Registration to arm it.
func (rx *Reactor) NewTimerEvent(cb Callback, opts ...Option) *Registration {
	return newRegistration(rx, EventTimer, cb, opts)
}

// NewSelfEvent creates a registration intended to be fired exclusively
// via Activate, typically from a WorkerPool completion goroutine.
// Self events are persistent by default since they are reused across
// many activations.
func (rx *Reactor) NewSelfEvent(cb Callback, opts ...Option) *Registration {
	r := newRegistration(rx, EventSelf, cb, nil)
	r.persistent = true
	for _, o := range opts {
		o(r)
	}
	return r
}

// NewFdEvent registers a readiness source. waiter runs on a dedicated
// background goroutine (never the reactor goroutine) and blocks until
// data is available or ctx is cancelled; its result is delivered to cb
// on the reactor goroutine. If persistent, waiter is invoked again
// after each delivery until Del is called.
func (rx *Reactor) NewFdEvent(mask EventMask, waiter func(context.Context) (any, error), cb Callback, opts ...Option) *Registration {
	r := newRegistration(rx, mask, cb, opts)
	r.waiter = waiter
	r.waitStop = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	r.waitCancel = cancel

	go r.watch(ctx)
	return r
}

func (r *Registration) watch(ctx context.Context) {
	for {
		data, err := r.waiter(ctx)
		select {
		case <-r.waitStop:
			return
		case <-ctx.Done():
			return
		default:
		}
		r.activateWithData(data, err)
		if !r.persistent {
			return
		}
		select {
		case <-r.waitStop:
			return
		case <-ctx.Done():
			return
		default:
		}
	}
}

// activate is the cross-thread-safe enqueue used by both Activate and
// fd waiters. It panics with ErrThreadsNotEnabled if EnableThreads was
// never called, matching the source's hard startup-configuration check.
func (rx *Reactor) activate(reg *Registration, result fdResult) {
	if !rx.threadsOK.Load() {
		panic(ErrThreadsNotEnabled)
	}
	select {
	case rx.activateCh <- activation{reg: reg, result: result}:
	case <-rx.stopCh:
	}
}

func (rx *Reactor) armTimer(reg *Registration) {
	rx.mu.Lock()
	rx.timers.push(reg)
	rx.mu.Unlock()
}

func (rx *Reactor) removeTimer(reg *Registration) {
	rx.mu.Lock()
	rx.timers.remove(reg)
	rx.mu.Unlock()
}

// Run drives the single-threaded loop: (1) compute a timeout from the
// timer heap, (2) wait for that timeout or a cross-thread activation,
// (3) move expired timers and drained activations into per-priority
// ready buckets, (4) drain buckets in strict ascending-priority order,
// re-checking for newly-activated higher-priority work between levels.
func (rx *Reactor) Run() error {
	if !rx.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		rx.running.Store(false)
		close(rx.doneCh)
	}()

	for {
		timeout := rx.nextTimeout()
		timer := time.NewTimer(timeout)

		select {
		case <-rx.stopCh:
			stopTimer(timer)
			return nil
		case act := <-rx.activateCh:
			stopTimer(timer)
			rx.deliver(act)
		case <-timer.C:
		}

		rx.drainActivationsNonBlocking()
		rx.expireTimers()
		rx.drainReady()
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (rx *Reactor) nextTimeout() time.Duration {
	rx.mu.Lock()
	reg, ok := rx.timers.peek()
	rx.mu.Unlock()
	if !ok {
		return time.Hour
	}
	d := time.Until(reg.deadline)
	if d < 0 {
		return 0
	}
	return d
}

func (rx *Reactor) drainActivationsNonBlocking() {
	for {
		select {
		case act := <-rx.activateCh:
			rx.deliver(act)
		default:
			return
		}
	}
}

func (rx *Reactor) deliver(act activation) {
	rx.enqueueReady(act.reg, act.result)
}

func (rx *Reactor) expireTimers() {
	now := time.Now()
	rx.mu.Lock()
	var fired []*Registration
	for {
		reg, ok := rx.timers.peek()
		if !ok || reg.deadline.After(now) {
			break
		}
		rx.timers.remove(reg)
		fired = append(fired, reg)
	}
	rx.mu.Unlock()

	for _, reg := range fired {
		reg.mu.Lock()
		deleted := reg.deleted
		persistent := reg.persistent
		delay := reg.lastDelay
		reg.mu.Unlock()
		if deleted {
			continue
		}
		if persistent && delay > 0 {
			reg.mu.Lock()
			reg.deadline = now.Add(delay)
			reg.mu.Unlock()
			rx.armTimer(reg)
		}
		rx.enqueueReady(reg, fdResult{})
	}
}

func (rx *Reactor) enqueueReady(reg *Registration, result fdResult) {
	reg.mu.Lock()
	if reg.deleted {
		reg.mu.Unlock()
		return
	}
	if reg.inReadyQueue {
		reg.mu.Unlock()
		return
	}
	reg.inReadyQueue = true
	pri := reg.priority
	reg.mu.Unlock()

	rx.mu.Lock()
	q, ok := rx.buckets[pri]
	if !ok {
		q = queue.New()
		rx.buckets[pri] = q
		rx.active.pushPriority(pri)
	}
	q.Add(readyItem{reg: reg, result: result})
	rx.mu.Unlock()
}

type readyItem struct {
	reg    *Registration
	result fdResult
}

// drainReady processes ready buckets in strict ascending-priority
// (= descending urgency) order, re-checking the activation channel
// between levels so higher-priority completions preempt queued
// lower-priority I/O, per spec §4.1 and invariant P5.
func (rx *Reactor) drainReady() {
	for {
		rx.mu.Lock()
		pri, ok := rx.active.peekMin()
		if !ok {
			rx.mu.Unlock()
			return
		}
		q := rx.buckets[pri]
		rx.mu.Unlock()

		for {
			rx.mu.Lock()
			if q.Length() == 0 {
				delete(rx.buckets, pri)
				rx.active.popMin()
				rx.mu.Unlock()
				break
			}
			item := q.Peek().(readyItem)
			q.Remove()
			rx.mu.Unlock()

			rx.fireOne(item)
		}

		rx.drainActivationsNonBlocking()
	}
}

// fireOne checks reg.deleted immediately before invoking the callback,
// which is what makes Registration.Del fully suppressing even for an
// item already parked in a ready bucket: Del can only run on this same
// goroutine, strictly before or after this check, never concurrently
// with it.
func (rx *Reactor) fireOne(item readyItem) {
	reg := item.reg
	reg.mu.Lock()
	if reg.deleted {
		reg.inReadyQueue = false
		reg.mu.Unlock()
		return
	}
	reg.inReadyQueue = false
	if reg.mask != EventTimer && !reg.persistent {
		reg.deleted = true
	}
	cb := reg.cb
	reg.mu.Unlock()

	ev := Event{Reg: reg, Data: item.result.data, Err: item.result.err}
	rx.safeInvoke(cb, ev)
}

func (rx *Reactor) safeInvoke(cb Callback, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			rx.logger.Error("reactor: callback panic recovered", zap.Any("recover", r))
		}
	}()
	cb(ev)
}

// Stop causes Run to return after the current iteration.
func (rx *Reactor) Stop() {
	select {
	case <-rx.stopCh:
	default:
		close(rx.stopCh)
	}
	if rx.running.Load() {
		<-rx.doneCh
	}
}
