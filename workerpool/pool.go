// File: workerpool/pool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Pool is a fixed-size worker pool consuming a max-heap priority ready
// queue and delivering results through a max-heap priority completed
// queue drained on a reactor.Reactor goroutine, ported from cbang's
// Event::ConcurrentPool (see original_source/src/cbang/event/ConcurrentPool.cpp).

package workerpool

import (
	"context"
	"errors"
	"sync"

	"github.com/momentics/evhttp/reactor"
	"go.uber.org/zap"
)

// ErrClosed is returned by Submit once the pool has been stopped.
var ErrClosed = errors.New("workerpool: closed")

type completedItem struct {
	task   Task
	failed bool
	err    error
}

// Pool manages size fixed goroutine workers. ready and completed are
// guarded by a single mutex + condition variable, exactly as spec §4.2
// and the source specify.
type Pool struct {
	logger *zap.Logger

	mu        sync.Mutex
	cond      *sync.Cond
	ready     *priorityQueue
	completed *priorityQueue
	closed    bool

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	ctx     context.Context
	selfEvt *reactor.Registration
}

// New builds a Pool of size workers whose completions are delivered by
// activating a self-event on rx. size is clamped to at least 1.
// rx.EnableThreads must already have been called, since pool workers
// activate the completion event from goroutines other than the
// reactor's own.
func New(rx *reactor.Reactor, size int, logger *zap.Logger) *Pool {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		logger:    logger,
		ready:     newPriorityQueue(),
		completed: newPriorityQueue(),
		ctx:       ctx,
		cancel:    cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	p.selfEvt = rx.NewSelfEvent(func(reactor.Event) { p.drainCompleted() })

	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}
	return p
}

// Submit enqueues task for execution, signaling one worker.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.ready.push(task.Priority(), task)
	p.cond.Signal()
	return nil
}

// NumReady reports the number of tasks waiting to run.
func (p *Pool) NumReady() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready.len()
}

// NumCompleted reports the number of tasks awaiting reactor-side delivery.
func (p *Pool) NumCompleted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completed.len()
}

// Stop marks the pool closed and wakes every worker; it does not wait
// for in-flight tasks to finish. Use Join for that.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		p.cancel()
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// Join stops the pool and blocks until every worker goroutine has
// exited. By then every queued task's Run has returned and its result
// sits in the completed queue; Join does not wait for the reactor to
// fire Success/Error/Complete, so those callbacks may still be pending
// when it returns.
func (p *Pool) Join() {
	p.Stop()
	p.wg.Wait()
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for p.ready.len() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed && p.ready.len() == 0 {
			p.mu.Unlock()
			return
		}
		item, ok := p.ready.pop()
		p.mu.Unlock()
		if !ok {
			continue
		}
		task := item.(Task)
		p.execute(task)
	}
}

func (p *Pool) execute(task Task) {
	err := p.safeRun(task)

	p.mu.Lock()
	p.completed.push(task.Priority(), completedItem{task: task, failed: err != nil, err: err})
	p.mu.Unlock()

	p.selfEvt.Activate()
}

// safeRun executes task.Run, converting a recovered panic into a
// structured error per spec §4.2's error-capture rule: an existing
// error keeps its message; any other recovered value becomes the
// literal "unknown panic" (the Go analog of the source's "Unknown
// exception" string).
func (p *Pool) safeRun(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
				return
			}
			err = errors.New("unknown panic")
		}
	}()
	return task.Run(p.ctx)
}

// drainCompleted runs on the reactor goroutine (invoked via the pool's
// self-event). It releases the lock around each task's callbacks so a
// slow or panicking callback can't stall other workers from pushing
// new completions, matching spec §4.2's dispatch rule.
func (p *Pool) drainCompleted() {
	for {
		p.mu.Lock()
		item, ok := p.completed.pop()
		p.mu.Unlock()
		if !ok {
			return
		}
		ci := item.(completedItem)
		p.fireCallbacks(ci)
	}
}

func (p *Pool) fireCallbacks(ci completedItem) {
	p.guarded(func() {
		if ci.failed {
			ci.task.Error(ci.err)
		} else {
			ci.task.Success()
		}
	})
	p.guarded(ci.task.Complete)
}

// guarded runs fn, logging and discarding any panic so one bad
// callback can't abort the drain or skip the Complete that must
// always follow Success/Error exactly once (spec P2).
func (p *Pool) guarded(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("workerpool: task callback panic recovered", zap.Any("recover", r))
		}
	}()
	fn()
}
