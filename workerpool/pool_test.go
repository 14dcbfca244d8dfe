// File: workerpool/pool_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package workerpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/evhttp/reactor"
)

// goroutineID extracts the calling goroutine's numeric ID from its own
// stack trace. Test-only instrumentation for asserting callback
// affinity to the Reactor's single loop goroutine (spec §8 scenario 6).
func goroutineID() uint64 {
	buf := make([]byte, 64)
	n := runtime.Stack(buf, false)
	var id uint64
	fmt.Sscanf(string(buf[:n]), "goroutine %d ", &id)
	return id
}

func newRunningReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	rx := reactor.New(nil)
	rx.EnableThreads()
	go rx.Run()
	t.Cleanup(rx.Stop)
	return rx
}

func TestSubmitNTasksJoinFiresNComplete(t *testing.T) {
	rx := newRunningReactor(t)
	pool := New(rx, 4, nil)

	// Record the Reactor loop's own goroutine ID via a self-event, so
	// every task callback below can be checked against it.
	var reactorGoid uint64
	idKnown := make(chan struct{})
	probe := rx.NewSelfEvent(func(reactor.Event) {
		reactorGoid = goroutineID()
		close(idKnown)
	})
	probe.Activate()
	<-idKnown

	const n = 100
	var completes atomic.Int32
	var successes atomic.Int32
	var offReactor atomic.Int32
	var wg sync.WaitGroup
	wg.Add(n)

	checkOnReactor := func() {
		if goroutineID() != reactorGoid {
			offReactor.Add(1)
		}
	}

	for i := 0; i < n; i++ {
		task := NewFuncTask(0,
			func(ctx context.Context) error { return nil },
			func() { checkOnReactor(); successes.Add(1) },
			func(error) { checkOnReactor() },
			func() { checkOnReactor(); completes.Add(1); wg.Done() },
		)
		require.NoError(t, pool.Submit(task))
	}

	waitOrTimeout(t, &wg, 2*time.Second)
	pool.Join()

	assert.EqualValues(t, n, completes.Load())
	assert.EqualValues(t, n, successes.Load())
	assert.EqualValues(t, 0, offReactor.Load(), "every success/error/complete callback must run on the Reactor goroutine")
}

func TestFailedTaskFiresErrorThenComplete(t *testing.T) {
	rx := newRunningReactor(t)
	pool := New(rx, 2, nil)
	defer pool.Join()

	done := make(chan struct{})
	var gotErr error
	var order []string
	var mu sync.Mutex

	boom := errors.New("boom")
	task := NewFuncTask(0,
		func(ctx context.Context) error { return boom },
		func() { mu.Lock(); order = append(order, "success"); mu.Unlock() },
		func(err error) { mu.Lock(); gotErr = err; order = append(order, "error"); mu.Unlock() },
		func() { mu.Lock(); order = append(order, "complete"); mu.Unlock(); close(done) },
	)
	require.NoError(t, pool.Submit(task))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, boom, gotErr)
	assert.Equal(t, []string{"error", "complete"}, order)
}

func TestPanicInRunBecomesCapturedError(t *testing.T) {
	rx := newRunningReactor(t)
	pool := New(rx, 1, nil)
	defer pool.Join()

	done := make(chan error, 1)
	task := NewFuncTask(0,
		func(ctx context.Context) error { panic("kaboom") },
		func() {},
		func(err error) { done <- err },
		func() {},
	)
	require.NoError(t, pool.Submit(task))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, "unknown panic", err.Error())
	case <-time.After(time.Second):
		t.Fatal("task never completed")
	}
}

func TestSubmitAfterJoinReturnsErrClosed(t *testing.T) {
	rx := newRunningReactor(t)
	pool := New(rx, 1, nil)
	pool.Join()

	err := pool.Submit(NewFuncTask(0, func(context.Context) error { return nil }, nil, nil, nil))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHigherPriorityTaskRunsFirstAmongQueued(t *testing.T) {
	rx := newRunningReactor(t)
	// Single worker so ordering in the ready queue is observable.
	pool := New(rx, 1, nil)
	defer pool.Join()

	block := make(chan struct{})
	var order []int
	var mu sync.Mutex
	record := func(p int) *FuncTask {
		return NewFuncTask(p,
			func(context.Context) error {
				mu.Lock()
				order = append(order, p)
				mu.Unlock()
				return nil
			}, nil, nil, nil)
	}

	// Occupy the single worker so the next three submissions queue up
	// and can be reordered by priority before any of them run.
	require.NoError(t, pool.Submit(NewFuncTask(0, func(context.Context) error {
		<-block
		return nil
	}, nil, nil, nil)))

	require.NoError(t, pool.Submit(record(1)))
	require.NoError(t, pool.Submit(record(5)))
	require.NoError(t, pool.Submit(record(3)))

	close(block)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5, 3, 1}, order)
}

func waitOrTimeout(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for completions")
	}
}
