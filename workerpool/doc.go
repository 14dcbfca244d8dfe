// File: workerpool/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package workerpool implements a fixed-size worker pool that consumes
// a max-heap priority task queue and reports completions back onto a
// reactor.Reactor goroutine via a self-activating registration,
// grounded on cbang's Event::ConcurrentPool (see original_source).
//
// Unlike reactor priorities (lower runs first), Task priority here is
// a max-heap: a higher Priority() value runs before a lower one, ties
// broken FIFO by submission order — matching spec §4.2 exactly.
package workerpool
