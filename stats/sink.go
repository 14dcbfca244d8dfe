// File: stats/sink.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package stats

// Sink is the observable-counters contract spec §6 requires: it must
// be internally thread-safe. httpserver writes it from the Reactor
// goroutine (accept/expire/dispatch/I/O), and a Sink may be shared with
// other goroutines.
type Sink interface {
	// Event increments a named counter by one, e.g. "accepted",
	// "timedout", "rejected", "completed".
	Event(name string)

	// BytesIn/BytesOut accumulate transferred byte counts.
	BytesIn(n int64)
	BytesOut(n int64)

	// HandlerError increments the handler error count for the given
	// HTTP status class, e.g. 404, 500, 418.
	HandlerError(status int)
}

// Nop is a Sink that discards everything; it is the Server default
// when no sink is configured.
type Nop struct{}

func (Nop) Event(string)        {}
func (Nop) BytesIn(int64)       {}
func (Nop) BytesOut(int64)      {}
func (Nop) HandlerError(int)    {}
