// File: reactor/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package reactor implements a single-threaded, priority-ordered event
// loop: fd readiness, timers and self-activated (cross-thread) events
// all drain through one goroutine so that registered callbacks never
// run concurrently with one another.
package reactor
