// File: stats/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package stats implements the observable-counters contract from
// spec §6: accepted, timedout, rejected, completed, bytes in/out and
// handler error counts. Sink must be safe for concurrent use, since
// one Sink may be written from more than one goroutine.
package stats
