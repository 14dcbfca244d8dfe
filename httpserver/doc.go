// File: httpserver/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package httpserver is the HTTP front (spec §4.5): it owns the
// Listener, the connection table, TTL expiry, eviction, the
// connection cap, and dispatch to a Handler. Connection drives one
// socket through the request lifecycle in §4.4; both types are driven
// entirely from a single reactor.Reactor goroutine.
package httpserver
