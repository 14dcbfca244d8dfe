// File: transport/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package transport binds the server's listening socket (spec §4.3):
// SO_REUSEADDR, a configurable listen backlog, and per-connection
// buffer hints. The HTTP wire format and TLS handshake are handled
// above this package (httpserver); transport only owns the socket.
package transport
