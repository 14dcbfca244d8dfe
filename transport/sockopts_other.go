//go:build !linux

// File: transport/sockopts_other.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Portable fallback for platforms without the golang.org/x/sys/unix
// raw-socket path: uses net.Listen and accepts whatever backlog the
// platform's stdlib resolver picks. SO_REUSEADDR is the Go net
// package's default behavior on these platforms already.

package transport

import "net"

func listenReuseAddr(addr string, backlog int) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
