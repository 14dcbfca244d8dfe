// File: transport/listener.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Adapted from the teacher's transport/tcp/listener.go accept-loop
// shape, generalized from a WebSocket-upgrade listener to a plain TCP
// listener the HTTP core drives itself (the wire format lives above
// this package).

package transport

import (
	"errors"
	"fmt"
	"net"
	"sync"
)

// ErrAlreadyBound is returned by Bind when called more than once on
// the same Listener (spec §4.3: "Only one bind per Server").
var ErrAlreadyBound = errors.New("transport: listener already bound")

// Config carries the socket-level knobs from spec §6's configuration
// surface that concern the listening socket itself.
type Config struct {
	Addr         string // TCP address to bind, e.g. "127.0.0.1:0"
	Backlog      int    // listen() backlog; <=0 uses the platform default
	RecvBufBytes int    // SO_RCVBUF hint applied to accepted sockets; 0 = OS default
	SendBufBytes int    // SO_SNDBUF hint applied to accepted sockets; 0 = OS default
}

// Listener owns exactly one bound TCP socket.
type Listener struct {
	cfg Config

	mu    sync.Mutex
	ln    net.Listener
	bound bool
}

// New constructs an unbound Listener; call Bind to actually listen.
func New(cfg Config) *Listener {
	return &Listener{cfg: cfg}
}

// Bind opens the listening socket with SO_REUSEADDR and the configured
// backlog. It fails if this Listener was already bound.
func (l *Listener) Bind() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound {
		return ErrAlreadyBound
	}

	ln, err := listenReuseAddr(l.cfg.Addr, l.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("transport: bind %s: %w", l.cfg.Addr, err)
	}

	l.ln = ln
	l.bound = true
	return nil
}

// Accept blocks until a new connection arrives, applying the
// configured buffer hints before returning it.
func (l *Listener) Accept() (net.Conn, error) {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()
	if ln == nil {
		return nil, errors.New("transport: Accept called before Bind")
	}

	conn, err := ln.Accept()
	if err != nil {
		return nil, err
	}
	l.applyBufferHints(conn)
	return conn, nil
}

// Addr returns the bound address, or nil if not yet bound.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Close releases the listening socket.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Close()
}

// applyBufferHints sets each accepted socket's receive/send buffer to
// the configured size, when that size is > 0, per spec §4.5
// ("set send/recv buffer hints"). net.TCPConn's SetReadBuffer /
// SetWriteBuffer are the portable stdlib equivalent of the source's
// Socket::setReceiveBuf/setSendBuf and need no platform-specific
// syscall, unlike the listening socket's backlog (see sockopts_*.go).
func (l *Listener) applyBufferHints(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	if l.cfg.RecvBufBytes > 0 {
		_ = tc.SetReadBuffer(l.cfg.RecvBufBytes)
	}
	if l.cfg.SendBufBytes > 0 {
		_ = tc.SetWriteBuffer(l.cfg.SendBufBytes)
	}
}
