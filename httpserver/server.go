// File: httpserver/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server implements C5 (spec §4.5): it owns the Listener, the
// connection table, TTL expiry, eviction, the connection cap, and
// dispatch to the Handler. The accept/evict/back-pressure algorithm
// and the dispatch exception taxonomy are carried from
// original_source/src/cbang/event/HTTP.cpp's acceptCB/dispatch (see
// SPEC_FULL.md §10, DESIGN.md).

package httpserver

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/evhttp/httpwire"
	"github.com/momentics/evhttp/reactor"
	"github.com/momentics/evhttp/stats"
	"github.com/momentics/evhttp/transport"
	"github.com/momentics/evhttp/workerpool"
	"go.uber.org/zap"
)

// Server binds one listening socket and drives every accepted
// Connection from a single reactor.Reactor goroutine.
type Server struct {
	rx       *reactor.Reactor
	listener *transport.Listener
	cfg      Config

	handler Handler
	decoder httpwire.Decoder
	tls     TLSContext
	stats   stats.Sink
	logger  *zap.Logger
	pool    *workerpool.Pool

	connections []*Connection
	connCount   atomic.Int64
	nextConnID  atomic.Uint64
	nextReqID   atomic.Uint64

	acceptSelf      *reactor.Registration
	pendingMu       sync.Mutex
	pendingAccepted []pendingConn

	admitSelf    *reactor.Registration
	admitMu      sync.Mutex
	admitPending []chan bool

	resumeMu sync.Mutex
	resumeCh chan struct{}

	expireEvt *reactor.Registration

	closed   atomic.Bool
	closedCh chan struct{}
}

// New constructs a Server bound to no socket yet; call Bind to listen.
// rx.EnableThreads must be called by the caller before Bind, since the
// accept-loop goroutine activates events cross-thread.
func New(rx *reactor.Reactor, listener *transport.Listener, cfg Config, opts ...Option) *Server {
	s := &Server{
		rx:       rx,
		listener: listener,
		cfg:      cfg,
		decoder:  httpwire.HTTP1Decoder{},
		stats:    stats.Nop{},
		logger:   zap.NewNop(),
		resumeCh: make(chan struct{}),
		closedCh: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.handler == nil {
		panic("httpserver: New requires WithHandler")
	}

	s.acceptSelf = rx.NewSelfEvent(s.onAccepted)
	s.admitSelf = rx.NewSelfEvent(s.onAdmitRequested)

	if cfg.MaxConnectionTTL > 0 {
		s.SetMaxConnectionTTL(cfg.MaxConnectionTTL)
	}
	return s
}

// Bind opens the listening socket and starts the accept loop.
func (s *Server) Bind() error {
	if err := s.listener.Bind(); err != nil {
		return err
	}
	go s.acceptLoop()
	return nil
}

// Close stops accepting new connections and closes every live one.
// It does not stop the Reactor; callers own that lifecycle.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.closedCh)
	err := s.listener.Close()
	for _, c := range append([]*Connection(nil), s.connections...) {
		c.Close()
	}
	return err
}

// Pool returns the WorkerPool a Handler may submit AsyncTasks to, or
// nil if none was configured.
func (s *Server) Pool() *workerpool.Pool { return s.pool }

// Connections returns a snapshot of the live connection table in
// arrival order. Like the table itself, this must only be called from
// the Reactor goroutine (e.g. from inside Handler.Evict); it performs
// no locking of its own.
func (s *Server) Connections() []*Connection {
	out := make([]*Connection, len(s.connections))
	copy(out, s.connections)
	return out
}

func (s *Server) nextRequestID() uint64 { return s.nextReqID.Add(1) }

// SetPriority sets the base reactor priority for this server's own
// events, matching HTTP::setEventPriority's priority-1 rule for
// housekeeping work relative to the base priority.
func (s *Server) SetPriority(p int) {
	if p < 0 {
		return
	}
	s.cfg.Priority = p
	if s.expireEvt != nil {
		s.expireEvt.SetPriority(housekeepingPriority(p))
	}
}

// SetMaxConnectionTTL arms or disarms the 60-second recurring
// expiry scan (spec §4.5); ttl<=0 disables it.
func (s *Server) SetMaxConnectionTTL(ttl time.Duration) {
	s.cfg.MaxConnectionTTL = ttl
	if ttl <= 0 {
		if s.expireEvt != nil {
			s.expireEvt.Del()
			s.expireEvt = nil
		}
		return
	}
	if s.expireEvt == nil {
		s.expireEvt = s.rx.NewTimerEvent(s.onExpireTimer, reactor.WithFlags(reactor.FlagPersistent))
	}
	s.expireEvt.SetPriority(housekeepingPriority(s.cfg.Priority))
	s.expireEvt.Add(60 * time.Second)
}

func housekeepingPriority(p int) int {
	if p > 0 {
		return p - 1
	}
	return p
}

func (s *Server) onExpireTimer(reactor.Event) {
	if s.cfg.MaxConnectionTTL <= 0 {
		return
	}
	now := time.Now()
	var expired []*Connection
	for _, c := range s.connections {
		if now.Sub(c.startTime) > s.cfg.MaxConnectionTTL {
			expired = append(expired, c)
		}
	}
	for _, c := range expired {
		s.stats.Event("timedout")
		c.close("connection ttl expired")
	}
	s.logger.Debug("ttl scan complete", zap.Int("expired", len(expired)))
}

// pendingConn hands one accepted socket to the Reactor goroutine and
// lets acceptLoop block until admitConnection has actually appended it
// to s.connections and updated connCount — the synchronization point
// that makes connCount safe to read from the accept-loop goroutine
// again on the next iteration (see waitForCapacity).
type pendingConn struct {
	conn net.Conn
	done chan struct{}
}

// acceptLoop runs on its own goroutine for the Server's lifetime,
// gating each admission behind available connection-table capacity
// (spec §4.5's back-pressure). Handler.Evict is consulted only once a
// new socket has actually arrived at a full server; while the server
// stays full that one socket waits unserved and every later connection
// stays parked in the kernel's own listen backlog.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.logger.Error("accept failed", zap.Error(err))
			continue
		}
		if !s.waitForCapacity() {
			_ = conn.Close()
			return
		}
		s.admitAndWait(conn)
	}
}

// admitAndWait hands conn to the Reactor goroutine and blocks until it
// has been fully admitted (added to s.connections, connCount updated)
// before returning. Without this handoff, acceptLoop could Accept a
// second socket and pass waitForCapacity's fast-path check before the
// first socket's admission was reflected in connCount, letting the
// live connection count exceed MaxConnections (violates P1).
func (s *Server) admitAndWait(conn net.Conn) {
	done := make(chan struct{})
	s.pendingMu.Lock()
	s.pendingAccepted = append(s.pendingAccepted, pendingConn{conn: conn, done: done})
	s.pendingMu.Unlock()
	s.acceptSelf.Activate()

	select {
	case <-done:
	case <-s.closedCh:
	}
}

// waitForCapacity's fast path reads connCount from the accept-loop
// goroutine without synchronization on its own, but that read is safe:
// every prior Accept was followed by admitAndWait blocking on a done
// channel that onAccepted closes only after admitConnection's
// connCount.Store has run on the Reactor goroutine, in program order.
// The channel close/receive pair establishes happens-before, so this
// goroutine is guaranteed to observe every admission that preceded it.
func (s *Server) waitForCapacity() bool {
	for {
		if s.closed.Load() {
			return false
		}
		if s.cfg.MaxConnections <= 0 || s.connCount.Load() < int64(s.cfg.MaxConnections) {
			return true
		}

		respCh := make(chan bool, 1)
		s.admitMu.Lock()
		s.admitPending = append(s.admitPending, respCh)
		s.admitMu.Unlock()
		s.admitSelf.Activate()

		if <-respCh {
			return true
		}

		s.resumeMu.Lock()
		ch := s.resumeCh
		s.resumeMu.Unlock()
		select {
		case <-ch:
		case <-s.closedCh:
			return false
		}
	}
}

// onAdmitRequested runs on the Reactor goroutine: it is the only place
// Handler.Evict is invoked, mirroring acceptCB's "evict once, recheck"
// sequence.
func (s *Server) onAdmitRequested(reactor.Event) {
	s.admitMu.Lock()
	reqs := s.admitPending
	s.admitPending = nil
	s.admitMu.Unlock()

	for _, respCh := range reqs {
		if s.cfg.MaxConnections > 0 && len(s.connections) >= s.cfg.MaxConnections {
			s.handler.Evict(s.connections)
		}
		ok := s.cfg.MaxConnections <= 0 || len(s.connections) < s.cfg.MaxConnections
		respCh <- ok
	}
}

// onAccepted runs on the Reactor goroutine, admitting every socket the
// accept loop handed off since the last drain. Closing p.done after
// admitConnection is what lets acceptLoop safely re-check connCount on
// its own goroutine before Accept-ing the next socket.
func (s *Server) onAccepted(reactor.Event) {
	s.pendingMu.Lock()
	pending := s.pendingAccepted
	s.pendingAccepted = nil
	s.pendingMu.Unlock()

	for _, p := range pending {
		s.admitConnection(p.conn)
		close(p.done)
	}
}

func (s *Server) admitConnection(conn net.Conn) {
	id := s.nextConnID.Add(1)
	c := newConnection(s, id, conn)
	s.connections = append(s.connections, c)
	s.connCount.Store(int64(len(s.connections)))
	s.stats.Event("accepted")
	s.logger.Debug("connection accepted", zap.Uint64("conn_id", id), zap.String("client_ip", c.clientIP))
	c.acceptRequest()
}

// removeConnection drops c from the table and wakes the accept loop if
// it was blocked on capacity, matching HTTP::remove's acceptEvent->add().
func (s *Server) removeConnection(c *Connection) {
	for i, cc := range s.connections {
		if cc == c {
			s.connections = append(s.connections[:i], s.connections[i+1:]...)
			break
		}
	}
	s.connCount.Store(int64(len(s.connections)))

	s.resumeMu.Lock()
	old := s.resumeCh
	s.resumeCh = make(chan struct{})
	s.resumeMu.Unlock()
	close(old)
}

// dispatch is HTTP::dispatch: EndRequest fires exactly once regardless
// of which branch below is taken (spec P3).
func (s *Server) dispatch(req *Request) {
	func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("internal error", zap.Any("recover", r), zap.Uint64("request_id", req.ID))
				s.stats.HandlerError(http.StatusInternalServerError)
				req.sendError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
		}()

		ok, err := s.handler.HandleRequest(req)
		if err != nil {
			s.handleDispatchError(req, err)
			return
		}
		if ok {
			return
		}
		s.stats.Event("rejected")
		req.sendError(http.StatusNotFound, http.StatusText(http.StatusNotFound))
	}()
	s.handler.EndRequest(req)
}

func (s *Server) handleDispatchError(req *Request, err error) {
	var derr *DomainError
	if errors.As(err, &derr) {
		if derr.HasHTTPCode() {
			s.logger.Warn("handler domain error",
				zap.Uint64("request_id", req.ID), zap.String("client_ip", req.ClientIP), zap.Error(derr))
			s.stats.HandlerError(derr.Code)
			req.sendError(derr.Code, derr.Msg)
			return
		}

		s.logger.Debug("handler domain error detail", zap.Error(derr))
		s.logger.Warn("handler domain error", zap.Uint64("request_id", req.ID), zap.String("message", derr.Msg))
		s.stats.HandlerError(http.StatusInternalServerError)
		req.sendError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	s.logger.Error("handler error", zap.Uint64("request_id", req.ID), zap.Error(err))
	s.stats.HandlerError(http.StatusInternalServerError)
	req.sendError(http.StatusInternalServerError, err.Error())
}
