// File: httpserver/connection.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection drives one accepted socket through the state machine in
// spec §4.4. Every field is touched only from the Reactor goroutine
// (the same invariant the source gives the Server's connection list),
// so Connection needs no internal locking: each phase is a one-shot
// reactor.NewFdEvent whose blocking waiter runs on its own goroutine
// but whose result is only ever processed back on the Reactor thread.
//
// Per-phase timeouts are net.Conn deadlines (SetReadDeadline /
// SetWriteDeadline) rather than a second reactor timer per connection;
// this is a Go-native substitute for the source's read/write timer
// arm/disarm that still satisfies "read timeout arms on entry to
// READING_*, disarms on reply" (see DESIGN.md).

package httpserver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"time"

	"github.com/momentics/evhttp/httpwire"
	"github.com/momentics/evhttp/reactor"
	"go.uber.org/zap"
)

// Connection is a single accepted socket's request-lifecycle driver.
type Connection struct {
	id      uint64
	srv     *Server
	rawConn net.Conn
	bufr    *bufio.Reader

	clientIP  string
	startTime time.Time
	priority  int

	maxHeaderSize int
	maxBodySize   int
	readTimeout   time.Duration
	writeTimeout  time.Duration

	state   State
	reqLine httpwire.RequestLine
	header  textproto.MIMEHeader
	req     *Request
}

func newConnection(srv *Server, id uint64, conn net.Conn) *Connection {
	c := &Connection{
		id:            id,
		srv:           srv,
		rawConn:       conn,
		bufr:          bufio.NewReader(conn),
		clientIP:      remoteIP(conn),
		startTime:     time.Now(),
		priority:      srv.cfg.Priority,
		maxHeaderSize: srv.cfg.MaxHeaderSize,
		maxBodySize:   srv.cfg.MaxBodySize,
		readTimeout:   srv.cfg.ReadTimeout,
		writeTimeout:  srv.cfg.WriteTimeout,
		state:         StateIdle,
	}
	return c
}

func remoteIP(conn net.Conn) string {
	addr := conn.RemoteAddr()
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

// ID returns the connection's server-assigned identifier.
func (c *Connection) ID() uint64 { return c.id }

// ClientIP returns the peer's address without the port.
func (c *Connection) ClientIP() string { return c.clientIP }

// StartTime reports when the connection was accepted, used by the TTL scan.
func (c *Connection) StartTime() time.Time { return c.startTime }

// State reports the connection's current lifecycle position.
func (c *Connection) State() State { return c.state }

// Server returns the owning Server, e.g. so a Handler can submit an
// AsyncTask to its workerpool.Pool.
func (c *Connection) Server() *Server { return c.srv }

// SetPriority updates the reactor priority used for this connection's
// future fd events.
func (c *Connection) SetPriority(p int) { c.priority = p }

// Close forcibly closes the connection; used by Handler.Evict and by
// the Server's TTL scan.
func (c *Connection) Close() { c.close("closed by application") }

func (c *Connection) close(reason string) {
	if c.state == StateClosing {
		return
	}
	c.state = StateClosing
	_ = c.rawConn.Close()
	c.srv.logger.Debug("connection closed",
		zap.Uint64("conn_id", c.id), zap.String("client_ip", c.clientIP), zap.String("reason", reason))
	c.srv.removeConnection(c)
}

// acceptRequest begins the connection lifecycle: the TLS handshake if
// configured, otherwise straight into READING_HEADERS.
func (c *Connection) acceptRequest() {
	if c.srv.tls != nil {
		c.beginHandshake()
		return
	}
	c.beginReadHeaders()
}

func (c *Connection) beginHandshake() {
	c.srv.rx.NewFdEvent(reactor.EventRead, func(ctx context.Context) (any, error) {
		return c.srv.tls.Handshake(c.rawConn)
	}, c.onHandshakeDone, reactor.WithPriority(c.priority))
}

func (c *Connection) onHandshakeDone(ev reactor.Event) {
	if ev.Err != nil {
		c.srv.logger.Debug("tls handshake failed", zap.Error(ev.Err), zap.Uint64("conn_id", c.id))
		c.close("tls handshake failed")
		return
	}
	c.rawConn = ev.Data.(net.Conn)
	c.bufr = bufio.NewReader(c.rawConn)
	c.beginReadHeaders()
}

type headersResult struct {
	line   httpwire.RequestLine
	header textproto.MIMEHeader
}

func (c *Connection) beginReadHeaders() {
	c.state = StateReadingHeaders
	c.srv.rx.NewFdEvent(reactor.EventRead, c.waitReadHeaders, c.onHeadersRead, reactor.WithPriority(c.priority))
}

func (c *Connection) waitReadHeaders(ctx context.Context) (any, error) {
	_ = c.rawConn.SetReadDeadline(time.Now().Add(c.readTimeout))
	line, err := c.srv.decoder.ReadRequestLine(c.bufr, c.maxHeaderSize)
	if err != nil {
		return nil, err
	}
	header, _, err := c.srv.decoder.ReadHeaders(c.bufr, c.maxHeaderSize)
	if err != nil {
		return nil, err
	}
	return headersResult{line: line, header: header}, nil
}

func (c *Connection) onHeadersRead(ev reactor.Event) {
	if ev.Err != nil {
		c.handleReadError(ev.Err)
		return
	}
	res := ev.Data.(headersResult)
	c.reqLine = res.line
	c.header = res.header

	req, err := c.srv.handler.CreateRequest(c, res.line.Method, res.line.URI, res.line.Version)
	if err != nil {
		c.srv.logger.Error("create request failed", zap.Error(err), zap.Uint64("conn_id", c.id))
		c.replyAndClose(http.StatusInternalServerError)
		return
	}
	if req.ID == 0 {
		req.ID = c.srv.nextRequestID()
	}
	req.Header = res.header
	req.ClientIP = c.clientIP
	req.Version = res.line.Version
	req.conn = c
	c.req = req

	c.beginReadBody()
}

func (c *Connection) beginReadBody() {
	c.state = StateReadingBody
	c.srv.rx.NewFdEvent(reactor.EventRead, c.waitReadBody, c.onBodyRead, reactor.WithPriority(c.priority))
}

func (c *Connection) waitReadBody(ctx context.Context) (any, error) {
	_ = c.rawConn.SetReadDeadline(time.Now().Add(c.readTimeout))
	body, err := c.srv.decoder.Body(c.bufr, c.header, c.maxBodySize)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Connection) onBodyRead(ev reactor.Event) {
	if ev.Err != nil {
		c.handleReadError(ev.Err)
		return
	}
	body := ev.Data.([]byte)
	c.srv.stats.BytesIn(int64(len(body)))
	c.req.Body = bytes.NewReader(body)
	c.beginDispatch()
}

func (c *Connection) beginDispatch() {
	c.state = StateDispatching
	c.srv.dispatch(c.req)
}

// onReplyReady is called by Request.Reply, either synchronously from
// within HandleRequest or later from an AsyncTask completion callback;
// both run on the Reactor goroutine.
func (c *Connection) onReplyReady(req *Request) {
	if c.state == StateClosing {
		return
	}
	c.state = StateWriting
	keepAlive := c.srv.decoder.KeepAlive(req.Version, req.Header)
	resp := httpwire.Response{
		Version:   req.Version,
		Status:    req.replyStatus,
		Reason:    http.StatusText(req.replyStatus),
		Header:    req.replyHeader,
		Body:      req.replyBody,
		KeepAlive: keepAlive,
	}
	c.writeResponse(resp, func() {
		if keepAlive {
			c.resetForNextRequest()
			c.beginReadHeaders()
		} else {
			c.close("response sent, connection: close")
		}
	})
}

func (c *Connection) resetForNextRequest() {
	c.req = nil
	c.header = nil
	c.reqLine = httpwire.RequestLine{}
	c.state = StateIdle
}

func (c *Connection) writeResponse(resp httpwire.Response, after func()) {
	c.srv.rx.NewFdEvent(reactor.EventWrite, func(ctx context.Context) (any, error) {
		_ = c.rawConn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		var buf bytes.Buffer
		if err := c.srv.decoder.WriteResponse(&buf, resp); err != nil {
			return nil, err
		}
		return buf.Len(), c.writeAll(buf.Bytes())
	}, func(ev reactor.Event) {
		if ev.Err != nil {
			c.srv.logger.Debug("write failed", zap.Error(ev.Err), zap.Uint64("conn_id", c.id))
			c.close("write error")
			return
		}
		if n, ok := ev.Data.(int); ok {
			c.srv.stats.BytesOut(int64(n))
		}
		after()
	}, reactor.WithPriority(c.priority))
}

func (c *Connection) writeAll(b []byte) error {
	for len(b) > 0 {
		n, err := c.rawConn.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// replyAndClose is used for failures found while reading the request
// (oversize header or body, malformed request) and for a failed
// CreateRequest; it replies without going through a Request.
func (c *Connection) replyAndClose(status int) {
	c.state = StateWriting
	c.srv.stats.HandlerError(status)
	resp := httpwire.Response{
		Version:   httpwire.Version{Major: 1, Minor: 1},
		Status:    status,
		Reason:    http.StatusText(status),
		Body:      []byte(http.StatusText(status)),
		KeepAlive: false,
	}
	c.writeResponse(resp, func() { c.close("protocol error") })
}

// handleReadError classifies a read-phase error per spec §7's error
// taxonomy: oversize -> reply with the matching 4xx and close;
// malformed -> 400 and close; anything else (timeout, reset, EOF) is
// an I/O error, logged at debug and closed with no reply.
func (c *Connection) handleReadError(err error) {
	switch {
	case errors.Is(err, httpwire.ErrHeaderTooLarge):
		c.replyAndClose(http.StatusRequestHeaderFieldsTooLarge)
	case errors.Is(err, httpwire.ErrBodyTooLarge):
		c.replyAndClose(http.StatusRequestEntityTooLarge)
	case errors.Is(err, httpwire.ErrMalformedRequest):
		c.replyAndClose(http.StatusBadRequest)
	default:
		c.srv.logger.Debug("connection io error", zap.Error(err), zap.Uint64("conn_id", c.id))
		c.close("io error")
	}
}
