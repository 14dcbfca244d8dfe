// File: httpserver/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"io"
	"net/textproto"
	"net/url"

	"github.com/momentics/evhttp/httpwire"
)

// Version re-exports httpwire.Version so Handler implementations don't
// need to import httpwire directly.
type Version = httpwire.Version

// Request carries one request/response exchange for its entire
// lifetime; it belongs to exactly one Connection (spec §3).
type Request struct {
	ID       uint64
	Method   string
	URI      *url.URL
	Version  Version
	Header   textproto.MIMEHeader
	Body     io.Reader
	ClientIP string

	conn *Connection

	replied     bool
	replyStatus int
	replyReason string
	replyHeader textproto.MIMEHeader
	replyBody   []byte
}

// NewRequest builds a bare Request for conn; Handler.CreateRequest
// implementations call this to get a value they can then wrap or
// populate with route-specific fields before returning it. Connection
// itself fills in Header/ClientIP/Version/ID once CreateRequest returns.
func NewRequest(conn *Connection, method string, uri *url.URL) *Request {
	return &Request{
		Method:   method,
		URI:      uri,
		ClientIP: conn.ClientIP(),
		conn:     conn,
	}
}

// Connection returns the owning Connection, giving handler code access
// to Server() for submitting workerpool.Task work.
func (r *Request) Connection() *Connection { return r.conn }

// Reply sets the response and, if this is the first reply for the
// request, hands it to the Connection's write phase. Reply is safe to
// call synchronously from within HandleRequest or later from an
// AsyncTask's success/error/complete callback — both run on the
// Reactor goroutine (spec P2).
func (r *Request) Reply(status int, header textproto.MIMEHeader, body []byte) {
	if r.replied {
		return
	}
	r.replied = true
	r.replyStatus = status
	r.replyHeader = header
	r.replyBody = body
	r.conn.onReplyReady(r)
}

// ReplyString is a convenience wrapper for a small plain-text body.
func (r *Request) ReplyString(status int, body string) {
	r.Reply(status, textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}}, []byte(body))
}

// sendError renders msg as the response body for status; used for the
// 404, 500 and handler domain-error paths the Server drives directly.
func (r *Request) sendError(status int, msg string) {
	r.ReplyString(status, msg)
}

// IsReplied reports whether Reply has already been called.
func (r *Request) IsReplied() bool { return r.replied }
