// File: httpserver/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import "net/url"

// Handler is the application-supplied capability set from spec §4.6.
// HandleRequest may reply synchronously before returning, or submit a
// workerpool.Task via Request.Connection().Server().Pool().Submit and
// return (true, nil)
// for a deferred reply.
type Handler interface {
	// CreateRequest builds the Request that will carry this exchange
	// through the rest of its lifecycle.
	CreateRequest(conn *Connection, method string, uri *url.URL, version Version) (*Request, error)

	// HandleRequest processes req. true means the handler took
	// responsibility for replying (possibly later, from an offloaded
	// task); false means no route matched and the Server should reply
	// 404. A returned error is classified per spec §4.5's exception
	// taxonomy and turned into an error response.
	HandleRequest(req *Request) (bool, error)

	// EndRequest is invoked exactly once per HandleRequest entry, even
	// when HandleRequest panics or returns an error.
	EndRequest(req *Request)

	// Evict is an advisory hook called only when the connection cap is
	// hit; it may prune idle or low-priority connections from conns to
	// make room for a new one.
	Evict(conns []*Connection)
}
