// File: httpwire/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpwire

import (
	"bufio"
	"io"
	"net/textproto"
	"net/url"
	"strconv"
)

// Version is an HTTP protocol version, e.g. 1.1.
type Version struct {
	Major int
	Minor int
}

// String renders the version the way it appears on the wire, e.g. "HTTP/1.1".
func (v Version) String() string {
	return "HTTP/" + strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

// AtLeast11 reports whether v is HTTP/1.1 or newer, which is the
// version threshold below which keep-alive defaults to off.
func (v Version) AtLeast11() bool {
	return v.Major > 1 || (v.Major == 1 && v.Minor >= 1)
}

// RequestLine is the parsed first line of an HTTP request.
type RequestLine struct {
	Method  string
	URI     *url.URL
	Version Version
}

// Decoder is the external protocol-decoder contract httpserver consumes.
// Implementations read directly from a *bufio.Reader wrapping the
// connection's socket and never retain it past a call.
type Decoder interface {
	// ReadRequestLine consumes one "METHOD URI VERSION\r\n" line.
	// maxLineSize bounds how many bytes may be buffered before giving
	// up with ErrHeaderTooLarge.
	ReadRequestLine(r *bufio.Reader, maxLineSize int) (RequestLine, error)

	// ReadHeaders consumes header lines up to and including the blank
	// line terminator. It returns the parsed headers and the number of
	// bytes consumed so the caller can enforce maxHeaderSize across the
	// request line plus headers combined.
	ReadHeaders(r *bufio.Reader, maxHeaderSize int) (textproto.MIMEHeader, int, error)

	// Body returns a reader yielding exactly the request body,
	// transparently dechunking Transfer-Encoding: chunked and honoring
	// Content-Length, bounded by maxBodySize.
	Body(r *bufio.Reader, headers textproto.MIMEHeader, maxBodySize int) (io.Reader, error)

	// KeepAlive reports whether the connection should remain open
	// after this response, given the request's version and headers.
	KeepAlive(version Version, headers textproto.MIMEHeader) bool

	// WriteResponse serializes a full response (status line, headers,
	// body) to w.
	WriteResponse(w io.Writer, resp Response) error
}

// Response is everything WriteResponse needs to serialize one HTTP
// response message.
type Response struct {
	Version    Version
	Status     int
	Reason     string
	Header     textproto.MIMEHeader
	Body       []byte
	KeepAlive  bool
}
