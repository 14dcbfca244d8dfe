// File: httpwire/http1_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpwire

import (
	"bufio"
	"bytes"
	"io"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestLineParsesMethodURIVersion(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("GET /foo?x=1 HTTP/1.1\r\n"))
	rl, err := HTTP1Decoder{}.ReadRequestLine(r, 4096)
	require.NoError(t, err)
	assert.Equal(t, "GET", rl.Method)
	assert.Equal(t, "/foo", rl.URI.Path)
	assert.Equal(t, Version{1, 1}, rl.Version)
}

func TestReadRequestLineRejectsMalformed(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("garbage\r\n"))
	_, err := HTTP1Decoder{}.ReadRequestLine(r, 4096)
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestReadRequestLineAtExactLimitSucceeds(t *testing.T) {
	line := "GET / HTTP/1.1"
	r := bufio.NewReader(strings.NewReader(line + "\r\n"))
	_, err := HTTP1Decoder{}.ReadRequestLine(r, len(line))
	assert.NoError(t, err)
}

func TestReadRequestLineOneByteOverLimitFails(t *testing.T) {
	line := "GET / HTTP/1.1"
	r := bufio.NewReader(strings.NewReader(line + "\r\n"))
	_, err := HTTP1Decoder{}.ReadRequestLine(r, len(line)-1)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestReadHeadersParsesUntilBlankLine(t *testing.T) {
	raw := "Host: example.com\r\nX-Foo: bar\r\n\r\nbody-follows"
	r := bufio.NewReader(strings.NewReader(raw))
	hdr, n, err := HTTP1Decoder{}.ReadHeaders(r, 4096)
	require.NoError(t, err)
	assert.Equal(t, "example.com", hdr.Get("Host"))
	assert.Equal(t, "bar", hdr.Get("X-Foo"))
	assert.Greater(t, n, 0)
}

func TestReadHeadersOversizeFails(t *testing.T) {
	raw := "Host: " + strings.Repeat("a", 1000) + "\r\n\r\n"
	r := bufio.NewReader(strings.NewReader(raw))
	_, _, err := HTTP1Decoder{}.ReadHeaders(r, 32)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestBodyWithContentLength(t *testing.T) {
	hdr := textproto.MIMEHeader{"Content-Length": {"5"}}
	r := bufio.NewReader(strings.NewReader("hello-trailing-garbage"))
	body, err := HTTP1Decoder{}.Body(r, hdr, 4096)
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestBodyContentLengthOverLimitFails(t *testing.T) {
	hdr := textproto.MIMEHeader{"Content-Length": {"100"}}
	r := bufio.NewReader(strings.NewReader(strings.Repeat("x", 100)))
	_, err := HTTP1Decoder{}.Body(r, hdr, 10)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestBodyChunkedRoundTrip(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	hdr := textproto.MIMEHeader{"Transfer-Encoding": {"chunked"}}
	r := bufio.NewReader(strings.NewReader(raw))
	body, err := HTTP1Decoder{}.Body(r, hdr, 4096)
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(got))
}

func TestKeepAliveDefaultsByVersion(t *testing.T) {
	d := HTTP1Decoder{}
	assert.True(t, d.KeepAlive(Version{1, 1}, textproto.MIMEHeader{}))
	assert.False(t, d.KeepAlive(Version{1, 0}, textproto.MIMEHeader{}))
	assert.False(t, d.KeepAlive(Version{1, 1}, textproto.MIMEHeader{"Connection": {"close"}}))
	assert.True(t, d.KeepAlive(Version{1, 0}, textproto.MIMEHeader{"Connection": {"keep-alive"}}))
}

func TestWriteResponseProducesWellFormedMessage(t *testing.T) {
	var buf bytes.Buffer
	resp := Response{
		Version:   Version{1, 1},
		Status:    200,
		Reason:    "OK",
		Header:    textproto.MIMEHeader{"X-Foo": {"bar"}},
		Body:      []byte("ok"),
		KeepAlive: true,
	}
	require.NoError(t, HTTP1Decoder{}.WriteResponse(&buf, resp))

	out := buf.String()
	assert.Contains(t, out, "HTTP/1.1 200 OK\r\n")
	assert.Contains(t, out, "X-Foo: bar\r\n")
	assert.Contains(t, out, "Content-Length: 2\r\n")
	assert.Contains(t, out, "Connection: keep-alive\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nok"))
}
