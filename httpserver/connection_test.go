// File: httpserver/connection_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"bufio"
	"net"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/momentics/evhttp/reactor"
	"github.com/momentics/evhttp/stats"
	"github.com/momentics/evhttp/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeServer wires a Server to a reactor without ever binding a real
// socket, so tests can drive Connection state transitions directly
// over a net.Pipe.
func pipeServer(t *testing.T, cfg Config, h Handler) *Server {
	t.Helper()
	rx := reactor.New(nil)
	rx.EnableThreads()
	go rx.Run()
	t.Cleanup(rx.Stop)

	l := transport.New(transport.Config{Addr: "127.0.0.1:0"})
	srv := New(rx, l, cfg, WithHandler(h), WithStatsSink(stats.Nop{}))
	return srv
}

func TestConnectionRejectsOversizeHeaders(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxHeaderSize = 32
	cfg.ReadTimeout = time.Second
	cfg.WriteTimeout = time.Second
	srv := pipeServer(t, cfg, newEchoHandler())

	server, client := net.Pipe()
	defer client.Close()
	srv.admitConnection(server)

	_, err := client.Write([]byte("GET /this-request-line-is-far-too-long-for-the-configured-limit HTTP/1.1\r\n\r\n"))
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusRequestHeaderFieldsTooLarge, resp.StatusCode)
}

func TestConnectionRejectsMalformedRequestLine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReadTimeout = time.Second
	cfg.WriteTimeout = time.Second
	srv := pipeServer(t, cfg, newEchoHandler())

	server, client := net.Pipe()
	defer client.Close()
	srv.admitConnection(server)

	_, err := client.Write([]byte("NOT A REQUEST LINE\r\n\r\n"))
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConnectionEvictionClosesSocket(t *testing.T) {
	cfg := DefaultConfig()
	srv := pipeServer(t, cfg, newEchoHandler())

	server, client := net.Pipe()
	defer client.Close()
	srv.admitConnection(server)
	require.Len(t, srv.connections, 1)

	c := srv.connections[0]
	done := make(chan struct{})
	closeEvt := srv.rx.NewSelfEvent(func(reactor.Event) {
		c.Close()
		close(done)
	})
	closeEvt.Activate()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close never ran on the reactor goroutine")
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err := client.Read(buf)
	assert.Error(t, err)
	assert.Empty(t, srv.connections)
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "reading_headers", StateReadingHeaders.String())
	assert.Equal(t, "reading_body", StateReadingBody.String())
	assert.Equal(t, "dispatching", StateDispatching.String())
	assert.Equal(t, "writing", StateWriting.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestNewRequestCarriesClientIP(t *testing.T) {
	cfg := DefaultConfig()
	srv := pipeServer(t, cfg, newEchoHandler())
	server, client := net.Pipe()
	defer client.Close()
	srv.admitConnection(server)

	u, _ := url.Parse("/x")
	req := NewRequest(srv.connections[0], "GET", u)
	assert.Equal(t, srv.connections[0], req.Connection())
	assert.Equal(t, srv.connections[0].ClientIP(), req.ClientIP)
	assert.False(t, req.IsReplied())
}
