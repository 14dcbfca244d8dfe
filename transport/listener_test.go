// File: transport/listener_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindAndAcceptRoundTrip(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0", Backlog: 16})
	require.NoError(t, l.Bind())
	defer l.Close()

	addr := l.Addr()
	require.NotNil(t, addr)

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	select {
	case conn := <-accepted:
		require.NotNil(t, conn)
		defer conn.Close()
	case <-time.After(time.Second):
		t.Fatal("accept never fired")
	}
}

func TestBindTwiceReturnsErrAlreadyBound(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"})
	require.NoError(t, l.Bind())
	defer l.Close()

	err := l.Bind()
	assert.ErrorIs(t, err, ErrAlreadyBound)
}

func TestAcceptBeforeBindErrors(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"})
	_, err := l.Accept()
	assert.Error(t, err)
}

func TestCloseBeforeBindIsNoop(t *testing.T) {
	l := New(Config{Addr: "127.0.0.1:0"})
	assert.NoError(t, l.Close())
}
