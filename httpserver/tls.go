// File: httpserver/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLSContext is the external TLS-context contract spec §1 leaves
// external ("OpenSSL primitive wrappers ... out of scope"); its X.509
// and certificate-store machinery has no analog in the pack, so
// StdTLSContext wraps crypto/tls directly (see DESIGN.md).

package httpserver

import (
	"crypto/tls"
	"net"
)

// TLSContext performs the server-side TLS handshake on an accepted
// connection. Handshake errors are logged and the connection closed
// (spec §4.4).
type TLSContext interface {
	Handshake(conn net.Conn) (net.Conn, error)
}

// StdTLSContext is the default TLSContext, backed by crypto/tls.
type StdTLSContext struct {
	Config *tls.Config
}

// NewStdTLSContext builds a StdTLSContext from a *tls.Config that
// already carries the server's certificate chain.
func NewStdTLSContext(cfg *tls.Config) *StdTLSContext {
	return &StdTLSContext{Config: cfg}
}

func (s *StdTLSContext) Handshake(conn net.Conn) (net.Conn, error) {
	tlsConn := tls.Server(conn, s.Config)
	if err := tlsConn.Handshake(); err != nil {
		return nil, err
	}
	return tlsConn, nil
}
