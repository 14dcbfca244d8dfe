// File: httpserver/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

import (
	"time"

	"github.com/momentics/evhttp/httpwire"
	"github.com/momentics/evhttp/stats"
	"github.com/momentics/evhttp/workerpool"
	"go.uber.org/zap"
)

// Config is the recognized configuration surface from spec §6. It is
// the concrete shape config.Load populates and what Server consumes;
// Server itself never reads a CLI flag or config file.
type Config struct {
	Addr              string
	MaxConnections    int           // 0 = unbounded
	MaxConnectionTTL  time.Duration // 0 = disabled
	ConnectionBacklog int
	MaxHeaderSize     int
	MaxBodySize       int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	Priority          int
}

// DefaultConfig returns sane, bounded defaults: no connection cap, no
// TTL, a typical header/body ceiling and generous I/O deadlines.
func DefaultConfig() Config {
	return Config{
		Addr:              "127.0.0.1:0",
		MaxConnections:    0,
		MaxConnectionTTL:  0,
		ConnectionBacklog: 128,
		MaxHeaderSize:     1 << 20, // 1 MiB
		MaxBodySize:       10 << 20,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		Priority:          0,
	}
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithHandler sets the Handler that receives dispatched requests.
func WithHandler(h Handler) Option {
	return func(s *Server) { s.handler = h }
}

// WithDecoder overrides the default HTTP1Decoder.
func WithDecoder(d httpwire.Decoder) Option {
	return func(s *Server) { s.decoder = d }
}

// WithTLSContext enables TLS: the handshake runs as the connection's
// first action after accept (spec §4.4).
func WithTLSContext(tc TLSContext) Option {
	return func(s *Server) { s.tls = tc }
}

// WithStatsSink wires an observable-counters sink (spec §6).
func WithStatsSink(sink stats.Sink) Option {
	return func(s *Server) { s.stats = sink }
}

// WithLogger overrides the nop default logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithWorkerPool gives Handler implementations a workerpool.Pool to
// offload blocking work to via Request.Connection().Server().Pool().
func WithWorkerPool(p *workerpool.Pool) Option {
	return func(s *Server) { s.pool = p }
}
