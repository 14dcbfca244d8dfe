// File: config/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/momentics/evhttp/httpserver"
	"gopkg.in/yaml.v3"
)

// File is the on-disk shape Load decodes, mirroring httpserver.Config
// field-for-field with yaml tags. Durations are nanosecond integers,
// matching time.Duration's underlying type.
type File struct {
	Addr              string        `yaml:"addr"`
	MaxConnections    int           `yaml:"max_connections"`
	MaxConnectionTTL  int64         `yaml:"max_connection_ttl"`
	ConnectionBacklog int           `yaml:"connection_backlog"`
	MaxHeaderSize     int           `yaml:"max_header_size"`
	MaxBodySize       int           `yaml:"max_body_size"`
	ReadTimeout       int64         `yaml:"read_timeout"`
	WriteTimeout      int64         `yaml:"write_timeout"`
	Priority          int           `yaml:"priority"`
}

// Load reads path and decodes it into a httpserver.Config, starting
// from httpserver.DefaultConfig so an omitted field keeps its default
// rather than zeroing out.
func Load(path string) (httpserver.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return httpserver.Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses YAML bytes into a httpserver.Config; exported
// separately from Load so callers embedding config (tests, cmd/evhttpd
// flag defaults) don't need a file on disk.
func Decode(data []byte) (httpserver.Config, error) {
	f := fromConfig(httpserver.DefaultConfig())
	if err := yaml.Unmarshal(data, &f); err != nil {
		return httpserver.Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return f.toConfig(), nil
}

func fromConfig(cfg httpserver.Config) File {
	return File{
		Addr:              cfg.Addr,
		MaxConnections:    cfg.MaxConnections,
		MaxConnectionTTL:  int64(cfg.MaxConnectionTTL),
		ConnectionBacklog: cfg.ConnectionBacklog,
		MaxHeaderSize:     cfg.MaxHeaderSize,
		MaxBodySize:       cfg.MaxBodySize,
		ReadTimeout:       int64(cfg.ReadTimeout),
		WriteTimeout:      int64(cfg.WriteTimeout),
		Priority:          cfg.Priority,
	}
}

func (f File) toConfig() httpserver.Config {
	return httpserver.Config{
		Addr:              f.Addr,
		MaxConnections:    f.MaxConnections,
		MaxConnectionTTL:  time.Duration(f.MaxConnectionTTL),
		ConnectionBacklog: f.ConnectionBacklog,
		MaxHeaderSize:     f.MaxHeaderSize,
		MaxBodySize:       f.MaxBodySize,
		ReadTimeout:       time.Duration(f.ReadTimeout),
		WriteTimeout:      time.Duration(f.WriteTimeout),
		Priority:          f.Priority,
	}
}
