// File: httpwire/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

// Package httpwire decodes and encodes HTTP/1.0 and HTTP/1.1 request
// and response framing. It is the concrete, swappable default for the
// protocol-decoder contract the server core treats as an external
// collaborator; httpserver only ever calls the Decoder interface.
package httpwire
