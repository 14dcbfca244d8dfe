// File: httpwire/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpwire

import "errors"

// ErrHeaderTooLarge is returned when the request line, or the header
// block read by ReadHeaders, exceeds the caller-supplied size limit
// (HTTP 431 class). The decoder bounds each of the two separately.
var ErrHeaderTooLarge = errors.New("httpwire: header too large")

// ErrBodyTooLarge is returned when the request body exceeds the
// caller-supplied maxBodySize (HTTP 413).
var ErrBodyTooLarge = errors.New("httpwire: body too large")

// ErrMalformedRequest covers a request line or header block that does
// not parse as HTTP/1.x framing.
var ErrMalformedRequest = errors.New("httpwire: malformed request")
