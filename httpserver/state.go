// File: httpserver/state.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package httpserver

// State is a Connection's position in the lifecycle from spec §4.4:
//
//	IDLE -accept-> READING_HEADERS -ok-> READING_BODY -ok-> DISPATCHING
//	                    |                    |                  |
//	                    +--timeout/err--> CLOSING <-------------+
//	DISPATCHING -reply-> WRITING -flush-> (keep-alive ? READING_HEADERS : CLOSING)
type State int

const (
	StateIdle State = iota
	StateReadingHeaders
	StateReadingBody
	StateDispatching
	StateWriting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingHeaders:
		return "reading_headers"
	case StateReadingBody:
		return "reading_body"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}
