// File: reactor/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import "errors"

// Configuration errors are fatal at startup per the error taxonomy:
// threads must be enabled before any cross-thread Activate is used.
var (
	// ErrThreadsNotEnabled is the value Activate (and fd-event delivery)
	// panics with when a cross-thread activation is attempted before
	// EnableThreads.
	ErrThreadsNotEnabled = errors.New("reactor: EnableThreads must be called before cross-thread Activate")

	// ErrAlreadyRunning is returned by Run when the reactor is already looping.
	ErrAlreadyRunning = errors.New("reactor: already running")

	// ErrStopped names the stopped state. Registration operations have
	// no return value, so no operation in this package returns it.
	ErrStopped = errors.New("reactor: stopped")

	// ErrInvalidPriority describes a negative priority. No operation
	// returns it: newRegistration and SetPriority clamp negative values
	// to 0 instead.
	ErrInvalidPriority = errors.New("reactor: priority must be non-negative")
)
