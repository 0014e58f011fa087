package backend

import "errors"

var (
	// ErrNoActiveEvent is returned when no event has status active.
	ErrNoActiveEvent = errors.New("no active event")
	// ErrDecode wraps a response body that could not be decoded.
	ErrDecode = errors.New("decode response")
)
