package queue

import "errors"

// Enqueue failures.
var (
	ErrFull   = errors.New("outcome queue full")
	ErrClosed = errors.New("outcome queue closed")
)
