package queue

import "errors"

// Sentinel errors for the entrant queue.
var (
	ErrClosed = errors.New("entrant queue closed")
	ErrFull   = errors.New("entrant queue full")
)
