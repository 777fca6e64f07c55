package service

import "errors"

// Sentinel errors returned by Enqueue.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrDuplicate      = errors.New("entrant already waiting")
	ErrInvalidEntrant = errors.New("invalid entrant")
)
