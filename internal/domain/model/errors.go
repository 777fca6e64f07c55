package model

import "errors"

// Sentinel errors for match slot handling.
var (
	ErrFirstSlotEmpty  = errors.New("match first slot is empty")
	ErrSlotTaken       = errors.New("match slot already taken")
	ErrMatchIncomplete = errors.New("match does not have two teams")
)
