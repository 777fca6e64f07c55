package rebalance

import "errors"

// ErrIncompleteMatch is returned when a match without two teams is rebalanced.
var ErrIncompleteMatch = errors.New("rebalance: match does not have two teams")
