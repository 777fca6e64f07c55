package worker

import "errors"

// ErrStopped reports that a worker did not stop before the shutdown deadline.
var ErrStopped = errors.New("worker did not stop in time")
