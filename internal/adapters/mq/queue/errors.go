package queue

import "errors"

var (
	// ErrClosed marks operations against a closed queue.
	ErrClosed = errors.New("queue closed")
)
