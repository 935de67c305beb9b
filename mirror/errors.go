package mirror

import "errors"

var (
	// ErrAborted is returned once the engine can no longer tell which
	// account the terminal is logged into.
	ErrAborted = errors.New("mirror engine aborted")

	ErrNotStarted   = errors.New("mirror engine not started")
	ErrZeroVolume   = errors.New("sized volume rounds to zero")
	ErrWrongAccount = errors.New("wrong account active")
	ErrNotFound     = errors.New("no open slave position")
)
