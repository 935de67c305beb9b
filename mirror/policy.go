package mirror

import (
	"errors"
	"time"

	"github.com/rustyeddy/copytrader/broker"
)

// Action is what the engine does about a failed step.
type Action int

const (
	// Drop gives up on the trade or batch and keeps polling.
	Drop Action = iota
	// Backoff waits and retries the step on the next poll.
	Backoff
	// Abort stops the engine.
	Abort
)

func (a Action) String() string {
	switch a {
	case Backoff:
		return "backoff"
	case Abort:
		return "abort"
	default:
		return "drop"
	}
}

const DefaultBackoff = 2 * time.Second

// RetryPolicy classifies failures by kind. Retrieval failures are transient,
// a failed return to the master account is fatal, anything else costs only
// the trade at hand.
type RetryPolicy struct {
	Backoff time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Backoff: DefaultBackoff}
}

func (p RetryPolicy) Decide(err error) Action {
	if errors.Is(err, ErrAborted) {
		return Abort
	}
	switch broker.KindOf(err) {
	case broker.KindSwitchBack:
		return Abort
	case broker.KindRetrieval:
		return Backoff
	default:
		return Drop
	}
}
