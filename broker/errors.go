package broker

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal failure so callers can decide how to recover.
type Kind int

const (
	KindUnknown Kind = iota
	KindInit          // terminal unreachable or failed to initialize
	KindAuth          // credentials or server rejected
	KindRetrieval     // positions, account info or tick could not be read
	KindOrderRejected // order_send did not complete
	KindSwitchBack    // could not return to the previously active account
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindAuth:
		return "auth"
	case KindRetrieval:
		return "retrieval"
	case KindOrderRejected:
		return "order_rejected"
	case KindSwitchBack:
		return "switch_back"
	default:
		return "unknown"
	}
}

var (
	ErrNoSession        = errors.New("no authenticated session")
	ErrPositionNotFound = errors.New("position not found")
)

// Error is a classified terminal failure.
type Error struct {
	Kind  Kind
	Op    string
	Login int64
	Err   error
}

func (e *Error) Error() string {
	if e.Login != 0 {
		return fmt.Sprintf("%s [account %d, %s]: %v", e.Op, e.Login, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, login int64, err error) *Error {
	return &Error{Kind: kind, Op: op, Login: login, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether any *Error in err's chain has kind k.
func IsKind(err error, k Kind) bool {
	switch x := err.(type) {
	case nil:
		return false
	case *Error:
		return x.Kind == k || IsKind(x.Err, k)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if IsKind(e, k) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsKind(x.Unwrap(), k)
	}
	return false
}
