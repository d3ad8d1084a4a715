package order

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("order: cart is empty")
	ErrOrderNotFound     = errors.New("order: not found")
	ErrInvalidTransition = errors.New("order: invalid status transition")
	ErrNoOpTransition    = errors.New("order: status is unchanged")
	ErrConcurrentUpdate  = errors.New("order: modified concurrently, reload and retry")
	ErrInvalidStatus     = errors.New("order: unknown status")
	ErrCartChanged       = errors.New("order: cart changed during checkout")
	ErrForbidden         = errors.New("order: belongs to another user")
)

// TransitionError reports a rejected status change. It unwraps to
// ErrNoOpTransition or ErrInvalidTransition.
type TransitionError struct {
	From Status
	To   Status
	err  error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", e.err, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return e.err }
