package order

import (
	"fmt"
	"slices"
	"strings"
)

// validTransitions is the order state machine. Terminal states map to nil.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusRefunded},
	StatusCancelled:  nil,
	StatusRefunded:   nil,
}

// Statuses lists every valid order status in lifecycle order.
func Statuses() []Status {
	return []Status{
		StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded,
	}
}

// Valid reports whether s is a member of the status enum.
func (s Status) Valid() bool {
	_, ok := validTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s.Valid() && len(validTransitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to Status) bool {
	return slices.Contains(validTransitions[from], to)
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

func checkTransition(from, to Status) error {
	switch {
	case from == to:
		return &TransitionError{From: from, To: to, err: ErrNoOpTransition}
	case !CanTransition(from, to):
		return &TransitionError{From: from, To: to, err: ErrInvalidTransition}
	}
	return nil
}
