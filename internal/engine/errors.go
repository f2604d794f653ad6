package engine

import "fmt"

// FatalError is a class-4 engine invariant violation (spec.md §7): pot
// arithmetic drift, a duplicate card dealt, a negative stack.
// Hand.SubmitAction returns one when a seat's stack would go negative, and
// settleShowdown panics with one when a seat's hand cannot be evaluated.
// internal/arbiter does not pass it on: when SubmitAction fails there it
// submits a synthesized Fold instead, so the match is not terminated by it.
// Agent-caused invalid actions are never FatalError; those are coerced
// in-place by BettingRound.Coerce and logged, not raised.
type FatalError struct {
	Hand   int
	Street Street
	Reason string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("engine: fatal invariant violation in hand %d on %s: %s", e.Hand, e.Street, e.Reason)
}

func fatalf(hand int, street Street, format string, args ...any) *FatalError {
	return &FatalError{Hand: hand, Street: street, Reason: fmt.Sprintf(format, args...)}
}
