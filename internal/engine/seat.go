package engine

import "github.com/lox/pokerforbots/internal/deck"

// Status is a seat's lifecycle flag within one hand.
type Status int

const (
	Active Status = iota
	Folded
	AllIn
)

func (s Status) String() string {
	switch s {
	case Active:
		return "active"
	case Folded:
		return "folded"
	case AllIn:
		return "all-in"
	default:
		return "unknown"
	}
}

// Seat is a stable integer identifier for one player's position at the
// table, per spec.md §3. StartingStack is the stack at the start of the
// current hand; Stack is the remainder during the hand. HoleCards exist iff
// the seat was dealt into the current hand.
type Seat struct {
	ID            int
	StartingStack int
	Stack         int
	HoleCards     []deck.Card
	Status        Status
}

// CanAfford reports whether the seat's starting stack for this hand covers
// amount. Used for blind eligibility (spec.md §4.3) and button rotation
// (spec.md §4.4).
func (s *Seat) CanAfford(amount int) bool {
	return s.StartingStack >= amount
}

// Committed returns the chips the seat has put into the pot so far, which
// for a seat still holding chips is StartingStack - Stack.
func (s *Seat) Committed() int {
	return s.StartingStack - s.Stack
}
