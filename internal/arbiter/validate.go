package arbiter

import (
	"github.com/lox/pokerforbots/internal/engine"
	"github.com/lox/pokerforbots/internal/protocol"
)

// boundaryDecision is the result of validating one inbound PLAYER_ACTION
// against the hand's current state, before it ever reaches
// engine.Hand.SubmitAction (spec.md §4.5 "Validation at the boundary").
type boundaryDecision struct {
	Action  engine.Action
	Amount  int
	Coerced bool
	Reason  string
}

// validateAction applies spec.md §4.5's boundary rules: the action kind must
// be one of the five and a negative amount is treated as 0. Fold, Check,
// Call and All-In pass through unchanged. A Raise amount is not clamped: an
// amount at or above h.MaxRaise(seat) (remaining stack plus this street's
// bet) becomes an All-In, an amount below current_bet+min_raise becomes a
// Call (or Check if already matched), and anything in between stays a
// Raise. This runs ahead
// of (and independently from) engine.Hand.SubmitAction's own §4.2 coercion,
// which remains the final safety net for anything that slips past here.
func validateAction(h *engine.Hand, seat int, raw protocol.PlayerActionPayload) boundaryDecision {
	action, err := engine.ParseAction(raw.Action)
	if err != nil {
		return malformed(h, seat, "unknown action kind "+raw.Action)
	}

	amount := raw.Amount
	if amount < 0 {
		amount = 0
	}

	maxRaise := h.MaxRaise(seat)
	toCall := h.ToCall(seat)

	switch action {
	case engine.Fold, engine.Check, engine.Call, engine.AllIn:
		return boundaryDecision{Action: action, Amount: 0}

	case engine.Raise:
		minLegal := h.CurrentBet() + h.MinRaise()
		switch {
		case amount >= maxRaise:
			return boundaryDecision{Action: engine.AllIn, Coerced: amount != maxRaise, Reason: "raise amount covers entire remaining stack"}
		case amount < minLegal:
			if toCall == 0 {
				return boundaryDecision{Action: engine.Check, Coerced: true, Reason: "raise below minimum with nothing to call"}
			}
			return boundaryDecision{Action: engine.Call, Coerced: true, Reason: "raise below minimum, treated as call"}
		default:
			return boundaryDecision{Action: engine.Raise, Amount: amount}
		}

	default:
		return malformed(h, seat, "unhandled action kind")
	}
}

func malformed(h *engine.Hand, seat int, reason string) boundaryDecision {
	if h.ToCall(seat) == 0 {
		return boundaryDecision{Action: engine.Check, Coerced: true, Reason: reason}
	}
	return boundaryDecision{Action: engine.Fold, Coerced: true, Reason: reason}
}
