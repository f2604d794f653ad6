package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegalActionsTable(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	assert.ElementsMatch(t, []Action{Fold, Check, Raise, AllIn}, br.LegalActions(1, 500))

	br.PlayerBets[1] = 0
	br.CurrentBet = 50
	assert.ElementsMatch(t, []Action{Fold, Call, Raise, AllIn}, br.LegalActions(1, 500))

	// short stack can only call all-in or fold, no raise room left.
	assert.ElementsMatch(t, []Action{Fold, Call, AllIn}, br.LegalActions(1, 50))
}

func TestPreflopBettingRoundSeedsBlindsAndWaitingFor(t *testing.T) {
	br := NewPreflopBettingRound([]int{1, 2, 3}, 1, 2, 5, 10)

	assert.Equal(t, 10, br.CurrentBet)
	assert.Equal(t, 10, br.MinRaise)
	assert.Equal(t, 5, br.PlayerBets[1])
	assert.Equal(t, 10, br.PlayerBets[2])
	// every active seat, including both blind posters, still owes an
	// action: the blinds are forced bets, not a substitute for acting.
	assert.True(t, br.WaitingFor[1])
	assert.True(t, br.WaitingFor[2])
	assert.True(t, br.WaitingFor[3])
}

func TestBigBlindOptionIsConsumedExactlyOnce(t *testing.T) {
	br := NewPreflopBettingRound([]int{1, 2, 3}, 1, 2, 5, 10)

	_, _, err := br.Apply(3, Call, 0, 1000, nil)
	require.NoError(t, err)
	// seat 1 completes the small blind to 10.
	_, _, err = br.Apply(1, Call, 0, 1000, nil)
	require.NoError(t, err)

	// action has gone around with no raise: big blind gets the option.
	assert.True(t, br.WaitingFor[2])
	assert.False(t, br.Closed([]int{1, 2, 3}))

	_, _, err = br.Apply(2, Check, 0, 1000, nil)
	require.NoError(t, err)
	assert.True(t, br.Closed([]int{1, 2, 3}))
}

func TestRaiseReopensOtherActiveSeats(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2, 3}, 20)

	_, _, err := br.Apply(1, Check, 0, 500, nil)
	require.NoError(t, err)
	_, _, err = br.Apply(2, Raise, 60, 500, []int{1, 3})
	require.NoError(t, err)

	assert.True(t, br.WaitingFor[1])
	assert.True(t, br.WaitingFor[3])
	assert.Equal(t, 60, br.CurrentBet)
	assert.Equal(t, 60, br.MinRaise)
	assert.Equal(t, 2, br.LastRaiser)
}

func TestShortAllInDoesNotReopenAlreadyMatchedSeats(t *testing.T) {
	// spec.md §8 scenario 4: seat1 bets 100, seat2 raises to 300 (reopens
	// seat1), seat3 all-ins to 350 -- a short raise (increment 50 < the 200
	// min-raise) that must not reopen seat2, who already matched 300.
	br := NewBettingRound(Flop, []int{1, 2, 3}, 20)

	_, _, err := br.Apply(1, Raise, 100, 1000, []int{2, 3})
	require.NoError(t, err)
	assert.True(t, br.WaitingFor[2])
	assert.True(t, br.WaitingFor[3])

	_, _, err = br.Apply(2, Raise, 300, 1000, []int{1, 3})
	require.NoError(t, err)
	assert.True(t, br.WaitingFor[1]) // reopened by the full raise to 300
	assert.Equal(t, 300, br.CurrentBet)
	assert.Equal(t, 200, br.MinRaise)

	_, allIn, err := br.Apply(3, AllIn, 0, 350, []int{1, 2})
	require.NoError(t, err)
	assert.True(t, allIn)
	assert.Equal(t, 350, br.CurrentBet)
	// short all-in: min_raise and last_raiser are unchanged, seat2 (already
	// at 300, never folded out of waiting_for) is not re-added.
	assert.Equal(t, 200, br.MinRaise)
	assert.Equal(t, 2, br.LastRaiser)
	assert.False(t, br.WaitingFor[2])
	assert.True(t, br.WaitingFor[1])
}

func TestClosedRequiresMatchingBetsOrOneRemaining(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	br.CurrentBet = 20
	br.PlayerBets[1] = 20
	br.PlayerBets[2] = 10
	br.PlayerActions[1] = Call
	// seat 2 has no recorded action on this street, so unlike a seat skipped
	// by a short all-in it is not exempt from matching current_bet.
	delete(br.WaitingFor, 1)
	delete(br.WaitingFor, 2)

	assert.False(t, br.Closed([]int{1, 2}))

	br.PlayerBets[2] = 20
	assert.True(t, br.Closed([]int{1, 2}))

	assert.True(t, br.Closed([]int{1}))
}

func TestClosedTreatsShortAllInExemptSeatAsNonBlocking(t *testing.T) {
	// spec.md §8 scenario 4, continued from TestShortAllInDoesNotReopenAlreadyMatchedSeats:
	// seat1 bets 100, seat2 raises to 300 (reopening seat1), seat3 short
	// all-ins to 350 without reopening seat2. If seat1 now calls to 350,
	// waiting_for empties even though seat2 is still parked at 300, and the
	// round must be reported closed rather than stalling forever.
	br := NewBettingRound(Flop, []int{1, 2, 3}, 20)

	_, _, err := br.Apply(1, Raise, 100, 1000, []int{2, 3})
	require.NoError(t, err)
	_, _, err = br.Apply(2, Raise, 300, 1000, []int{1, 3})
	require.NoError(t, err)
	_, _, err = br.Apply(3, AllIn, 0, 350, []int{1, 2})
	require.NoError(t, err)
	require.False(t, br.Closed([]int{1, 2}))

	_, _, err = br.Apply(1, Call, 0, 1000, []int{2})
	require.NoError(t, err)

	assert.Empty(t, br.WaitingFor)
	assert.Equal(t, 300, br.PlayerBets[2])
	assert.Equal(t, 350, br.PlayerBets[1])
	assert.True(t, br.Closed([]int{1, 2}))
}

func TestCoerceNoChipsFoldsRegardlessOfRequest(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	c := br.Coerce(1, Raise, 999, 0)
	assert.Equal(t, Fold, c.Action)
	assert.True(t, c.Coerced)
}

func TestCoerceNonPositiveAmountWithNothingOwedBecomesCheck(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	c := br.Coerce(1, Raise, 0, 500)
	assert.Equal(t, Check, c.Action)
	assert.True(t, c.Coerced)
}

func TestCoerceAmountMatchingCallBecomesCall(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	br.CurrentBet = 50
	c := br.Coerce(1, Raise, 50, 500)
	assert.Equal(t, Call, c.Action)
	assert.True(t, c.Coerced)
}

func TestCoerceAnythingElseFolds(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	br.CurrentBet = 50
	c := br.Coerce(1, Raise, 10, 500)
	assert.Equal(t, Fold, c.Action)
	assert.True(t, c.Coerced)
}

func TestCoerceLeavesLegalRequestsUntouched(t *testing.T) {
	br := NewBettingRound(Flop, []int{1, 2}, 20)
	c := br.Coerce(1, Check, 0, 500)
	assert.Equal(t, Check, c.Action)
	assert.False(t, c.Coerced)
}
