package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots/internal/deck"
)

func newTestSeats(stacks map[int]int) map[int]*Seat {
	seats := make(map[int]*Seat, len(stacks))
	for id, stack := range stacks {
		seats[id] = &Seat{ID: id, StartingStack: stack, Stack: stack, Status: Active}
	}
	return seats
}

func playToShowdown(t *testing.T, h *Hand, scripted map[int][]struct {
	Action Action
	Amount int
}) {
	t.Helper()
	for !h.Done() {
		seat, ok := h.NextToAct()
		require.True(t, ok, "hand stalled before completion")
		queue := scripted[seat]
		require.NotEmpty(t, queue, "no scripted action left for seat %d", seat)
		next := queue[0]
		scripted[seat] = queue[1:]
		_, err := h.SubmitAction(seat, next.Action, next.Amount, false)
		require.NoError(t, err)
	}
}

func TestHandUTGRaiseTakesDownBlindsUnopposed(t *testing.T) {
	seats := newTestSeats(map[int]int{1: 1000, 2: 1000, 3: 1000})
	h, err := NewHand(1, "", []int{1, 2, 3}, seats, 1, 10, 20, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// button=1 -> SB=2, BB=3, first to act preflop is seat1 (left of BB).
	assert.Equal(t, 2, h.SBSeat)
	assert.Equal(t, 3, h.BBSeat)

	type step = struct {
		Action Action
		Amount int
	}
	playToShowdown(t, h, map[int][]step{
		1: {{Raise, 60}},
		2: {{Fold, 0}},
		3: {{Fold, 0}},
	})

	result := h.Result()
	require.NotNil(t, result)
	assert.Equal(t, 1, result.UncontestedTo)
	assert.Equal(t, 30, result.Deltas[1])
	assert.Equal(t, -10, result.Deltas[2])
	assert.Equal(t, -20, result.Deltas[3])
	assertZeroSum(t, result.Deltas)
	assert.Equal(t, 1030, h.Seats[1].Stack)
}

func TestHandHeadsUpFlushBeatsTwoPair(t *testing.T) {
	// spec.md §8 scenario 2.
	seats := newTestSeats(map[int]int{1: 1000, 2: 1000})
	h, err := NewHand(2, "", []int{1, 2}, seats, 2, 10, 20, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	// force the exact hole cards and board the scenario specifies.
	h.Seats[1].HoleCards = deck.MustParseCards("Qh9d")
	h.Seats[2].HoleCards = deck.MustParseCards("AcKc")
	board := deck.MustParseCards("AhKh7h2c3h")
	h.Deck.PlaceOnTop(board)

	type step = struct {
		Action Action
		Amount int
	}
	// both seats end the hand having committed 200 total; the small blind
	// calls the initial post then calls the big blind's raise, after which
	// both check down the remaining three streets.
	scripted := map[int][]step{
		h.SBSeat: {{Call, 0}, {Call, 0}, {Check, 0}, {Check, 0}, {Check, 0}},
		h.BBSeat: {{Raise, 200}, {Check, 0}, {Check, 0}, {Check, 0}},
	}
	playToShowdown(t, h, scripted)

	result := h.Result()
	require.NotNil(t, result)
	assert.Equal(t, []deck.Card(board), result.Community)
	assert.Equal(t, 200, result.Deltas[1])
	assert.Equal(t, -200, result.Deltas[2])
	assertZeroSum(t, result.Deltas)
}

func TestHandSidePotConstructionAllInPreflop(t *testing.T) {
	// spec.md §8 scenario 3: stacks 100/300/500, all all-in preflop.
	seats := newTestSeats(map[int]int{1: 100, 2: 300, 3: 500})
	h, err := NewHand(3, "", []int{1, 2, 3}, seats, 3, 10, 20, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	type step = struct {
		Action Action
		Amount int
	}
	scripted := map[int][]step{
		1: {{AllIn, 0}},
		2: {{AllIn, 0}},
		3: {{AllIn, 0}},
	}
	playToShowdown(t, h, scripted)

	result := h.Result()
	require.NotNil(t, result)
	require.Len(t, result.Pots, 2)
	assert.Equal(t, 300, result.Pots[0].Amount)
	assert.ElementsMatch(t, []int{1, 2, 3}, result.Pots[0].Eligible)
	assert.Equal(t, 400, result.Pots[1].Amount)
	assert.ElementsMatch(t, []int{2, 3}, result.Pots[1].Eligible)
	assert.Equal(t, 200, result.Uncalled[3])
	assertZeroSum(t, result.Deltas)
}

func TestHandFinalizeIsIdempotent(t *testing.T) {
	seats := newTestSeats(map[int]int{1: 1000, 2: 1000, 3: 1000})
	h, err := NewHand(4, "", []int{1, 2, 3}, seats, 1, 10, 20, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	type step = struct {
		Action Action
		Amount int
	}
	playToShowdown(t, h, map[int][]step{
		1: {{Fold, 0}},
		2: {{Fold, 0}},
	})

	first := *h.Result()
	// seat3 never acted (the hand ended once folds left only one seat) and
	// wins both blinds uncontested.
	assert.Equal(t, 0, first.Deltas[1])
	assert.Equal(t, -10, first.Deltas[2])
	assert.Equal(t, 10, first.Deltas[3])
	assertZeroSum(t, first.Deltas)

	h.finalizeHandWithShowdown(first.Pots, first.Uncalled, first.Showdown, map[int]int{}, h.totalIn())
	second := *h.Result()

	assert.Equal(t, first.Deltas, second.Deltas)
	assert.Equal(t, first.EndingStack, second.EndingStack)
	assert.Equal(t, 1000, h.Seats[1].Stack)
}

func TestHandVoidWhenFewerThanTwoSeatsCanAffordBlinds(t *testing.T) {
	seats := newTestSeats(map[int]int{1: 1000, 2: 3, 3: 3})
	_, err := NewHand(5, "", []int{1, 2, 3}, seats, 1, 10, 20, rand.New(rand.NewSource(11)))
	assert.ErrorIs(t, err, ErrHandVoid)
}

func TestNewHandExcludesBustedSeatsEvenWithStaleHoleCards(t *testing.T) {
	seats := newTestSeats(map[int]int{1: 1000, 2: 1000, 3: 1000})
	first, err := NewHand(1, "", []int{1, 2, 3}, seats, 1, 10, 20, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	require.NotNil(t, first.Seats[3].HoleCards, "seat 3 should have been dealt into the first hand")

	// seat3 busts out between hands (a match controller would do this by
	// reflecting its final stack back into StartingStack).
	seats[3].StartingStack = 0
	seats[3].Stack = 0

	second, err := NewHand(2, "", []int{1, 2, 3}, seats, 2, 10, 20, rand.New(rand.NewSource(43)))
	require.NoError(t, err)

	assert.Nil(t, second.Seats[3].HoleCards)
	assert.Equal(t, Folded, second.Seats[3].Status)
	assert.NotContains(t, second.activeSeats(), 3)
}

func assertZeroSum(t *testing.T, deltas map[int]int) {
	t.Helper()
	sum := 0
	for _, d := range deltas {
		sum += d
	}
	assert.Equal(t, 0, sum)
}
