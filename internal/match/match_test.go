package match

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerforbots/internal/engine"
)

func TestButtonSkipsInsolventSeats(t *testing.T) {
	// grounded on original_source/poker-engine/tests/test_dealer_rotation_with_money.py:
	// seat 2 can't afford the small blind, seat 3 can't afford the big blind.
	m := New([]int{1, 2, 3, 4}, map[int]int{1: 1000, 2: 3, 3: 7, 4: 1000}, Config{BaseBigBlind: 10}, rand.New(rand.NewSource(1)))

	buttons := map[int]bool{}
	for i := 0; i < 10; i++ {
		buttons[m.Button] = true
		m.Button = m.nextButton(m.Button)
	}

	assert.True(t, buttons[1])
	assert.True(t, buttons[4])
	assert.False(t, buttons[2], "seat 2 can never afford the big blind and must never hold the button")
	assert.False(t, buttons[3], "seat 3 can never afford the big blind and must never hold the button")
}

func TestMatchTerminatesWhenFewerThanTwoSeatsCanAffordBigBlind(t *testing.T) {
	m := New([]int{1, 2, 3}, map[int]int{1: 1000, 2: 3, 3: 3}, Config{BaseBigBlind: 20}, rand.New(rand.NewSource(2)))

	_, err := m.StartHand()
	require.ErrorIs(t, err, ErrMatchTerminated)

	terminated, reason := m.Terminated()
	assert.True(t, terminated)
	assert.Equal(t, ReasonTooFewSolventSeats, reason)
}

func TestMatchTerminatesAtHandLimit(t *testing.T) {
	m := New([]int{1, 2}, map[int]int{1: 1000, 2: 1000}, Config{BaseBigBlind: 20, HandLimit: 1}, rand.New(rand.NewSource(3)))

	h, err := m.StartHand()
	require.NoError(t, err)
	playFolds(t, h, m.Button)
	m.FinishHand(h)

	terminated, reason := m.Terminated()
	assert.True(t, terminated)
	assert.Equal(t, ReasonHandLimitReached, reason)

	_, err = m.StartHand()
	assert.ErrorIs(t, err, ErrMatchTerminated)
}

func TestMatchStacksCarryOverBetweenHands(t *testing.T) {
	m := New([]int{1, 2, 3}, map[int]int{1: 1000, 2: 1000, 3: 1000}, Config{BaseBigBlind: 20}, rand.New(rand.NewSource(4)))

	h1, err := m.StartHand()
	require.NoError(t, err)
	playFolds(t, h1, m.Button)
	result1 := m.FinishHand(h1)
	require.NotNil(t, result1)

	stacksAfterHand1 := m.FinalBankrolls()
	assertZeroSumDeltas(t, m.Deltas)

	h2, err := m.StartHand()
	require.NoError(t, err)
	playFolds(t, h2, m.Button)
	result2 := m.FinishHand(h2)
	require.NotNil(t, result2)

	for id, stack := range stacksAfterHand1 {
		assert.Equal(t, stack, result2.StartingStack[id], "seat %d's second hand must start from its first hand's ending stack", id)
	}
	assertZeroSumDeltas(t, m.Deltas)
}

func TestMatchBlindsScaleOnSchedule(t *testing.T) {
	m := New([]int{1, 2}, map[int]int{1: 1000, 2: 1000}, Config{BaseBigBlind: 20, BlindMultiplier: 2, BlindIntervalHands: 2}, rand.New(rand.NewSource(5)))

	_, bb := m.Blinds()
	assert.Equal(t, 20, bb)

	m.HandIndex = 2
	_, bb = m.Blinds()
	assert.Equal(t, 40, bb)

	m.HandIndex = 4
	_, bb = m.Blinds()
	assert.Equal(t, 80, bb)
}

func TestFinishHandIsIdempotent(t *testing.T) {
	m := New([]int{1, 2, 3}, map[int]int{1: 1000, 2: 1000, 3: 1000}, Config{BaseBigBlind: 20}, rand.New(rand.NewSource(6)))

	h, err := m.StartHand()
	require.NoError(t, err)
	playFolds(t, h, m.Button)

	first := m.FinishHand(h)
	deltasAfterFirst := map[int]int{}
	for k, v := range m.Deltas {
		deltasAfterFirst[k] = v
	}
	handIndexAfterFirst := m.HandIndex

	second := m.FinishHand(h)
	assert.Equal(t, first, second)
	assert.Equal(t, deltasAfterFirst, m.Deltas, "a repeated FinishHand call must not double-apply deltas")
	assert.Equal(t, handIndexAfterFirst, m.HandIndex, "a repeated FinishHand call must not advance the hand counter twice")
}

// playFolds folds every seat it is asked to act for, so the big blind, last
// in the pre-flop order, takes the hand uncontested without needing any
// street logic.
func playFolds(t *testing.T, h *engine.Hand, button int) {
	t.Helper()
	for !h.Done() {
		seat, ok := h.NextToAct()
		require.True(t, ok, "hand stalled before completion")
		_, err := h.SubmitAction(seat, engine.Fold, 0, false)
		require.NoError(t, err)
	}
}

func assertZeroSumDeltas(t *testing.T, deltas map[int]int) {
	t.Helper()
	sum := 0
	for _, d := range deltas {
		sum += d
	}
	assert.Equal(t, 0, sum)
}
