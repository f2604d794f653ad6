// Package match implements the Match Controller: the multi-hand supervisor
// that rotates the dealer button, carries stacks across hands, scales the
// blind schedule, and decides when a match is over (spec.md §4.4).
package match

import (
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"github.com/lox/pokerforbots/internal/engine"
)

// Config configures one match's blind schedule and termination conditions,
// per spec.md §4.4.
type Config struct {
	BaseBigBlind int
	// BlindMultiplier and BlindIntervalHands scale the blinds every
	// BlindIntervalHands completed hands (defaults 1 and 0: constant
	// blinds, per spec.md §4.4).
	BlindMultiplier    float64
	BlindIntervalHands int
	// HandLimit caps the number of hands played; 0 means unlimited.
	HandLimit int
}

// Reason identifies why a match terminated.
type Reason string

const (
	ReasonHandLimitReached   Reason = "hand_limit_reached"
	ReasonTooFewSolventSeats Reason = "too_few_solvent_seats"
	ReasonStopped            Reason = "stopped"
	ReasonHandVoid           Reason = "hand_void"
)

// Match drives a sequence of hands over a fixed seat roster with persistent
// stacks (spec.md §4.4 "Responsibility"). It owns the seat records and hands
// each engine.Hand the same seat map (pointers to these records), never a
// copy.
type Match struct {
	ID    string
	Order []int
	Seats map[int]*engine.Seat

	config Config
	rng    *rand.Rand

	Button    int
	HandIndex int

	Deltas map[int]int

	terminated bool
	reason     Reason
	stopped    bool

	Hands    []*engine.HandLog
	finished map[int]bool
}

// New constructs a match over the given seat roster and starting bankrolls,
// with button starting at the first seat in order. Stamping the match with a
// uuid (rather than relying on the hand counter alone) lets logs from
// concurrent or restarted processes be told apart.
func New(order []int, bankrolls map[int]int, config Config, rng *rand.Rand) *Match {
	if config.BlindMultiplier <= 0 {
		config.BlindMultiplier = 1
	}
	seats := make(map[int]*engine.Seat, len(order))
	deltas := make(map[int]int, len(order))
	for _, id := range order {
		seats[id] = &engine.Seat{ID: id, StartingStack: bankrolls[id], Stack: bankrolls[id]}
		deltas[id] = 0
	}
	return &Match{
		ID:       uuid.NewString(),
		Order:    append([]int(nil), order...),
		Seats:    seats,
		config:   config,
		rng:      rng,
		Button:   order[0],
		Deltas:   deltas,
		finished: make(map[int]bool),
	}
}

// Blinds returns the small/big blind amounts for the hand about to be
// played, applying the configured scaling schedule (spec.md §4.4 "Blind
// schedule").
func (m *Match) Blinds() (sb, bb int) {
	bb = m.config.BaseBigBlind
	if m.config.BlindIntervalHands > 0 {
		steps := m.HandIndex / m.config.BlindIntervalHands
		for i := 0; i < steps; i++ {
			bb = int(float64(bb) * m.config.BlindMultiplier)
		}
	}
	return bb / 2, bb
}

// solventSeats returns the seats (in table order) whose current bankroll can
// afford the big blind about to be played.
func (m *Match) solventSeats() []int {
	_, bb := m.Blinds()
	var out []int
	for _, id := range m.Order {
		if m.Seats[id].Stack >= bb {
			out = append(out, id)
		}
	}
	return out
}

// Terminated reports whether the match has ended, and why.
func (m *Match) Terminated() (bool, Reason) {
	return m.terminated, m.reason
}

// Stop requests termination after the current hand, e.g. on operator
// command (spec.md §4.4 "the operator issues a stop").
func (m *Match) Stop() {
	m.stopped = true
}

// checkTermination evaluates the three termination conditions in spec.md
// §4.4 and latches the first one that applies.
func (m *Match) checkTermination() {
	if m.terminated {
		return
	}
	switch {
	case m.config.HandLimit > 0 && m.HandIndex >= m.config.HandLimit:
		m.terminated, m.reason = true, ReasonHandLimitReached
	case len(m.solventSeats()) < 2:
		m.terminated, m.reason = true, ReasonTooFewSolventSeats
	case m.stopped:
		m.terminated, m.reason = true, ReasonStopped
	}
}

// ErrMatchTerminated is returned by StartHand once the match has ended.
var ErrMatchTerminated = errors.New("match: already terminated")

// StartHand deals and opens the next hand: it snapshots current stacks into
// a fresh engine.Hand at the current button and blind levels. The caller
// (the arbiter) drives the returned Hand via NextToAct/SubmitAction, then
// calls FinishHand with the result.
func (m *Match) StartHand() (*engine.Hand, error) {
	m.checkTermination()
	if m.terminated {
		return nil, ErrMatchTerminated
	}

	for _, s := range m.Seats {
		s.StartingStack = s.Stack
	}

	sb, bb := m.Blinds()
	h, err := engine.NewHand(m.HandIndex+1, m.ID, m.Order, m.Seats, m.Button, sb, bb, m.rng)
	if errors.Is(err, engine.ErrHandVoid) {
		m.terminated, m.reason = true, ReasonHandVoid
		return nil, ErrMatchTerminated
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// FinishHand absorbs a completed Hand's result into the match's persistent
// deltas, appends its log, rotates the button, and advances the hand
// counter. It is idempotent: a repeated call with the same completed Hand
// applies its deltas and button rotation exactly once (spec.md §4.4
// "End-of-hand idempotence", guarding against the duplicate-finalization bug
// in original_source's test_server_endgame_bug.py, where the server called
// end_game() a second time and re-applied the same hand's winnings).
func (m *Match) FinishHand(h *engine.Hand) *engine.HandLog {
	result := h.Result()
	if result == nil {
		return nil
	}
	if m.finished[result.HandIndex] {
		return result
	}
	m.finished[result.HandIndex] = true

	for id, delta := range result.Deltas {
		m.Deltas[id] += delta
	}
	m.Hands = append(m.Hands, result)
	m.HandIndex++
	m.Button = m.nextButton(m.Button)
	m.checkTermination()
	return result
}

// nextButton advances the button clockwise to the next seat that can afford
// the big blind of the next hand, permanently skipping seats that never can
// again (spec.md §4.4 "Dealer-button rotation"; grounded on
// original_source/poker-engine/tests/test_dealer_rotation_with_money.py).
func (m *Match) nextButton(from int) int {
	_, bb := m.Blinds()
	n := len(m.Order)
	start := 0
	for i, id := range m.Order {
		if id == from {
			start = i
			break
		}
	}
	for i := 1; i <= n; i++ {
		id := m.Order[(start+i)%n]
		if m.Seats[id].Stack >= bb {
			return id
		}
	}
	return from
}

// FinalBankrolls returns each seat's current chip stack.
func (m *Match) FinalBankrolls() map[int]int {
	out := make(map[int]int, len(m.Seats))
	for id, s := range m.Seats {
		out[id] = s.Stack
	}
	return out
}
