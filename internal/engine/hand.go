package engine

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/lox/pokerforbots/internal/deck"
	"github.com/lox/pokerforbots/internal/evaluator"
)

// ErrHandVoid is returned by NewHand when fewer than two seats can afford
// their respective blinds (spec.md §4.3 step 2).
var ErrHandVoid = errors.New("engine: fewer than two seats can afford blinds, hand is void")

// phase tracks where a Hand is in its lifecycle, driven by repeated calls to
// NextToAct/SubmitAction (the engine suspends only at await_action, per
// spec.md §5).
type phase int

const (
	phaseBetting phase = iota
	phaseComplete
)

// Hand drives one hand from deal through showdown. Seats are addressed by a
// stable integer id; Order is the seats' clockwise table order, a fixed
// property of the table independent of any one hand's button position.
type Hand struct {
	Index  int
	Seats  map[int]*Seat
	Order  []int
	Button int
	SBSeat int
	BBSeat int

	sbAmount int
	bbAmount int

	Deck      *deck.Deck
	Community []deck.Card

	round         *BettingRound
	phase         phase
	finalized     bool
	matchID       string
	actionsLog    []ActionRecord
	UncontestedTo int

	result *HandLog
}

// NewHand deals a fresh hand: shuffles a deck, deals hole cards to every
// seat with chips, assigns and posts blinds, and opens the pre-flop betting
// round. seats must all have StartingStack set by the caller (the Match
// Controller) before NewHand is called; NewHand resets each dealt-in seat's
// Stack to its StartingStack, sets every seat's Status and HoleCards, and
// debits the blinds.
func NewHand(index int, matchID string, order []int, seats map[int]*Seat, button int, sbAmount, bbAmount int, rng *rand.Rand) (*Hand, error) {
	h := &Hand{
		Index:    index,
		matchID:  matchID,
		Seats:    seats,
		Order:    order,
		Button:   button,
		sbAmount: sbAmount,
		bbAmount: bbAmount,
		Deck:     deck.NewDeckWithRand(rng),
	}
	h.Deck.Shuffle()

	dealOrder := h.clockwiseFrom(button)
	for _, id := range dealOrder {
		s := h.Seats[id]
		if s.StartingStack <= 0 {
			// busted in an earlier hand: not dealt in, and must not carry
			// over stale hole cards/status that would make activeSeats
			// mistake it for a seat still contesting this hand.
			s.HoleCards = nil
			s.Status = Folded
			continue
		}
		s.Stack = s.StartingStack
		s.Status = Active
		s.HoleCards = h.Deck.DealN(2)
	}

	sb, bb, ok := h.assignBlinds()
	if !ok {
		return nil, ErrHandVoid
	}
	h.SBSeat, h.BBSeat = sb, bb

	h.Seats[sb].Stack -= sbAmount
	h.Seats[bb].Stack -= bbAmount

	actOrder := h.clockwiseFrom(bb)
	var active []int
	for _, id := range actOrder {
		if h.Seats[id].Status == Active && h.Seats[id].StartingStack > 0 {
			active = append(active, id)
		}
	}
	h.round = NewPreflopBettingRound(active, sb, bb, sbAmount, bbAmount)
	h.phase = phaseBetting

	return h, nil
}

// clockwiseFrom returns Order rotated to start immediately after seat id.
func (h *Hand) clockwiseFrom(id int) []int {
	n := len(h.Order)
	start := 0
	for i, v := range h.Order {
		if v == id {
			start = i
			break
		}
	}
	out := make([]int, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, h.Order[(start+i)%n])
	}
	return out
}

// assignBlinds walks clockwise from the button, assigning SB to the first
// dealt-in seat that can afford it and BB to the first dealt-in seat after
// that which can afford the big blind (spec.md §4.3 step 2).
func (h *Hand) assignBlinds() (sb, bb int, ok bool) {
	order := h.clockwiseFrom(h.Button)
	sb, bb = -1, -1
	for _, id := range order {
		s := h.Seats[id]
		if s.StartingStack <= 0 || s.Status != Active {
			continue
		}
		if sb == -1 {
			if s.CanAfford(h.sbAmount) {
				sb = id
			}
			continue
		}
		if s.CanAfford(h.bbAmount) {
			bb = id
			break
		}
	}
	if sb == -1 || bb == -1 {
		return 0, 0, false
	}
	return sb, bb, true
}

// activeSeats returns dealt-in seats that have not folded, in table order.
func (h *Hand) activeSeats() []int {
	var out []int
	for _, id := range h.Order {
		s := h.Seats[id]
		if s.HoleCards != nil && s.Status != Folded {
			out = append(out, id)
		}
	}
	return out
}

// activeNonAllIn returns active seats that still have chips to act with.
func (h *Hand) activeNonAllIn() []int {
	var out []int
	for _, id := range h.activeSeats() {
		if h.Seats[id].Status != AllIn && h.Seats[id].Stack > 0 {
			out = append(out, id)
		}
	}
	return out
}

// NextToAct returns the seat the engine is waiting on, or ok=false if the
// hand is complete (call Result).
func (h *Hand) NextToAct() (seat int, ok bool) {
	if h.phase == phaseComplete {
		return 0, false
	}
	start := h.BBSeat
	if h.round.Street != Preflop {
		start = h.Button
	}
	for _, id := range h.clockwiseFrom(start) {
		if h.round.WaitingFor[id] {
			return id, true
		}
	}
	return 0, false
}

// LegalActions exposes the current round's legal-action table for seat.
func (h *Hand) LegalActions(seat int) []Action {
	return h.round.LegalActions(seat, h.Seats[seat].Stack)
}

// Street reports the betting round currently open.
func (h *Hand) Street() Street {
	return h.round.Street
}

// CurrentBet is the current street's current_bet, the target every active
// seat must match to stay in the hand (spec.md §3).
func (h *Hand) CurrentBet() int {
	return h.round.CurrentBet
}

// MinRaise is the minimum legal increment above CurrentBet for the next
// raise on the current street (spec.md §3).
func (h *Hand) MinRaise() int {
	return h.round.MinRaise
}

// ToCall is the chips seat still needs to add to match CurrentBet.
func (h *Hand) ToCall(seat int) int {
	return h.round.ToCall(seat)
}

// MaxRaise is the highest total bet seat may raise to: its remaining stack
// plus whatever it has already committed this street (spec.md §4.5
// "Validation at the boundary").
func (h *Hand) MaxRaise(seat int) int {
	return h.Seats[seat].Stack + h.round.PlayerBets[seat]
}

// SBAmount is this hand's small blind amount.
func (h *Hand) SBAmount() int {
	return h.sbAmount
}

// BBAmount is this hand's big blind amount.
func (h *Hand) BBAmount() int {
	return h.bbAmount
}

// Pot is the sum of every seat's chips committed so far this hand.
func (h *Hand) Pot() int {
	total := 0
	for _, id := range h.Order {
		total += h.Seats[id].Committed()
	}
	return total
}

// SeatBet is the chips seat has put in on the current street.
func (h *Hand) SeatBet(seat int) int {
	return h.round.PlayerBets[seat]
}

// SeatLastAction is the action seat last took on the current street, if any.
func (h *Hand) SeatLastAction(seat int) (Action, bool) {
	a, ok := h.round.PlayerActions[seat]
	return a, ok
}

// LivePots computes the side pots that would result if the hand ended right
// now, for mid-hand GAME_STATE broadcasts (spec.md §4.5). It reuses the same
// side-pot construction as the final award (spec.md §4.3).
func (h *Hand) LivePots() []Pot {
	pots, _ := BuildPots(h.totalIn(), h.folded())
	return pots
}

// SubmitAction applies a (possibly coerced) action for seat and advances the
// hand's state: to the next seat to act, the next street, or showdown. The
// caller (the arbiter) is expected to have already run the wire-boundary
// validation in spec.md §4.5; SubmitAction additionally runs the §4.2
// coercion precedence so a directly-submitted illegal action is still
// handled safely.
func (h *Hand) SubmitAction(seat int, requested Action, amount int, timeout bool) (ActionRecord, error) {
	if h.phase == phaseComplete {
		return ActionRecord{}, errors.New("engine: hand already complete")
	}
	stack := h.Seats[seat].Stack

	c := h.round.Coerce(seat, requested, amount, stack)
	if timeout {
		// spec.md §4.5: a deadline elapsing synthesizes Fold, or Check if
		// checking is legal.
		if h.round.ToCall(seat) == 0 {
			c = CoercedAction{Action: Check}
		} else {
			c = CoercedAction{Action: Fold}
		}
	}

	others := h.othersActiveNonAllIn(seat)
	committed, wentAllIn, err := h.round.Apply(seat, c.Action, c.Amount, stack, others)
	if err != nil {
		return ActionRecord{}, err
	}

	s := h.Seats[seat]
	s.Stack -= committed
	if s.Stack < 0 {
		return ActionRecord{}, fatalf(h.Index, h.round.Street, "seat %d stack went negative", seat)
	}
	switch {
	case c.Action == Fold:
		s.Status = Folded
	case wentAllIn || s.Stack == 0:
		s.Status = AllIn
	}

	rec := ActionRecord{
		Street:  h.round.Street,
		Seat:    seat,
		Action:  c.Action,
		Amount:  c.Amount,
		Coerced: c.Coerced,
		Timeout: timeout,
	}
	h.actionsLog = append(h.actionsLog, rec)

	h.advanceIfClosed()
	return rec, nil
}

func (h *Hand) othersActiveNonAllIn(actor int) []int {
	var out []int
	for _, id := range h.activeNonAllIn() {
		if id != actor {
			out = append(out, id)
		}
	}
	return out
}

// advanceIfClosed checks whether the current betting round has closed and,
// if so, moves the hand to the next street, to showdown, or to an immediate
// uncontested award (spec.md §4.3 steps 4-5).
func (h *Hand) advanceIfClosed() {
	// a fold down to one seat ends the hand immediately, even if that sole
	// survivor is still technically listed in waiting_for: there is no one
	// left to act against (spec.md §4.3 step 5).
	if active := h.activeSeats(); len(active) <= 1 {
		h.settleUncontested(active)
		return
	}

	if !h.round.Closed(h.activeNonAllIn()) {
		return
	}

	if h.round.Street == River || len(h.activeNonAllIn()) <= 1 {
		h.runOutBoard()
		h.settleShowdown()
		return
	}

	h.openNextStreet()
}

// openNextStreet deals the next street's community cards and opens a fresh
// Betting Round with current_bet/min_raise reset (spec.md §4.3 step 4).
func (h *Hand) openNextStreet() {
	next := h.round.Street + 1
	switch next {
	case Flop:
		h.Community = append(h.Community, h.Deck.DealN(3)...)
	case Turn, River:
		h.Community = append(h.Community, h.Deck.DealN(1)...)
	}
	h.round = NewBettingRound(next, h.activeNonAllIn(), h.bbAmount)
}

// runOutBoard deals any community cards not yet dealt when all remaining
// action has ended early (every active seat is all-in).
func (h *Hand) runOutBoard() {
	for len(h.Community) < 3 {
		h.Community = append(h.Community, h.Deck.DealN(1)...)
	}
	for len(h.Community) < 4 {
		h.Community = append(h.Community, h.Deck.DealN(1)...)
	}
	for len(h.Community) < 5 {
		h.Community = append(h.Community, h.Deck.DealN(1)...)
	}
}

// totalIn reports every dealt-in seat's total chips committed this hand.
func (h *Hand) totalIn() map[int]int {
	m := make(map[int]int)
	for _, id := range h.Order {
		s := h.Seats[id]
		if s.HoleCards != nil {
			m[id] = s.Committed()
		}
	}
	return m
}

func (h *Hand) folded() map[int]bool {
	m := make(map[int]bool)
	for _, id := range h.Order {
		m[id] = h.Seats[id].Status == Folded
	}
	return m
}

// settleUncontested awards the entire committed pot to the sole remaining
// active seat without revealing cards (spec.md §4.3 step 5).
func (h *Hand) settleUncontested(active []int) {
	winner := active[0]
	totalIn := h.totalIn()
	folded := h.folded()
	pots, uncalled := BuildPots(totalIn, folded)

	received := make(map[int]int)
	var potResults []PotResult
	for _, p := range pots {
		received[winner] += p.Amount
		potResults = append(potResults, PotResult{
			Amount:   p.Amount,
			Eligible: p.Eligible,
			Winners:  []int{winner},
			Shares:   map[int]int{winner: p.Amount},
		})
	}
	for seat, amt := range uncalled {
		received[seat] += amt
	}
	h.UncontestedTo = winner
	h.finalizeHandWithShowdown(potResults, uncalled, nil, received, totalIn)
}

// settleShowdown evaluates every remaining active seat's best hand and
// awards each pot to its best eligible rank, splitting ties by integer
// division with the remainder going to the seat closest clockwise from the
// button (spec.md §4.3 "Pot award").
func (h *Hand) settleShowdown() {
	totalIn := h.totalIn()
	folded := h.folded()
	pots, uncalled := BuildPots(totalIn, folded)

	ranks := make(map[int]evaluator.HandRank)
	for _, id := range h.activeSeats() {
		r, err := evaluator.BestHandRank(h.Seats[id].HoleCards, h.Community)
		if err != nil {
			panic(fatalf(h.Index, River, "evaluating seat %d: %v", id, err))
		}
		ranks[id] = r
	}

	received := make(map[int]int)
	var potResults []PotResult
	for _, p := range pots {
		winners := bestRankedSeats(p.Eligible, ranks)
		shares := splitPot(p.Amount, winners, h.clockwiseFrom(h.Button))
		for seat, amt := range shares {
			received[seat] += amt
		}
		potResults = append(potResults, PotResult{
			Amount:   p.Amount,
			Eligible: p.Eligible,
			Winners:  winners,
			Shares:   shares,
		})
	}
	for seat, amt := range uncalled {
		received[seat] += amt
	}

	var reveals []ShowdownReveal
	for _, id := range h.activeSeats() {
		reveals = append(reveals, ShowdownReveal{
			Seat:      id,
			HoleCards: h.Seats[id].HoleCards,
			Category:  ranks[id].Category.String(),
		})
	}
	sort.Slice(reveals, func(i, j int) bool { return reveals[i].Seat < reveals[j].Seat })

	h.finalizeHandWithShowdown(potResults, uncalled, reveals, received, totalIn)
}

// bestRankedSeats returns the subset of eligible with the highest hand rank.
func bestRankedSeats(eligible []int, ranks map[int]evaluator.HandRank) []int {
	var best []int
	var bestRank evaluator.HandRank
	for i, seat := range eligible {
		r := ranks[seat]
		if i == 0 || r.Compare(bestRank) > 0 {
			best = []int{seat}
			bestRank = r
		} else if r.Compare(bestRank) == 0 {
			best = append(best, seat)
		}
	}
	return best
}

// splitPot divides amount evenly among winners, giving any integer
// remainder one chip at a time to winners in clockwise order from the
// button (spec.md §4.3 "Pot award").
func splitPot(amount int, winners []int, clockwiseOrder []int) map[int]int {
	shares := make(map[int]int)
	if len(winners) == 0 {
		return shares
	}
	share := amount / len(winners)
	remainder := amount % len(winners)
	for _, w := range winners {
		shares[w] = share
	}
	if remainder == 0 {
		return shares
	}
	winnerSet := make(map[int]bool, len(winners))
	for _, w := range winners {
		winnerSet[w] = true
	}
	for _, seat := range clockwiseOrder {
		if remainder == 0 {
			break
		}
		if winnerSet[seat] {
			shares[seat]++
			remainder--
		}
	}
	return shares
}

// finalizeHandWithShowdown applies each seat's net result to its stack and
// builds the structured log record. It is idempotent: a second call is a
// no-op, since stacks/deltas/the log must not change on repeated invocation
// (spec.md §4.4 "End-of-hand idempotence").
func (h *Hand) finalizeHandWithShowdown(pots []PotResult, uncalled map[int]int, reveals []ShowdownReveal, received map[int]int, totalIn map[int]int) {
	if h.finalized {
		return
	}
	h.finalized = true
	h.phase = phaseComplete

	deltas := make(map[int]int)
	ending := make(map[int]int)
	allScores := make(map[int]int)
	startingStacks := make(map[int]int)
	holeCards := make(map[int][]deck.Card)

	for _, id := range h.Order {
		s := h.Seats[id]
		if s.HoleCards == nil {
			continue
		}
		startingStacks[id] = s.StartingStack
		holeCards[id] = s.HoleCards
		committed := totalIn[id]
		delta := received[id] - committed
		deltas[id] = delta
		allScores[id] = delta
		s.Stack += received[id]
		ending[id] = s.Stack
	}

	h.result = &HandLog{
		MatchID:       h.matchID,
		HandIndex:     h.Index,
		SeatRoster:    append([]int(nil), h.Order...),
		StartingStack: startingStacks,
		Button:        h.Button,
		SBSeat:        h.SBSeat,
		BBSeat:        h.BBSeat,
		SBAmount:      h.sbAmount,
		BBAmount:      h.bbAmount,
		HoleCards:     holeCards,
		Community:     h.Community,
		Actions:       h.actionsLog,
		Pots:          pots,
		Uncalled:      uncalled,
		Showdown:      reveals,
		Deltas:        deltas,
		EndingStack:   ending,
		AllScores:     allScores,
		ActiveHands:   reveals,
		UncontestedTo: h.UncontestedTo,
	}
}

// Result returns the finalized structured log, or nil if the hand has not
// yet completed.
func (h *Hand) Result() *HandLog {
	return h.result
}

// Done reports whether the hand has reached a terminal state.
func (h *Hand) Done() bool {
	return h.phase == phaseComplete
}
