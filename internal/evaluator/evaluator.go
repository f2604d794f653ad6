// Package evaluator ranks Texas Hold'em hands by enumerating every 5-card
// combination drawn from a seat's hole cards and the community cards and
// scoring each one, as spec.md §4.1 requires — no precomputed lookup table.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/lox/pokerforbots/internal/deck"
)

// Category is a poker hand category, totally ordered from weakest to
// strongest.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

var categoryNames = [...]string{
	HighCard:      "high card",
	OnePair:       "one pair",
	TwoPair:       "two pair",
	ThreeOfAKind:  "three of a kind",
	Straight:      "straight",
	Flush:         "flush",
	FullHouse:     "full house",
	FourOfAKind:   "four of a kind",
	StraightFlush: "straight flush",
}

func (c Category) String() string {
	if c < HighCard || c > StraightFlush {
		return "unknown"
	}
	return categoryNames[c]
}

// HandRank is a hand's category plus a lexicographically comparable
// tiebreaker tuple of card ranks (spec.md §4.1), both produced by evaluating
// exactly one 5-card combination.
type HandRank struct {
	Category    Category
	Tiebreakers [5]int
}

// Compare returns -1, 0, or 1 as r is weaker than, equal to, or stronger
// than other.
func (r HandRank) Compare(other HandRank) int {
	if r.Category != other.Category {
		if r.Category < other.Category {
			return -1
		}
		return 1
	}
	for i := range r.Tiebreakers {
		if r.Tiebreakers[i] != other.Tiebreakers[i] {
			if r.Tiebreakers[i] < other.Tiebreakers[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (r HandRank) String() string {
	return fmt.Sprintf("%s %v", r.Category, r.Tiebreakers)
}

// BestHandRank evaluates every C(n,5) five-card combination from hole and
// community cards and returns the strongest; fewer than 5 cards in total is
// an error. The evaluator is
// deterministic and side-effect-free, called both at showdown and when
// composing structured logs, per spec.md §4.1.
func BestHandRank(hole, community []deck.Card) (HandRank, error) {
	all := make([]deck.Card, 0, len(hole)+len(community))
	all = append(all, hole...)
	all = append(all, community...)
	if len(all) < 5 {
		return HandRank{}, fmt.Errorf("evaluator: need at least 5 cards, got %d", len(all))
	}

	best := HandRank{}
	first := true
	forEachCombination(len(all), 5, func(idxs []int) {
		var combo [5]deck.Card
		for i, idx := range idxs {
			combo[i] = all[idx]
		}
		rank := evaluateFive(combo)
		if first || rank.Compare(best) > 0 {
			best = rank
			first = false
		}
	})
	return best, nil
}

// forEachCombination calls fn once per k-sized index combination drawn from
// [0, n), in ascending order, without allocating on each call.
func forEachCombination(n, k int, fn func(idxs []int)) {
	if k > n {
		return
	}
	idxs := make([]int, k)
	for i := range idxs {
		idxs[i] = i
	}
	for {
		fn(idxs)

		// advance to the next combination
		i := k - 1
		for i >= 0 && idxs[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idxs[i]++
		for j := i + 1; j < k; j++ {
			idxs[j] = idxs[j-1] + 1
		}
	}
}

// evaluateFive scores exactly 5 cards.
func evaluateFive(cards [5]deck.Card) HandRank {
	ranks := make([]int, 5)
	suitCounts := map[deck.Suit]int{}
	rankCounts := map[int]int{}
	for i, c := range cards {
		ranks[i] = int(c.Rank)
		suitCounts[c.Suit]++
		rankCounts[int(c.Rank)]++
	}

	isFlush := len(suitCounts) == 1
	straightHigh, isStraight := straightHighCard(ranks)

	if isStraight && isFlush {
		return HandRank{Category: StraightFlush, Tiebreakers: [5]int{straightHigh, 0, 0, 0, 0}}
	}

	groups := groupByCount(rankCounts)

	switch {
	case groups[0].count == 4:
		kicker := highestOtherRank(ranks, groups[0].rank)
		return HandRank{Category: FourOfAKind, Tiebreakers: [5]int{groups[0].rank, kicker, 0, 0, 0}}
	case groups[0].count == 3 && len(groups) > 1 && groups[1].count >= 2:
		return HandRank{Category: FullHouse, Tiebreakers: [5]int{groups[0].rank, groups[1].rank, 0, 0, 0}}
	case isFlush:
		return HandRank{Category: Flush, Tiebreakers: descendingTiebreak(ranks)}
	case isStraight:
		return HandRank{Category: Straight, Tiebreakers: [5]int{straightHigh, 0, 0, 0, 0}}
	case groups[0].count == 3:
		kickers := otherRanksDescending(ranks, map[int]bool{groups[0].rank: true})
		return HandRank{Category: ThreeOfAKind, Tiebreakers: [5]int{groups[0].rank, kickers[0], kickers[1], 0, 0}}
	case groups[0].count == 2 && len(groups) > 1 && groups[1].count == 2:
		hiPair, loPair := groups[0].rank, groups[1].rank
		if loPair > hiPair {
			hiPair, loPair = loPair, hiPair
		}
		kicker := otherRanksDescending(ranks, map[int]bool{hiPair: true, loPair: true})[0]
		return HandRank{Category: TwoPair, Tiebreakers: [5]int{hiPair, loPair, kicker, 0, 0}}
	case groups[0].count == 2:
		kickers := otherRanksDescending(ranks, map[int]bool{groups[0].rank: true})
		return HandRank{Category: OnePair, Tiebreakers: [5]int{groups[0].rank, kickers[0], kickers[1], kickers[2], 0}}
	default:
		return HandRank{Category: HighCard, Tiebreakers: descendingTiebreak(ranks)}
	}
}

type rankGroup struct {
	rank  int
	count int
}

// groupByCount returns rank groups sorted by count desc, then rank desc, so
// groups[0] is always the decisive group (e.g. the quads, the trips in a
// full house).
func groupByCount(rankCounts map[int]int) []rankGroup {
	groups := make([]rankGroup, 0, len(rankCounts))
	for rank, count := range rankCounts {
		groups = append(groups, rankGroup{rank: rank, count: count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

func descendingTiebreak(ranks []int) [5]int {
	sorted := append([]int(nil), ranks...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	var out [5]int
	copy(out[:], sorted)
	return out
}

func highestOtherRank(ranks []int, exclude int) int {
	best := -1
	for _, r := range ranks {
		if r != exclude && r > best {
			best = r
		}
	}
	return best
}

func otherRanksDescending(ranks []int, exclude map[int]bool) []int {
	out := make([]int, 0, len(ranks))
	for _, r := range ranks {
		if !exclude[r] {
			out = append(out, r)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	for len(out) < 3 {
		out = append(out, 0)
	}
	return out
}

// straightHighCard reports the high card of a straight among the 5 ranks, if
// any, treating Ace-2-3-4-5 (the wheel) as a 5-high straight per spec.md §4.1.
func straightHighCard(ranks []int) (int, bool) {
	seen := map[int]bool{}
	for _, r := range ranks {
		if seen[r] {
			return 0, false // a pair can't be a straight
		}
		seen[r] = true
	}

	sorted := append([]int(nil), ranks...)
	sort.Ints(sorted)

	// wheel: A,2,3,4,5
	wheel := map[int]bool{14: true, 2: true, 3: true, 4: true, 5: true}
	isWheel := true
	for _, r := range sorted {
		if !wheel[r] {
			isWheel = false
			break
		}
	}
	if isWheel {
		return 5, true
	}

	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return 0, false
		}
	}
	return sorted[len(sorted)-1], true
}
