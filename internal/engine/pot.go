package engine

import "sort"

// Pot is a tuple (amount, eligible seats), per spec.md §3.
type Pot struct {
	Amount   int
	Eligible []int
}

// BuildPots implements the side-pot construction algorithm in spec.md §4.3:
//  1. collect every seat's total chips committed so far (totalIn).
//  2. sort the distinct positive totalIn values over non-folded seats into
//     levels v1 < v2 < ... < vk.
//  3. pot i = (vi - v[i-1]) * |seats with totalIn >= vi|, eligible to
//     non-folded seats with totalIn >= vi.
//  4. chips committed above the highest level, or contributed by a folded
//     seat with no non-folded seat left to contest them, are returned
//     uncalled rather than awarded as a pot.
func BuildPots(totalIn map[int]int, folded map[int]bool) (pots []Pot, uncalled map[int]int) {
	uncalled = make(map[int]int)

	levels := distinctLevels(totalIn, folded)
	if len(levels) == 0 {
		for seat, amt := range totalIn {
			if amt > 0 {
				uncalled[seat] += amt
			}
		}
		return nil, uncalled
	}

	remaining := make(map[int]int, len(totalIn))
	for seat, amt := range totalIn {
		remaining[seat] = amt
	}

	prev := 0
	for _, level := range levels {
		span := level - prev
		prev = level
		if span <= 0 {
			continue
		}

		var contributors []int
		var eligible []int
		for seat, amt := range remaining {
			if amt <= 0 {
				continue
			}
			contributors = append(contributors, seat)
			if !folded[seat] {
				eligible = append(eligible, seat)
			}
		}

		take := span
		amount := span * len(contributors)
		for _, seat := range contributors {
			if remaining[seat] < take {
				amount -= take - remaining[seat]
			}
			remaining[seat] -= take
			if remaining[seat] < 0 {
				remaining[seat] = 0
			}
		}

		switch len(eligible) {
		case 0:
			// nobody left to contest this level: return it uncalled to
			// whichever folded seat(s) contributed it.
			for _, seat := range contributors {
				uncalled[seat] += take
			}
		case 1:
			// only one non-folded seat reached this level, so nobody
			// contests it: the whole level, including any folded seats'
			// chips in it, goes back to that seat as an uncalled return.
			uncalled[eligible[0]] += amount
		default:
			sort.Ints(eligible)
			pots = append(pots, Pot{Amount: amount, Eligible: eligible})
		}
	}

	// whatever is left was committed by folded seats above the highest
	// non-folded level: nobody contests it, so it is returned uncalled.
	for seat, amt := range remaining {
		if amt > 0 {
			uncalled[seat] += amt
		}
	}

	return pots, uncalled
}

func distinctLevels(totalIn map[int]int, folded map[int]bool) []int {
	seen := make(map[int]bool)
	var levels []int
	for seat, amt := range totalIn {
		if folded[seat] {
			continue
		}
		if amt > 0 && !seen[amt] {
			seen[amt] = true
			levels = append(levels, amt)
		}
	}
	sort.Ints(levels)
	return levels
}

// Total sums every pot's amount.
func Total(pots []Pot) int {
	sum := 0
	for _, p := range pots {
		sum += p.Amount
	}
	return sum
}
