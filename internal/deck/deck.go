package deck

import (
	"math/rand"
	"time"
)

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

func full52() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

// NewDeck creates a new standard 52-card deck seeded from the current time.
func NewDeck() *Deck {
	return NewDeckWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewDeckWithRand creates a standard 52-card deck using the supplied RNG,
// so a hand's shuffle is reproducible given a fixed seed (spec.md §8
// determinism: fixed deck seed + fixed action sequence => byte-identical log).
func NewDeckWithRand(rng *rand.Rand) *Deck {
	return &Deck{
		cards: full52(),
		rng:   rng,
	}
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}

	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// DealN deals n cards from the deck
func (d *Deck) DealN(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}

	cards := make([]Card, n)
	for i := 0; i < n; i++ {
		if card, ok := d.Deal(); ok {
			cards[i] = card
		}
	}

	return cards
}

// Remove deletes a specific card from the deck, wherever it currently sits,
// preserving the relative order of the remaining cards. It reports whether
// the card was present. Required by spec.md §3's Deck contract (shuffle,
// deal-top-k, remove-specific-card) for removing burned or dead cards.
func (d *Deck) Remove(c Card) bool {
	for i, existing := range d.cards {
		if existing == c {
			d.cards = append(d.cards[:i], d.cards[i+1:]...)
			return true
		}
	}
	return false
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// IsEmpty returns true if the deck has no cards left
func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Reset restores the deck to a full 52-card deck and shuffles it
func (d *Deck) Reset() {
	d.cards = full52()
	d.Shuffle()
}

// PlaceOnTop removes each of cards from wherever it sits in the deck and
// stacks them back on top in the given order, so the next Deal/DealN calls
// return exactly this sequence. Used to script deterministic test scenarios
// (fixed board/hole cards) without otherwise disturbing the deck's
// remaining order.
func (d *Deck) PlaceOnTop(cards []Card) {
	for _, c := range cards {
		d.Remove(c)
	}
	d.cards = append(append([]Card{}, cards...), d.cards...)
}

// Peek returns up to n cards from the top of the deck without removing them,
// the non-mutating inspection original_source/poker-engine/deck.py's
// PokerDeck.sample provides atop deal/shuffle/remove.
func (d *Deck) Peek(n int) []Card {
	if n > len(d.cards) {
		n = len(d.cards)
	}
	out := make([]Card, n)
	copy(out, d.cards[:n])
	return out
}
