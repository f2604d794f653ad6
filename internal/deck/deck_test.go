package deck

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck()
	assert.Equal(t, 52, d.CardsRemaining())

	seen := make(map[Card]bool)
	for !d.IsEmpty() {
		c, ok := d.Deal()
		require.True(t, ok)
		assert.False(t, seen[c], "duplicate card dealt: %v", c)
		seen[c] = true
	}
	assert.Len(t, seen, 52)
}

func TestDeckShuffleIsDeterministicForFixedSeed(t *testing.T) {
	d1 := NewDeckWithRand(rand.New(rand.NewSource(42)))
	d1.Shuffle()
	d2 := NewDeckWithRand(rand.New(rand.NewSource(42)))
	d2.Shuffle()

	assert.Equal(t, d1.DealN(52), d2.DealN(52))
}

func TestDeckRemove(t *testing.T) {
	d := NewDeckWithRand(rand.New(rand.NewSource(1)))
	target := NewCard(Spades, Ace)

	removed := d.Remove(target)
	assert.True(t, removed)
	assert.Equal(t, 51, d.CardsRemaining())

	removedAgain := d.Remove(target)
	assert.False(t, removedAgain)

	for _, c := range d.DealN(51) {
		assert.NotEqual(t, target, c)
	}
}

func TestDeckPeekDoesNotMutate(t *testing.T) {
	d := NewDeckWithRand(rand.New(rand.NewSource(7)))
	before := d.CardsRemaining()

	peeked := d.Peek(3)
	assert.Len(t, peeked, 3)
	assert.Equal(t, before, d.CardsRemaining())

	dealt := d.DealN(3)
	assert.Equal(t, peeked, dealt)
}

func TestDeckResetRestoresFullDeck(t *testing.T) {
	d := NewDeck()
	d.DealN(10)
	assert.Equal(t, 42, d.CardsRemaining())

	d.Reset()
	assert.Equal(t, 52, d.CardsRemaining())
}
