package catalog

import (
	"fmt"
	"math/rand"

	"echotarot/internal/domain"
)

// Draw shuffles the whole deck and deals the first k cards, flipping an
// independent fair coin per card for its orientation. The input slice is
// not modified.
func Draw(cards []domain.Card, k int, rng *rand.Rand) ([]domain.DrawnCard, error) {
	if k < 1 || k > len(cards) {
		return nil, fmt.Errorf("cannot draw %d cards from a deck of %d", k, len(cards))
	}

	deck := make([]domain.Card, len(cards))
	copy(deck, cards)
	rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	drawn := make([]domain.DrawnCard, k)
	for i := range drawn {
		drawn[i] = domain.DrawnCard{Card: deck[i], Reversed: rng.Intn(2) == 1}
	}
	return drawn, nil
}
