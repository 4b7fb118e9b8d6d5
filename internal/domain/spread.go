package domain

import (
	"fmt"
	"strings"
)

// Spread is the layout of a draw.
type Spread string

const (
	SpreadOneCard   Spread = "oneCard"
	SpreadThreeCard Spread = "threeCard"
)

// CardCount is the number of cards a spread draws.
func (s Spread) CardCount() int {
	switch s {
	case SpreadThreeCard:
		return 3
	default:
		return 1
	}
}

// PositionNames names each draw position, index-aligned with the drawn cards.
func (s Spread) PositionNames() []string {
	switch s {
	case SpreadThreeCard:
		return []string{"Past", "Present", "Future"}
	default:
		return []string{"Message"}
	}
}

func (s Spread) DisplayName() string {
	switch s {
	case SpreadThreeCard:
		return "Three card spread"
	default:
		return "One card spread"
	}
}

func (s Spread) Description() string {
	switch s {
	case SpreadThreeCard:
		return "Three cards for the past, the present and the future"
	default:
		return "A single card carrying today's message"
	}
}

// Toggle returns the other spread.
func (s Spread) Toggle() Spread {
	if s == SpreadThreeCard {
		return SpreadOneCard
	}
	return SpreadThreeCard
}

func (s Spread) Valid() bool {
	return s == SpreadOneCard || s == SpreadThreeCard
}

// ParseSpread accepts the persisted tag or a short alias ("one", "three", "1", "3").
func ParseSpread(value string) (Spread, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "onecard", "one", "1":
		return SpreadOneCard, nil
	case "threecard", "three", "3":
		return SpreadThreeCard, nil
	default:
		return "", fmt.Errorf("unknown spread %q", value)
	}
}
