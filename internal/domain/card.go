package domain

import "fmt"

// Suit groups cards of the deck.
type Suit string

const (
	SuitMajor     Suit = "major"
	SuitCups      Suit = "cups"
	SuitPentacles Suit = "pentacles"
	SuitSwords    Suit = "swords"
	SuitWands     Suit = "wands"
)

// Suits lists every suit in catalog order.
var Suits = []Suit{SuitMajor, SuitCups, SuitPentacles, SuitSwords, SuitWands}

// DisplayName is the spoken form of the suit.
func (s Suit) DisplayName() string {
	switch s {
	case SuitMajor:
		return "Major Arcana"
	case SuitCups:
		return "Cups"
	case SuitPentacles:
		return "Pentacles"
	case SuitSwords:
		return "Swords"
	case SuitWands:
		return "Wands"
	default:
		return string(s)
	}
}

// ParseSuit accepts a suit identifier.
func ParseSuit(value string) (Suit, error) {
	for _, s := range Suits {
		if string(s) == value {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown suit %q", value)
}

// Card is an immutable catalog entry. ID is stable across releases and is
// referenced by saved readings.
type Card struct {
	ID              string `json:"id"`
	Suit            Suit   `json:"suit"`
	Name            string `json:"name"`
	Number          int    `json:"number"`
	UprightMeaning  string `json:"uprightMeaning"`
	ReversedMeaning string `json:"reversedMeaning"`
	ImageRef        string `json:"imageRef,omitempty"`
	AltText         string `json:"altText,omitempty"`
}

// Meaning returns the base keyword string for an orientation.
func (c Card) Meaning(reversed bool) string {
	if reversed {
		return c.ReversedMeaning
	}
	return c.UprightMeaning
}

// DrawnCard is a card as it came out of the deck. Reversed is fixed at draw time.
type DrawnCard struct {
	Card     Card `json:"card"`
	Reversed bool `json:"reversed"`
}

// Orientation is the spoken orientation label.
func (d DrawnCard) Orientation() string {
	if d.Reversed {
		return "reversed"
	}
	return "upright"
}
