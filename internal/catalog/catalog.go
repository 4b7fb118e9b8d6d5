// Package catalog loads the static card table and draws from it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"echotarot/internal/domain"
)

//go:embed decks/default.toml
var defaultDeck string

// ErrCardNotFound is returned by Lookup for unknown card ids.
var ErrCardNotFound = errors.New("card not found")

// DeckFile is the on-disk layout of deck.toml.
type DeckFile struct {
	Deck  DeckInfo   `toml:"deck"`
	Cards []CardFile `toml:"cards"`
}

// DeckInfo describes a deck.
type DeckInfo struct {
	ID          string `toml:"id"`
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Author      string `toml:"author"`
	Description string `toml:"description"`
}

// CardFile is one [[cards]] entry.
type CardFile struct {
	ID       string `toml:"id"`
	Suit     string `toml:"suit"`
	Number   int    `toml:"number"`
	Name     string `toml:"name"`
	Upright  string `toml:"upright"`
	Reversed string `toml:"reversed"`
	Image    string `toml:"image"`
	AltText  string `toml:"alt_text"`
}

// Catalog is an immutable, ordered card table.
type Catalog struct {
	Info  DeckInfo
	cards []domain.Card
	byID  map[string]int
}

// Default returns the embedded deck.
func Default() (*Catalog, error) {
	var file DeckFile
	if _, err := toml.Decode(defaultDeck, &file); err != nil {
		return nil, fmt.Errorf("error parsing embedded deck: %w", err)
	}
	return build(file)
}

// Load reads a deck from a directory containing deck.toml, or from a .toml
// file directly. An empty path yields the embedded deck.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("deck not found: %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, "deck.toml")
	}

	var file DeckFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return build(file)
}

func build(file DeckFile) (*Catalog, error) {
	if len(file.Cards) == 0 {
		return nil, errors.New("deck has no cards")
	}

	c := &Catalog{
		Info:  file.Deck,
		cards: make([]domain.Card, 0, len(file.Cards)),
		byID:  make(map[string]int, len(file.Cards)),
	}
	for i, raw := range file.Cards {
		id := strings.TrimSpace(raw.ID)
		if id == "" {
			return nil, fmt.Errorf("card %d: missing id", i+1)
		}
		if _, dup := c.byID[id]; dup {
			return nil, fmt.Errorf("card %d: duplicate id %s", i+1, id)
		}
		suit, err := domain.ParseSuit(strings.ToLower(strings.TrimSpace(raw.Suit)))
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", id, err)
		}
		name := strings.TrimSpace(raw.Name)
		if name == "" {
			name = id
		}
		c.byID[id] = len(c.cards)
		c.cards = append(c.cards, domain.Card{
			ID:              id,
			Suit:            suit,
			Name:            name,
			Number:          raw.Number,
			UprightMeaning:  raw.Upright,
			ReversedMeaning: raw.Reversed,
			ImageRef:        raw.Image,
			AltText:         raw.AltText,
		})
	}
	return c, nil
}

// Len is the number of cards in the deck.
func (c *Catalog) Len() int {
	return len(c.cards)
}

// All returns a copy of every card in deck order.
func (c *Catalog) All() []domain.Card {
	out := make([]domain.Card, len(c.cards))
	copy(out, c.cards)
	return out
}

// Lookup finds a card by id.
func (c *Catalog) Lookup(id string) (domain.Card, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Card{}, fmt.Errorf("%w: %s", ErrCardNotFound, id)
	}
	return c.cards[idx], nil
}

// BySuit returns the cards of one suit in deck order.
func (c *Catalog) BySuit(suit domain.Suit) []domain.Card {
	var out []domain.Card
	for _, card := range c.cards {
		if card.Suit == suit {
			out = append(out, card)
		}
	}
	return out
}
