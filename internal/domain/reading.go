package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidReading marks a reading record that violates its shape invariants.
var ErrInvalidReading = errors.New("invalid reading")

// Reading is the persisted record of one completed session. It is created
// once and never updated in place.
type Reading struct {
	ID                uuid.UUID `json:"id"`
	Date              time.Time `json:"date"`
	SpreadType        Spread    `json:"spreadType"`
	QuestionAudioPath *string   `json:"questionAudioPath,omitempty"`
	ReadingAudioPath  *string   `json:"readingAudioPath,omitempty"`
	CardIDs           []string  `json:"cardIds"`
	CardReversals     []bool    `json:"cardReversals"`
	Hashtags          []string  `json:"hashtags"`
	Notes             *string   `json:"notes,omitempty"`
}

// ReadingInput is a reading before it is assigned an identity by the store.
type ReadingInput struct {
	ID                uuid.UUID
	Date              time.Time
	SpreadType        Spread
	QuestionAudioPath *string
	ReadingAudioPath  *string
	CardIDs           []string
	CardReversals     []bool
	Hashtags          []string
	Notes             *string
}

// Validate enforces len(CardIDs) == len(CardReversals) == SpreadType.CardCount().
func (in ReadingInput) Validate() error {
	if !in.SpreadType.Valid() {
		return fmt.Errorf("%w: unknown spread %q", ErrInvalidReading, in.SpreadType)
	}
	want := in.SpreadType.CardCount()
	if len(in.CardIDs) != want || len(in.CardReversals) != want {
		return fmt.Errorf("%w: spread %s needs %d cards, got %d ids and %d reversals",
			ErrInvalidReading, in.SpreadType, want, len(in.CardIDs), len(in.CardReversals))
	}
	for i, id := range in.CardIDs {
		if id == "" {
			return fmt.Errorf("%w: empty card id at position %d", ErrInvalidReading, i)
		}
	}
	return nil
}

// NewReadingInput builds the record of a finished session from its drawn cards.
func NewReadingInput(spread Spread, drawn []DrawnCard, question, reading AudioRef, hashtags []string) ReadingInput {
	ids := make([]string, len(drawn))
	reversals := make([]bool, len(drawn))
	for i, d := range drawn {
		ids[i] = d.Card.ID
		reversals[i] = d.Reversed
	}
	tags := make([]string, len(hashtags))
	copy(tags, hashtags)
	return ReadingInput{
		SpreadType:        spread,
		QuestionAudioPath: refPath(question),
		ReadingAudioPath:  refPath(reading),
		CardIDs:           ids,
		CardReversals:     reversals,
		Hashtags:          tags,
	}
}

func refPath(ref AudioRef) *string {
	if ref == "" {
		return nil
	}
	path := string(ref)
	return &path
}
