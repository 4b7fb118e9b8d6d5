package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

// SortOrder orders journal listings by date.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder accepts "newest" or "oldest"; empty means newest.
func ParseSortOrder(value string) (SortOrder, error) {
	switch SortOrder(value) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", value)
	}
}

// JournalQuery filters and orders saved readings.
type JournalQuery struct {
	CardID  string
	Hashtag string
	Sort    SortOrder
}

// JournalEntry is a saved reading with its cards resolved from the catalog.
type JournalEntry struct {
	Reading domain.Reading     `json:"reading"`
	Cards   []domain.DrawnCard `json:"cards"`
}

// CardUsage counts how many saved readings drew a card.
type CardUsage struct {
	Card     domain.Card `json:"card"`
	Readings int         `json:"readings"`
}

// Journal browses, plays back and deletes saved readings.
type Journal struct {
	store    ports.ReadingStore
	tags     ports.HashtagStore
	recorder ports.Recorder
	cards    CardIndex
	logger   *slog.Logger
}

func NewJournal(store ports.ReadingStore, tags ports.HashtagStore, recorder ports.Recorder, cards CardIndex, logger *slog.Logger) *Journal {
	if logger == nil {
		logger = slog.Default()
	}
	return &Journal{store: store, tags: tags, recorder: recorder, cards: cards, logger: logger.With("component", "journal")}
}

// List returns readings matching q.
func (j *Journal) List(ctx context.Context, q JournalQuery) ([]domain.Reading, error) {
	readings, err := j.store.FetchBy(ctx, ports.ReadingFilter{CardID: q.CardID, Hashtag: q.Hashtag})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(readings, func(a, b int) bool {
		if q.Sort == SortOldest {
			return readings[a].Date.Before(readings[b].Date)
		}
		return readings[a].Date.After(readings[b].Date)
	})
	return readings, nil
}

// Entry returns one reading with its cards resolved. Cards no longer in the
// catalog are reported by id only.
func (j *Journal) Entry(ctx context.Context, id uuid.UUID) (JournalEntry, error) {
	reading, err := j.store.Get(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	return j.resolve(reading), nil
}

// Delete removes a reading and its audio clips.
func (j *Journal) Delete(ctx context.Context, id uuid.UUID) error {
	reading, err := j.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := j.store.Delete(ctx, id); err != nil {
		return err
	}
	for _, path := range []*string{reading.QuestionAudioPath, reading.ReadingAudioPath} {
		if path == nil || j.recorder == nil {
			continue
		}
		if err := j.recorder.Discard(domain.AudioRef(*path)); err != nil {
			j.logger.Warn("failed to remove clip of deleted reading", "id", id, "path", *path, "error", err)
		}
	}
	j.logger.Info("reading deleted", "id", id)
	return nil
}

// Hashtags returns the master list together with every hashtag used by a
// saved reading, sorted.
func (j *Journal) Hashtags(ctx context.Context) ([]string, error) {
	readings, err := j.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	tags := lo.FlatMap(readings, func(r domain.Reading, _ int) []string { return r.Hashtags })
	if j.tags != nil {
		master, err := j.tags.List(ctx)
		if err != nil {
			return nil, err
		}
		tags = append(tags, master...)
	}
	tags = lo.Uniq(tags)
	sort.Strings(tags)
	return tags, nil
}

// CardCounts returns how many saved readings drew each card.
func (j *Journal) CardCounts(ctx context.Context) (map[string]int, error) {
	return j.store.CountByCard(ctx)
}

// Suit lists a suit's cards with their reading counts, in deck order.
func (j *Journal) Suit(ctx context.Context, suit domain.Suit) ([]CardUsage, error) {
	counts, err := j.CardCounts(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(j.cards.BySuit(suit), func(card domain.Card, _ int) CardUsage {
		return CardUsage{Card: card, Readings: counts[card.ID]}
	}), nil
}

// Play plays a recorded clip of a saved reading.
func (j *Journal) Play(ctx context.Context, ref domain.AudioRef) error {
	if ref == "" {
		return fmt.Errorf("no clip to play")
	}
	return j.recorder.Play(ctx, ref)
}

// StopPlayback stops any clip being played.
func (j *Journal) StopPlayback() {
	j.recorder.StopPlayback()
}

func (j *Journal) resolve(reading domain.Reading) JournalEntry {
	cards := make([]domain.DrawnCard, len(reading.CardIDs))
	for i, id := range reading.CardIDs {
		card, err := j.cards.Lookup(id)
		if err != nil {
			card = domain.Card{ID: id, Name: id}
		}
		cards[i] = domain.DrawnCard{Card: card, Reversed: i < len(reading.CardReversals) && reading.CardReversals[i]}
	}
	return JournalEntry{Reading: reading, Cards: cards}
}
