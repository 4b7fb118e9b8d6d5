package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"echotarot/internal/domain"
	"echotarot/internal/keywords"
	"echotarot/internal/ports"
)

// CardIndex resolves catalog cards.
type CardIndex interface {
	Lookup(id string) (domain.Card, error)
	BySuit(suit domain.Suit) []domain.Card
}

// KeywordView is a card's effective keywords for one orientation.
type KeywordView struct {
	Card       domain.Card `json:"card"`
	Reversed   bool        `json:"reversed"`
	Keywords   []string    `json:"keywords"`
	Meaning    string      `json:"meaning"`
	Customized bool        `json:"customized"`
}

// SettingsService edits app preferences and per-card keyword overrides.
type SettingsService struct {
	store  ports.SettingsStore
	cards  CardIndex
	logger *slog.Logger
}

func NewSettingsService(store ports.SettingsStore, cards CardIndex, logger *slog.Logger) *SettingsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettingsService{store: store, cards: cards, logger: logger.With("component", "settings")}
}

// AppSettings returns the stored preferences.
func (s *SettingsService) AppSettings(ctx context.Context) (domain.AppSettings, error) {
	return s.store.LoadAppSettings(ctx)
}

// UpdateAppSettings applies fn to the stored preferences and saves the result.
func (s *SettingsService) UpdateAppSettings(ctx context.Context, fn func(*domain.AppSettings)) (domain.AppSettings, error) {
	settings, err := s.store.LoadAppSettings(ctx)
	if err != nil {
		return domain.AppSettings{}, err
	}
	fn(&settings)
	settings = settings.Normalize()
	if err := s.store.SaveAppSettings(ctx, settings); err != nil {
		return domain.AppSettings{}, err
	}
	return settings, nil
}

// SetDefaultSpread changes the spread new sessions start with.
func (s *SettingsService) SetDefaultSpread(ctx context.Context, spread domain.Spread) (domain.AppSettings, error) {
	if !spread.Valid() {
		return domain.AppSettings{}, fmt.Errorf("unknown spread %q", spread)
	}
	return s.UpdateAppSettings(ctx, func(settings *domain.AppSettings) {
		settings.DefaultSpread = spread
	})
}

// ShouldShowTutorial reports whether screen's tutorial is still pending.
func (s *SettingsService) ShouldShowTutorial(ctx context.Context, screen domain.Screen) (bool, error) {
	settings, err := s.store.LoadAppSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings.ShouldShowTutorial(screen), nil
}

// MarkTutorialShown records that screen's tutorial was seen.
func (s *SettingsService) MarkTutorialShown(ctx context.Context, screen domain.Screen) error {
	_, err := s.UpdateAppSettings(ctx, func(settings *domain.AppSettings) {
		settings.MarkTutorialShown(screen)
	})
	return err
}

// ResetTutorials makes every tutorial show again.
func (s *SettingsService) ResetTutorials(ctx context.Context) error {
	_, err := s.UpdateAppSettings(ctx, func(settings *domain.AppSettings) {
		settings.TutorialEnabled = true
		settings.HomeTutorialShown = false
		settings.LogsTutorialShown = false
		settings.SettingsTutorialShown = false
	})
	return err
}

// Keywords returns a card's effective keywords for one orientation.
func (s *SettingsService) Keywords(ctx context.Context, cardID string, reversed bool) (KeywordView, error) {
	card, c, err := s.load(ctx, cardID)
	if err != nil {
		return KeywordView{}, err
	}
	return view(card, reversed, c), nil
}

// AddKeyword adds keyword to the card's orientation. changed is false when
// the keyword was blank or already present.
func (s *SettingsService) AddKeyword(ctx context.Context, cardID string, reversed bool, keyword string) (KeywordView, bool, error) {
	card, c, err := s.load(ctx, cardID)
	if err != nil {
		return KeywordView{}, false, err
	}
	next, changed := keywords.Add(card, reversed, c, keyword)
	if changed {
		if err := s.store.SetCustomization(ctx, cardID, next); err != nil {
			return KeywordView{}, false, err
		}
		s.logger.Info("keyword added", "card", cardID, "reversed", reversed, "keyword", keyword)
	}
	return view(card, reversed, next), changed, nil
}

// RemoveKeyword removes keyword from the card's orientation. changed is
// false when the keyword was not present.
func (s *SettingsService) RemoveKeyword(ctx context.Context, cardID string, reversed bool, keyword string) (KeywordView, bool, error) {
	card, c, err := s.load(ctx, cardID)
	if err != nil {
		return KeywordView{}, false, err
	}
	next, changed := keywords.Remove(card, reversed, c, keyword)
	if changed {
		if err := s.store.SetCustomization(ctx, cardID, next); err != nil {
			return KeywordView{}, false, err
		}
		s.logger.Info("keyword removed", "card", cardID, "reversed", reversed, "keyword", keyword)
	}
	return view(card, reversed, next), changed, nil
}

// ResetKeywords discards every override of the card.
func (s *SettingsService) ResetKeywords(ctx context.Context, cardID string) error {
	if _, err := s.cards.Lookup(cardID); err != nil {
		return err
	}
	if err := s.store.SetCustomization(ctx, cardID, domain.CardKeywordCustomization{}); err != nil {
		return err
	}
	s.logger.Info("keywords reset", "card", cardID)
	return nil
}

// CustomizedCards lists the ids of cards with overrides, sorted.
func (s *SettingsService) CustomizedCards(ctx context.Context) ([]string, error) {
	all, err := s.store.Customizations(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(all))
	for id, c := range all {
		if !c.IsEmpty() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *SettingsService) load(ctx context.Context, cardID string) (domain.Card, domain.CardKeywordCustomization, error) {
	card, err := s.cards.Lookup(cardID)
	if err != nil {
		return domain.Card{}, domain.CardKeywordCustomization{}, err
	}
	c, err := s.store.Customization(ctx, cardID)
	if err != nil {
		return domain.Card{}, domain.CardKeywordCustomization{}, err
	}
	return card, c, nil
}

func view(card domain.Card, reversed bool, c domain.CardKeywordCustomization) KeywordView {
	list := keywords.Resolve(card, reversed, c)
	var added, removed []string
	if reversed {
		added, removed = c.AddedReversed, c.RemovedReversed
	} else {
		added, removed = c.AddedUpright, c.RemovedUpright
	}
	return KeywordView{
		Card:       card,
		Reversed:   reversed,
		Keywords:   list,
		Meaning:    keywords.Effective(card, reversed, c),
		Customized: len(added) > 0 || len(removed) > 0,
	}
}
