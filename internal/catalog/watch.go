package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"echotarot/internal/domain"
)

// Source hands out the current catalog. It is swapped atomically when the
// deck file changes, so a draw always sees one consistent deck.
type Source struct {
	current atomic.Pointer[Catalog]
}

// NewSource wraps an initial catalog.
func NewSource(c *Catalog) *Source {
	s := &Source{}
	s.current.Store(c)
	return s
}

// Catalog returns the current deck.
func (s *Source) Catalog() *Catalog {
	return s.current.Load()
}

// Cards returns the current deck's cards.
func (s *Source) Cards() []domain.Card {
	return s.current.Load().All()
}

// Lookup finds a card in the current deck.
func (s *Source) Lookup(id string) (domain.Card, error) {
	return s.current.Load().Lookup(id)
}

// BySuit returns the current deck's cards of one suit.
func (s *Source) BySuit(suit domain.Suit) []domain.Card {
	return s.current.Load().BySuit(suit)
}

// Watch reloads the deck at path into s whenever the file is written,
// until ctx is done. Parse failures keep the previous deck.
func (s *Source) Watch(ctx context.Context, path string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	deckFile := path
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		deckFile = filepath.Join(path, "deck.toml")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create deck watcher: %w", err)
	}
	// Editors replace files by rename, so watch the directory and filter.
	if err := watcher.Add(filepath.Dir(deckFile)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", deckFile, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(deckFile) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				next, err := Load(deckFile)
				if err != nil {
					logger.Warn("deck reload failed", "path", deckFile, "error", err)
					continue
				}
				s.current.Store(next)
				logger.Info("deck reloaded", "path", deckFile, "cards", next.Len())
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("deck watcher error", "error", err)
			}
		}
	}()

	return nil
}
