package usecase

import (
	"context"
	"errors"
	"log/slog"

	"echotarot/internal/ports"
)

var errEmptyHashtag = errors.New("hashtag cannot be empty")

// HashtagService manages the user's master hashtag list. Saved readings keep
// the tags they were saved with.
type HashtagService struct {
	store  ports.HashtagStore
	logger *slog.Logger
}

func NewHashtagService(store ports.HashtagStore, logger *slog.Logger) *HashtagService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HashtagService{store: store, logger: logger.With("component", "hashtags")}
}

// List returns the master list, sorted.
func (h *HashtagService) List(ctx context.Context) ([]string, error) {
	return h.store.List(ctx)
}

// Add normalizes tags and adds each to the master list.
func (h *HashtagService) Add(ctx context.Context, tags ...string) error {
	for _, tag := range NormalizeHashtags(tags) {
		if err := h.store.Add(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}

// Rename renames a tag. Renaming onto an existing tag merges them.
func (h *HashtagService) Rename(ctx context.Context, from, to string) error {
	from, to = normalizeHashtag(from), normalizeHashtag(to)
	if from == "" || to == "" {
		return errEmptyHashtag
	}
	if from == to {
		return nil
	}
	if err := h.store.Rename(ctx, from, to); err != nil {
		return err
	}
	h.logger.Info("hashtag renamed", "from", from, "to", to)
	return nil
}

// Merge folds every tag in from into into.
func (h *HashtagService) Merge(ctx context.Context, into string, from ...string) error {
	into = normalizeHashtag(into)
	if into == "" {
		return errEmptyHashtag
	}
	if err := h.store.Add(ctx, into); err != nil {
		return err
	}
	for _, tag := range NormalizeHashtags(from) {
		if tag == into {
			continue
		}
		if err := h.store.Rename(ctx, tag, into); err != nil {
			return err
		}
	}
	h.logger.Info("hashtags merged", "into", into, "from", from)
	return nil
}

// Remove deletes tags from the master list.
func (h *HashtagService) Remove(ctx context.Context, tags ...string) error {
	for _, tag := range NormalizeHashtags(tags) {
		if err := h.store.Remove(ctx, tag); err != nil {
			return err
		}
	}
	return nil
}
