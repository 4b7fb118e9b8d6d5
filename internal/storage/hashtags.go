package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"echotarot/internal/ports"
)

// HashtagRepository implements ports.HashtagStore.
type HashtagRepository struct {
	db *sql.DB
}

var _ ports.HashtagStore = (*HashtagRepository)(nil)

// NewHashtagRepository creates a new hashtag repository.
func NewHashtagRepository(db *sql.DB) *HashtagRepository {
	return &HashtagRepository{db: db}
}

// List returns the master hashtag list in sorted order.
func (r *HashtagRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM hashtags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query hashtags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan hashtag: %w", err)
		}
		tags = append(tags, name)
	}
	return tags, rows.Err()
}

// Add inserts a hashtag; existing names are left untouched.
func (r *HashtagRepository) Add(ctx context.Context, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return errors.New("hashtag cannot be empty")
	}
	if _, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO hashtags (name, created_at) VALUES (?, ?)", tag, formatTime(time.Now()),
	); err != nil {
		return fmt.Errorf("failed to add hashtag %s: %w", tag, err)
	}
	return nil
}

// Rename changes a hashtag's name. Renaming onto an existing name merges the two.
func (r *HashtagRepository) Rename(ctx context.Context, from, to string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return errors.New("hashtag cannot be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var createdAt string
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM hashtags WHERE name = ?", from).Scan(&createdAt)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("hashtag %s: %w", from, ErrNotFound)
		}
		return fmt.Errorf("failed to find hashtag %s: %w", from, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM hashtags WHERE name = ?", from); err != nil {
		return fmt.Errorf("failed to rename hashtag %s: %w", from, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO hashtags (name, created_at) VALUES (?, ?)", to, createdAt,
	); err != nil {
		return fmt.Errorf("failed to rename hashtag %s: %w", from, err)
	}
	return tx.Commit()
}

// Remove deletes a hashtag from the master list.
func (r *HashtagRepository) Remove(ctx context.Context, tag string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM hashtags WHERE name = ?", tag); err != nil {
		return fmt.Errorf("failed to remove hashtag %s: %w", tag, err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
