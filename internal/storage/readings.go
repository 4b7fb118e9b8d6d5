package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

// ReadingRepository implements ports.ReadingStore on SQLite.
type ReadingRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.ReadingStore = (*ReadingRepository)(nil)

// NewReadingRepository creates a new reading repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db, now: time.Now}
}

// Save validates and inserts a reading with its cards and hashtags.
func (r *ReadingRepository) Save(ctx context.Context, in domain.ReadingInput) (domain.Reading, error) {
	if err := in.Validate(); err != nil {
		return domain.Reading{}, err
	}
	if in.ID == uuid.Nil {
		in.ID = uuid.New()
	}
	if in.Date.IsZero() {
		in.Date = r.now()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // nil after Commit
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO readings (id, date, spread_type, question_audio_path, reading_audio_path, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, in.ID.String(), formatTime(in.Date), string(in.SpreadType),
		nullString(in.QuestionAudioPath), nullString(in.ReadingAudioPath), nullString(in.Notes))
	if err != nil {
		return domain.Reading{}, fmt.Errorf("failed to insert reading: %w", err)
	}

	for i, cardID := range in.CardIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO reading_cards (reading_id, position, card_id, reversed) VALUES (?, ?, ?, ?)",
			in.ID.String(), i, cardID, in.CardReversals[i],
		); err != nil {
			return domain.Reading{}, fmt.Errorf("failed to insert reading card: %w", err)
		}
	}

	tags := uniqueTags(in.Hashtags)
	for i, tag := range tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO reading_hashtags (reading_id, position, hashtag) VALUES (?, ?, ?)",
			in.ID.String(), i, tag,
		); err != nil {
			return domain.Reading{}, fmt.Errorf("failed to insert reading hashtag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.Reading{}, fmt.Errorf("failed to commit reading: %w", err)
	}

	return domain.Reading{
		ID:                in.ID,
		Date:              in.Date.UTC(),
		SpreadType:        in.SpreadType,
		QuestionAudioPath: in.QuestionAudioPath,
		ReadingAudioPath:  in.ReadingAudioPath,
		CardIDs:           append([]string(nil), in.CardIDs...),
		CardReversals:     append([]bool(nil), in.CardReversals...),
		Hashtags:          tags,
		Notes:             in.Notes,
	}, nil
}

// Get retrieves one reading.
func (r *ReadingRepository) Get(ctx context.Context, id uuid.UUID) (domain.Reading, error) {
	readings, err := r.query(ctx, "WHERE id = ?", id.String())
	if err != nil {
		return domain.Reading{}, err
	}
	if len(readings) == 0 {
		return domain.Reading{}, fmt.Errorf("reading %s: %w", id, ErrNotFound)
	}
	return readings[0], nil
}

// FetchAll returns every reading, newest first.
func (r *ReadingRepository) FetchAll(ctx context.Context) ([]domain.Reading, error) {
	return r.query(ctx, "")
}

// FetchBy returns readings matching the filter, newest first.
func (r *ReadingRepository) FetchBy(ctx context.Context, filter ports.ReadingFilter) ([]domain.Reading, error) {
	var clauses []string
	var args []any
	if filter.CardID != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM reading_cards c WHERE c.reading_id = readings.id AND c.card_id = ?)")
		args = append(args, filter.CardID)
	}
	if filter.Hashtag != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM reading_hashtags h WHERE h.reading_id = readings.id AND h.hashtag = ?)")
		args = append(args, filter.Hashtag)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	return r.query(ctx, where, args...)
}

// Delete removes a reading and its card and hashtag rows.
func (r *ReadingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range []string{
		"DELETE FROM reading_cards WHERE reading_id = ?",
		"DELETE FROM reading_hashtags WHERE reading_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, id.String()); err != nil {
			return fmt.Errorf("failed to delete reading children: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM readings WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("reading %s: %w", id, ErrNotFound)
	}

	return tx.Commit()
}

// CountByCard returns how many readings drew each card.
func (r *ReadingRepository) CountByCard(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT card_id, COUNT(DISTINCT reading_id) FROM reading_cards GROUP BY card_id")
	if err != nil {
		return nil, fmt.Errorf("failed to count readings by card: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var cardID string
		var n int
		if err := rows.Scan(&cardID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan card count: %w", err)
		}
		counts[cardID] = n
	}
	return counts, rows.Err()
}

func (r *ReadingRepository) query(ctx context.Context, where string, args ...any) ([]domain.Reading, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, date, spread_type, question_audio_path, reading_audio_path, notes
		FROM readings `+where+`
		ORDER BY date DESC, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query readings: %w", err)
	}

	var readings []domain.Reading
	for rows.Next() {
		var (
			id, date, spread         string
			question, reading, notes sql.NullString
		)
		if err := rows.Scan(&id, &date, &spread, &question, &reading, &notes); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan reading: %w", err)
		}
		parsedID, err := uuid.Parse(id)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("invalid reading id %q: %w", id, err)
		}
		parsedDate, err := parseTime(date)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		readings = append(readings, domain.Reading{
			ID:                parsedID,
			Date:              parsedDate,
			SpreadType:        domain.Spread(spread),
			QuestionAudioPath: stringPtr(question),
			ReadingAudioPath:  stringPtr(reading),
			Notes:             stringPtr(notes),
			CardIDs:           []string{},
			CardReversals:     []bool{},
			Hashtags:          []string{},
		})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating readings: %w", err)
	}
	// Release the single connection before loading children.
	_ = rows.Close()

	for i := range readings {
		if err := r.loadChildren(ctx, &readings[i]); err != nil {
			return nil, err
		}
	}
	return readings, nil
}

func (r *ReadingRepository) loadChildren(ctx context.Context, reading *domain.Reading) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT card_id, reversed FROM reading_cards WHERE reading_id = ? ORDER BY position", reading.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query reading cards: %w", err)
	}
	for rows.Next() {
		var cardID string
		var reversed bool
		if err := rows.Scan(&cardID, &reversed); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan reading card: %w", err)
		}
		reading.CardIDs = append(reading.CardIDs, cardID)
		reading.CardReversals = append(reading.CardReversals, reversed)
	}
	_ = rows.Close()

	rows, err = r.db.QueryContext(ctx,
		"SELECT hashtag FROM reading_hashtags WHERE reading_id = ? ORDER BY position", reading.ID.String())
	if err != nil {
		return fmt.Errorf("failed to query reading hashtags: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return fmt.Errorf("failed to scan reading hashtag: %w", err)
		}
		reading.Hashtags = append(reading.Hashtags, tag)
	}
	return rows.Err()
}

func uniqueTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
