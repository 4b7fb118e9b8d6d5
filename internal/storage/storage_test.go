package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DefaultConfig(MemoryPath))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func strPtr(s string) *string { return &s }

func threeCardInput(date time.Time, tags ...string) domain.ReadingInput {
	return domain.ReadingInput{
		Date:              date,
		SpreadType:        domain.SpreadThreeCard,
		QuestionAudioPath: strPtr("/clips/question_1.m4a"),
		CardIDs:           []string{"major_arcana.00", "minor_arcana.cups.ace", "major_arcana.08"},
		CardReversals:     []bool{false, true, false},
		Hashtags:          tags,
	}
}

func TestOpenFileDatabaseMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "echotarot.db")
	db, err := Open(DefaultConfig(path))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := SchemaVersion(db.Conn())
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening is a no-op migration.
	require.NoError(t, db.Close())
	db, err = Open(DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenNilConfig(t *testing.T) {
	_, err := Open(nil)
	assert.Error(t, err)
}

func TestReadingRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	saved, err := db.Readings().Save(ctx, threeCardInput(time.Now(), "love", " work ", "love", ""))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, saved.ID)
	assert.Equal(t, []string{"love", "work"}, saved.Hashtags)

	got, err := db.Readings().Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SpreadThreeCard, got.SpreadType)
	assert.Equal(t, []string{"major_arcana.00", "minor_arcana.cups.ace", "major_arcana.08"}, got.CardIDs)
	assert.Equal(t, []bool{false, true, false}, got.CardReversals)
	assert.Equal(t, []string{"love", "work"}, got.Hashtags)
	require.NotNil(t, got.QuestionAudioPath)
	assert.Equal(t, "/clips/question_1.m4a", *got.QuestionAudioPath)
	assert.Nil(t, got.ReadingAudioPath)
	assert.Nil(t, got.Notes)
	assert.WithinDuration(t, saved.Date, got.Date, time.Microsecond)
}

func TestSaveRejectsMismatchedCards(t *testing.T) {
	db := setupTestDB(t)
	in := threeCardInput(time.Now())
	in.CardReversals = in.CardReversals[:2]

	_, err := db.Readings().Save(context.Background(), in)
	assert.ErrorIs(t, err, domain.ErrInvalidReading)

	all, err := db.Readings().FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFetchAllNewestFirstAndFilters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	older, err := db.Readings().Save(ctx, threeCardInput(base, "work"))
	require.NoError(t, err)
	newer, err := db.Readings().Save(ctx, domain.ReadingInput{
		Date:          base.Add(time.Hour),
		SpreadType:    domain.SpreadOneCard,
		CardIDs:       []string{"minor_arcana.swords.two"},
		CardReversals: []bool{true},
		Hashtags:      []string{"love"},
	})
	require.NoError(t, err)

	all, err := db.Readings().FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	byCard, err := db.Readings().FetchBy(ctx, ports.ReadingFilter{CardID: "major_arcana.00"})
	require.NoError(t, err)
	require.Len(t, byCard, 1)
	assert.Equal(t, older.ID, byCard[0].ID)

	byTag, err := db.Readings().FetchBy(ctx, ports.ReadingFilter{Hashtag: "love"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, newer.ID, byTag[0].ID)

	none, err := db.Readings().FetchBy(ctx, ports.ReadingFilter{CardID: "major_arcana.00", Hashtag: "love"})
	require.NoError(t, err)
	assert.Empty(t, none)

	counts, err := db.Readings().CountByCard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["major_arcana.00"])
	assert.Equal(t, 1, counts["minor_arcana.swords.two"])
}

func TestDeleteReading(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	saved, err := db.Readings().Save(ctx, threeCardInput(time.Now(), "love"))
	require.NoError(t, err)

	require.NoError(t, db.Readings().Delete(ctx, saved.ID))
	_, err = db.Readings().Get(ctx, saved.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	byCard, err := db.Readings().FetchBy(ctx, ports.ReadingFilter{CardID: "major_arcana.00"})
	require.NoError(t, err)
	assert.Empty(t, byCard)

	assert.ErrorIs(t, db.Readings().Delete(ctx, saved.ID), ErrNotFound)
}

func TestAppSettingsDefaultsAndRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	settings, err := db.Settings().LoadAppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), settings)

	settings.DefaultSpread = domain.SpreadThreeCard
	settings.HapticEnabled = false
	settings.SpeechRate = 0.7
	require.NoError(t, db.Settings().SaveAppSettings(ctx, settings))

	got, err := db.Settings().LoadAppSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.SpreadThreeCard, got.DefaultSpread)
	assert.False(t, got.HapticEnabled)
	assert.InDelta(t, 0.7, got.SpeechRate, 1e-9)
}

func TestCustomizationEmptyIsDeleted(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := db.Settings()

	c := domain.CardKeywordCustomization{AddedUpright: []string{"Confidence"}, RemovedUpright: []string{"Courage"}}
	require.NoError(t, repo.SetCustomization(ctx, "major_arcana.08", c))

	got, err := repo.Customization(ctx, "major_arcana.08")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	all, err := repo.Customizations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "major_arcana.08")

	require.NoError(t, repo.SetCustomization(ctx, "major_arcana.08", domain.CardKeywordCustomization{}))
	_, err = repo.Get(ctx, customizationKeyPrefix+"major_arcana.08")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = repo.Customization(ctx, "major_arcana.08")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestHashtagRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := db.Hashtags()

	require.NoError(t, repo.Add(ctx, "work"))
	require.NoError(t, repo.Add(ctx, " love "))
	require.NoError(t, repo.Add(ctx, "work"))
	assert.Error(t, repo.Add(ctx, "  "))

	tags, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"love", "work"}, tags)

	require.NoError(t, repo.Rename(ctx, "work", "career"))
	require.NoError(t, repo.Rename(ctx, "love", "career"))
	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"career"}, tags)

	assert.ErrorIs(t, repo.Rename(ctx, "missing", "x"), ErrNotFound)

	require.NoError(t, repo.Remove(ctx, "career"))
	tags, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
