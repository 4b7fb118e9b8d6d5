package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"echotarot/internal/domain"
	"echotarot/internal/ports"
)

const (
	appSettingsKey         = "app_settings"
	customizationKeyPrefix = "card_keywords:"
)

// SettingsRepository implements ports.SettingsStore with JSON values in a
// key/value table.
type SettingsRepository struct {
	db *sql.DB
}

var _ ports.SettingsStore = (*SettingsRepository)(nil)

// NewSettingsRepository creates a new settings repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves a raw JSON value by key.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if isNoRows(err) {
			return "", fmt.Errorf("setting %s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// GetTyped retrieves a setting and unmarshals it into target.
func (r *SettingsRepository) GetTyped(ctx context.Context, key string, target any) error {
	value, err := r.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(value), target); err != nil {
		return fmt.Errorf("failed to unmarshal setting %s: %w", key, err)
	}
	return nil
}

// Set stores a JSON-encoded setting value.
func (r *SettingsRepository) Set(ctx context.Context, key string, value any) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal setting %s: %w", key, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(jsonValue), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes a setting. Missing keys are not an error.
func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// LoadAppSettings returns stored preferences, or defaults on first launch.
func (r *SettingsRepository) LoadAppSettings(ctx context.Context) (domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	if err := r.GetTyped(ctx, appSettingsKey, &settings); err != nil {
		if isNotFound(err) {
			return domain.DefaultAppSettings(), nil
		}
		return domain.AppSettings{}, err
	}
	return settings.Normalize(), nil
}

// SaveAppSettings stores preferences.
func (r *SettingsRepository) SaveAppSettings(ctx context.Context, settings domain.AppSettings) error {
	return r.Set(ctx, appSettingsKey, settings.Normalize())
}

// Customization returns the card's override, or an empty one.
func (r *SettingsRepository) Customization(ctx context.Context, cardID string) (domain.CardKeywordCustomization, error) {
	var c domain.CardKeywordCustomization
	if err := r.GetTyped(ctx, customizationKeyPrefix+cardID, &c); err != nil {
		if isNotFound(err) {
			return domain.CardKeywordCustomization{}, nil
		}
		return domain.CardKeywordCustomization{}, err
	}
	return c, nil
}

// SetCustomization stores c, or deletes the entry when c is empty.
func (r *SettingsRepository) SetCustomization(ctx context.Context, cardID string, c domain.CardKeywordCustomization) error {
	if c.IsEmpty() {
		return r.Delete(ctx, customizationKeyPrefix+cardID)
	}
	return r.Set(ctx, customizationKeyPrefix+cardID, c)
}

// Customizations returns every stored override keyed by card id.
func (r *SettingsRepository) Customizations(ctx context.Context) (map[string]domain.CardKeywordCustomization, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings WHERE key LIKE ?", customizationKeyPrefix+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query customizations: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make(map[string]domain.CardKeywordCustomization)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan customization: %w", err)
		}
		var c domain.CardKeywordCustomization
		if err := json.Unmarshal([]byte(value), &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal customization %s: %w", key, err)
		}
		out[strings.TrimPrefix(key, customizationKeyPrefix)] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customizations: %w", err)
	}
	return out, nil
}
