// Package storage persists readings, settings and hashtags in SQLite.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// timeLayout keeps stored timestamps lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Config holds database configuration settings.
type Config struct {
	// Path is the file path to the SQLite database, or MemoryPath.
	Path string

	// BusyTimeout sets how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// JournalMode sets the SQLite journal mode. Default: WAL
	JournalMode string

	// AutoMigrate runs pending migrations on Open.
	AutoMigrate bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
		AutoMigrate: true,
	}
}

// DB wraps the database connection and hands out repositories.
type DB struct {
	conn *sql.DB

	readings *ReadingRepository
	settings *SettingsRepository
	hashtags *HashtagRepository
}

// Open creates a database connection with the given configuration.
func Open(config *Config) (*DB, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	memory := config.Path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", buildDSN(config))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes writers and keeps an in-memory database alive.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if config.AutoMigrate {
		if err := Migrate(conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	return newDB(conn), nil
}

func newDB(conn *sql.DB) *DB {
	return &DB{
		conn:     conn,
		readings: NewReadingRepository(conn),
		settings: NewSettingsRepository(conn),
		hashtags: NewHashtagRepository(conn),
	}
}

func buildDSN(config *Config) string {
	timeout := config.BusyTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if config.Path != MemoryPath && config.JournalMode != "" {
		params.Add("_pragma", fmt.Sprintf("journal_mode(%s)", config.JournalMode))
	}
	if config.Path == MemoryPath {
		return MemoryPath + "?" + params.Encode()
	}
	return "file:" + config.Path + "?" + params.Encode()
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn returns the underlying sql.DB connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Readings returns the reading repository.
func (db *DB) Readings() *ReadingRepository { return db.readings }

// Settings returns the settings repository.
func (db *DB) Settings() *SettingsRepository { return db.settings }

// Hashtags returns the hashtag repository.
func (db *DB) Hashtags() *HashtagRepository { return db.hashtags }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored time %q: %w", value, err)
	}
	return t, nil
}
