package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements FactStore on a local SQLite database. Used in
// single-process deployments where no remote KV service is configured.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed fact store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS facts (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (user_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_facts_user ON facts(user_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Load retrieves all keys for a user.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM facts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close facts rows", "error", closeErr)
		}
	}()

	facts := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		facts[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// Get retrieves a single key. Missing keys yield ("", nil).
func (s *SQLiteStore) Get(ctx context.Context, userID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM facts WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get fact %s: %w", key, err)
	}
	return value, nil
}

// Upsert creates or replaces a single key. Retries once on SQLITE_BUSY.
func (s *SQLiteStore) Upsert(ctx context.Context, userID, key, value string) error {
	err := s.upsertOnce(ctx, userID, key, value)
	if err != nil && isSQLiteBusy(err) {
		time.Sleep(100 * time.Millisecond)
		err = s.upsertOnce(ctx, userID, key, value)
	}
	return err
}

func (s *SQLiteStore) upsertOnce(ctx context.Context, userID, key, value string) error {
	query := `
	INSERT INTO facts (user_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, userID, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert fact %s: %w", key, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isSQLiteBusy reports whether err is a SQLite concurrency error that
// warrants a retry.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
