package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SettingsStore defines the interface for settings storage operations.
type SettingsStore interface {
	// Get returns the value for a key; found reports whether the key exists.
	Get(ctx context.Context, key string) (value any, found bool, err error)
	// Set stores a single key/value pair.
	Set(ctx context.Context, key string, value any) error
	// SetMany stores all given pairs in a single transaction.
	SetMany(ctx context.Context, values map[string]any) error
	// GetAll returns every stored setting.
	GetAll(ctx context.Context) (map[string]any, error)
	// Clear removes all settings.
	Clear(ctx context.Context) error
}

// SettingsRepo provides SQLite-backed settings storage. Values are stored as
// JSON so booleans, strings and nulls round-trip the way the sync payload
// carries them.
type SettingsRepo struct {
	db *sql.DB
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(db *sql.DB) *SettingsRepo {
	return &SettingsRepo{db: db}
}

// Get returns the value for a key; found reports whether the key exists.
func (r *SettingsRepo) Get(ctx context.Context, key string) (any, bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query setting %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return nil, false, fmt.Errorf("failed to decode setting %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores a single key/value pair.
func (r *SettingsRepo) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to put setting %q: %w", key, err)
	}
	return nil
}

// SetMany stores all given pairs in a single transaction.
func (r *SettingsRepo) SetMany(ctx context.Context, values map[string]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to encode setting %q: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)", key, string(raw)); err != nil {
			return fmt.Errorf("failed to put setting %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}

// GetAll returns every stored setting.
func (r *SettingsRepo) GetAll(ctx context.Context) (map[string]any, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("failed to decode setting %q: %w", key, err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return out, nil
}

// Clear removes all settings.
func (r *SettingsRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM settings"); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}
