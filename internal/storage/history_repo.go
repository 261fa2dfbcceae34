package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// HistoryStore defines the interface for activity log operations.
type HistoryStore interface {
	// Add appends one event to the log.
	Add(ctx context.Context, ev *HistoryEvent) error
	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]HistoryEvent, error)
	// Clear removes all events.
	Clear(ctx context.Context) error
}

// HistoryRepo provides SQLite-backed append-only activity logging.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Add appends one event to the log and fills in its assigned ID.
func (r *HistoryRepo) Add(ctx context.Context, ev *HistoryEvent) error {
	if ev.TS.IsZero() {
		ev.TS = time.Now()
	}
	var wordID any
	if ev.WordID != 0 {
		wordID = ev.WordID
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO history (ts, type, label, word_id) VALUES (?, ?, ?, ?)",
		ev.TS.UTC().Format(time.RFC3339Nano), ev.Type, ev.Label, wordID)
	if err != nil {
		return fmt.Errorf("failed to add history event: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		ev.ID = id
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]HistoryEvent, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, ts, type, label, word_id FROM history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []HistoryEvent
	for rows.Next() {
		var ev HistoryEvent
		var ts string
		var wordID sql.NullInt64
		if err := rows.Scan(&ev.ID, &ts, &ev.Type, &ev.Label, &wordID); err != nil {
			return nil, fmt.Errorf("failed to scan history event: %w", err)
		}
		ev.TS, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse history timestamp %q: %w", ts, err)
		}
		if wordID.Valid {
			ev.WordID = int(wordID.Int64)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return out, nil
}

// Clear removes all events.
func (r *HistoryRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM history"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
