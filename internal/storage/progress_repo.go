package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_stores.go -package=mocks vocabtrainer/internal/storage ProgressStore,SettingsStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// ProgressStore defines the interface for mastery record storage operations.
type ProgressStore interface {
	// Get returns the record for a word ID, or ErrNotFound.
	Get(ctx context.Context, wordID int) (*ProgressRecord, error)
	// Put inserts or replaces a single record.
	Put(ctx context.Context, rec *ProgressRecord) error
	// PutMany replaces all given records in a single transaction.
	PutMany(ctx context.Context, recs []ProgressRecord) error
	// GetMany returns records keyed by word ID; missing IDs are absent from the map.
	GetMany(ctx context.Context, wordIDs []int) (map[int]*ProgressRecord, error)
	// GetAll returns every stored record.
	GetAll(ctx context.Context) ([]ProgressRecord, error)
	// Clear removes all records.
	Clear(ctx context.Context) error
}

// ProgressRepo provides SQLite-backed mastery record storage.
// It implements the ProgressStore interface.
type ProgressRepo struct {
	db *sql.DB
}

// NewProgressRepo creates a new ProgressRepo.
func NewProgressRepo(db *sql.DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

const progressColumns = `word_id, updated_at,
	meaning_correct, meaning_partial, meaning_wrong, meaning_streak, meaning_last_at, meaning_next_review_at,
	spelling_correct, spelling_wrong, spelling_streak, spelling_last_at, spelling_next_review_at,
	spelling_hint_used, is_favorite, is_learned`

// Get returns the record for a word ID, or ErrNotFound.
func (r *ProgressRepo) Get(ctx context.Context, wordID int) (*ProgressRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+progressColumns+" FROM progress WHERE word_id = ?", wordID)
	rec, err := scanProgress(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress record: %w", err)
	}
	return rec, nil
}

// Put inserts or replaces a single record.
func (r *ProgressRepo) Put(ctx context.Context, rec *ProgressRecord) error {
	_, err := r.db.ExecContext(ctx, progressUpsertSQL, progressUpsertArgs(rec)...)
	if err != nil {
		return fmt.Errorf("failed to put progress record: %w", err)
	}
	return nil
}

// PutMany replaces all given records in a single transaction, so a concurrent
// reader observes either the full pre-merge or full post-merge state.
func (r *ProgressRepo) PutMany(ctx context.Context, recs []ProgressRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, progressUpsertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range recs {
		if _, err := stmt.ExecContext(ctx, progressUpsertArgs(&recs[i])...); err != nil {
			return fmt.Errorf("failed to put progress record %d: %w", recs[i].WordID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit progress records: %w", err)
	}
	return nil
}

// GetMany returns records keyed by word ID; missing IDs are absent from the map.
func (r *ProgressRepo) GetMany(ctx context.Context, wordIDs []int) (map[int]*ProgressRecord, error) {
	out := make(map[int]*ProgressRecord, len(wordIDs))
	for _, id := range wordIDs {
		rec, err := r.Get(ctx, id)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = rec
	}
	return out, nil
}

// GetAll returns every stored record.
func (r *ProgressRepo) GetAll(ctx context.Context) ([]ProgressRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+progressColumns+" FROM progress ORDER BY word_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []ProgressRecord
	for rows.Next() {
		rec, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress record: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress records: %w", err)
	}
	return out, nil
}

// Clear removes all records.
func (r *ProgressRepo) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM progress"); err != nil {
		return fmt.Errorf("failed to clear progress records: %w", err)
	}
	return nil
}

const progressUpsertSQL = `INSERT OR REPLACE INTO progress (` + progressColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func progressUpsertArgs(rec *ProgressRecord) []any {
	return []any{
		rec.WordID, formatTime(rec.UpdatedAt),
		rec.MeaningCorrect, rec.MeaningPartial, rec.MeaningWrong, rec.MeaningStreak,
		formatTime(rec.MeaningLastAt), formatTime(rec.MeaningNextReviewAt),
		rec.SpellingCorrect, rec.SpellingWrong, rec.SpellingStreak,
		formatTime(rec.SpellingLastAt), formatTime(rec.SpellingNextReviewAt),
		rec.SpellingHintUsed, rec.IsFavorite, rec.IsLearned,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(row rowScanner) (*ProgressRecord, error) {
	var rec ProgressRecord
	var updatedAt, meaningLast, meaningNext, spellingLast, spellingNext sql.NullString

	err := row.Scan(
		&rec.WordID, &updatedAt,
		&rec.MeaningCorrect, &rec.MeaningPartial, &rec.MeaningWrong, &rec.MeaningStreak,
		&meaningLast, &meaningNext,
		&rec.SpellingCorrect, &rec.SpellingWrong, &rec.SpellingStreak,
		&spellingLast, &spellingNext,
		&rec.SpellingHintUsed, &rec.IsFavorite, &rec.IsLearned,
	)
	if err != nil {
		return nil, err
	}

	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if rec.MeaningLastAt, err = parseTime(meaningLast); err != nil {
		return nil, err
	}
	if rec.MeaningNextReviewAt, err = parseTime(meaningNext); err != nil {
		return nil, err
	}
	if rec.SpellingLastAt, err = parseTime(spellingLast); err != nil {
		return nil, err
	}
	if rec.SpellingNextReviewAt, err = parseTime(spellingNext); err != nil {
		return nil, err
	}
	return &rec, nil
}

// formatTime converts an optional timestamp to its stored RFC3339 form.
func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored timestamp %q: %w", s.String, err)
	}
	return &t, nil
}
