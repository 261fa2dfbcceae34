package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens a SQLite database connection at the given path.
// It enables foreign keys and sets connection pool settings.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys (disabled by default in SQLite)
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate runs database migrations to create the required tables.
// It is idempotent and can be run multiple times safely.
func Migrate(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS progress (
			word_id INTEGER PRIMARY KEY,
			updated_at TEXT,
			meaning_correct INTEGER NOT NULL DEFAULT 0,
			meaning_partial INTEGER NOT NULL DEFAULT 0,
			meaning_wrong INTEGER NOT NULL DEFAULT 0,
			meaning_streak INTEGER NOT NULL DEFAULT 0,
			meaning_last_at TEXT,
			meaning_next_review_at TEXT,
			spelling_correct INTEGER NOT NULL DEFAULT 0,
			spelling_wrong INTEGER NOT NULL DEFAULT 0,
			spelling_streak INTEGER NOT NULL DEFAULT 0,
			spelling_last_at TEXT,
			spelling_next_review_at TEXT,
			spelling_hint_used INTEGER NOT NULL DEFAULT 0,
			is_favorite INTEGER NOT NULL DEFAULT 0,
			is_learned INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_meaning_next ON progress(meaning_next_review_at);`,
		`CREATE INDEX IF NOT EXISTS idx_progress_spelling_next ON progress(spelling_next_review_at);`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			type TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			word_id INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_ts ON history(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_history_type ON history(type);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
