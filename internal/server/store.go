package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBlobNotFound is returned when no blob exists for a keyId.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is one stored sync payload. The payload is opaque ciphertext: the
// server never parses it beyond storing the JSON envelope verbatim.
type Blob struct {
	KeyID     string
	UpdatedAt string
	Payload   json.RawMessage
}

// BlobStore defines the interface for encrypted blob storage.
type BlobStore interface {
	// Get returns the blob for a keyId, or ErrBlobNotFound.
	Get(ctx context.Context, keyID string) (*Blob, error)
	// Put stores a blob, replacing any prior value for its keyId in full.
	Put(ctx context.Context, blob *Blob) error
}

// BlobRepo provides SQLite-backed blob storage for the sync service.
type BlobRepo struct {
	db *sql.DB
}

// NewBlobRepo creates a new BlobRepo.
func NewBlobRepo(db *sql.DB) *BlobRepo {
	return &BlobRepo{db: db}
}

// Migrate creates the sync service tables. Idempotent.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS sync_blobs (
		key_id TEXT PRIMARY KEY,
		updated_at TEXT NOT NULL,
		payload TEXT NOT NULL
	);`)
	if err != nil {
		return fmt.Errorf("failed to migrate sync_blobs: %w", err)
	}
	return nil
}

// Get returns the blob for a keyId, or ErrBlobNotFound.
func (r *BlobRepo) Get(ctx context.Context, keyID string) (*Blob, error) {
	var blob Blob
	var payload string
	err := r.db.QueryRowContext(ctx,
		"SELECT key_id, updated_at, payload FROM sync_blobs WHERE key_id = ?", keyID,
	).Scan(&blob.KeyID, &blob.UpdatedAt, &payload)
	if err == sql.ErrNoRows {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query blob: %w", err)
	}
	blob.Payload = json.RawMessage(payload)
	return &blob, nil
}

// Put stores a blob, replacing any prior value for its keyId in full.
func (r *BlobRepo) Put(ctx context.Context, blob *Blob) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO sync_blobs (key_id, updated_at, payload) VALUES (?, ?, ?)",
		blob.KeyID, blob.UpdatedAt, string(blob.Payload))
	if err != nil {
		return fmt.Errorf("failed to put blob: %w", err)
	}
	return nil
}
