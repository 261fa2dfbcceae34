package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vocabtrainer/internal/contextutil"
)

// minKeyIDLen is the well-formedness floor on incoming keyIds. A real keyId
// is a 64-character hex SHA-256; this is a sanity check, not a security
// control.
const minKeyIDLen = 16

// SyncHandler serves the push/pull protocol over a blob store.
type SyncHandler struct {
	store  BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(store BlobStore, logger *slog.Logger) *SyncHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{store: store, logger: logger, now: time.Now}
}

// getLogger extracts the request logger from context or falls back to the
// handler's own.
func (h *SyncHandler) getLogger(ctx context.Context) *slog.Logger {
	if l := contextutil.LoggerFromContext(ctx); l != nil {
		return l
	}
	return h.logger
}

type pushRequest struct {
	KeyID     string          `json:"keyId"`
	UpdatedAt string          `json:"updatedAt"`
	Payload   json.RawMessage `json:"payload"`
	Reason    string          `json:"reason"`
}

type pushResponse struct {
	OK        bool   `json:"ok"`
	Stored    bool   `json:"stored"`
	Ignored   bool   `json:"ignored,omitempty"`
	UpdatedAt string `json:"updatedAt"`
}

type pullRequest struct {
	KeyID string `json:"keyId"`
}

type pullResponse struct {
	Found     bool            `json:"found"`
	UpdatedAt string          `json:"updatedAt,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// errorResponse is the error body shape for all endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

// Push stores an encrypted payload under its keyId. A payload whose updatedAt
// is strictly older than the stored one is ignored: last-write-wins at the
// whole-payload level, a server-side safety net against out-of-order
// delivery. All real merging happens client-side.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.getLogger(ctx)

	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.KeyID) < minKeyIDLen {
		writeError(w, http.StatusBadRequest, "keyId required")
		return
	}
	if req.UpdatedAt == "" {
		writeError(w, http.StatusBadRequest, "updatedAt required")
		return
	}
	if len(req.Payload) == 0 || string(req.Payload) == "null" {
		writeError(w, http.StatusBadRequest, "payload required")
		return
	}

	existing, err := h.store.Get(ctx, req.KeyID)
	if err != nil && !errors.Is(err, ErrBlobNotFound) {
		logger.ErrorContext(ctx, "push: failed to read existing blob", "error", err)
		writeError(w, http.StatusInternalServerError, "Storage error")
		return
	}
	if existing != nil {
		exT, exErr := time.Parse(time.RFC3339, existing.UpdatedAt)
		inT, inErr := time.Parse(time.RFC3339, req.UpdatedAt)
		if exErr == nil && inErr == nil && inT.Before(exT) {
			writeJSON(w, http.StatusOK, pushResponse{
				OK: true, Stored: false, Ignored: true, UpdatedAt: existing.UpdatedAt,
			})
			return
		}
	}

	blob := &Blob{KeyID: req.KeyID, UpdatedAt: req.UpdatedAt, Payload: req.Payload}
	if err := h.store.Put(ctx, blob); err != nil {
		logger.ErrorContext(ctx, "push: failed to store blob", "error", err)
		writeError(w, http.StatusInternalServerError, "Storage error")
		return
	}

	logger.InfoContext(ctx, "payload stored", "reason", req.Reason, "updated_at", req.UpdatedAt)
	writeJSON(w, http.StatusOK, pushResponse{OK: true, Stored: true, UpdatedAt: req.UpdatedAt})
}

// Pull returns the current payload for a keyId, or found=false.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.getLogger(ctx)

	var req pullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.KeyID) < minKeyIDLen {
		writeError(w, http.StatusBadRequest, "keyId required")
		return
	}

	blob, err := h.store.Get(ctx, req.KeyID)
	if errors.Is(err, ErrBlobNotFound) {
		writeJSON(w, http.StatusOK, pullResponse{Found: false})
		return
	}
	if err != nil {
		logger.ErrorContext(ctx, "pull: failed to read blob", "error", err)
		writeError(w, http.StatusInternalServerError, "Storage error")
		return
	}

	writeJSON(w, http.StatusOK, pullResponse{
		Found: true, UpdatedAt: blob.UpdatedAt, Payload: blob.Payload,
	})
}

// Health is the liveness check. No side effects.
func (h *SyncHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"service": "vocabtrainer-sync",
		"ts":      h.now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
