// Package sync orchestrates push and pull against the remote store: exporting
// and encrypting local state, debouncing automatic pushes, and merging pulled
// state back into the local store.
package sync

import (
	"context"
	"errors"
	"log/slog"
	gosync "sync"
	"time"

	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/storage"
	"vocabtrainer/internal/synccodec"
)

const (
	// debounceDelay collapses bursts of mutations into one auto push.
	debounceDelay = 1200 * time.Millisecond
	// autoPushTimeout bounds a debounced push fired without a caller context.
	autoPushTimeout = 30 * time.Second
)

// Manager coordinates sync operations. At most one push runs at a time: a
// push requested while another is in flight is skipped, not queued, and the
// next mutating action schedules again.
type Manager struct {
	progress storage.ProgressStore
	settings storage.SettingsStore
	logger   *slog.Logger

	// OnRestore is invoked after a pull merge is persisted, so session caches
	// can drop stale records.
	OnRestore func()

	remoteFor func(endpoint string) Remote
	debounce  time.Duration
	now       func() time.Time

	mu       gosync.Mutex
	timer    *time.Timer
	reason   string
	inflight bool
}

// NewManager creates a sync manager over the given local stores.
func NewManager(progress storage.ProgressStore, sets storage.SettingsStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		progress:  progress,
		settings:  sets,
		logger:    logger,
		remoteFor: func(endpoint string) Remote { return NewClient(endpoint) },
		debounce:  debounceDelay,
		now:       time.Now,
	}
}

// PushNow exports, encrypts and pushes the full local state. It returns
// ErrNotConfigured when endpoint or passphrase is missing and ErrPushInFlight
// when another push is running.
func (m *Manager) PushNow(ctx context.Context, reason string) (*PushResponse, error) {
	s, endpoint, passphrase, err := m.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	keyID, err := synccodec.KeyID(passphrase)
	if err != nil {
		return nil, err
	}

	if !m.acquire() {
		return nil, ErrPushInFlight
	}
	defer m.release()

	recs, err := m.progress.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	env, err := synccodec.Encrypt(passphrase, synccodec.NewState(s, recs, now))
	if err != nil {
		return nil, err
	}

	updatedAt := now.UTC().Format(time.RFC3339)
	resp, err := m.remoteFor(endpoint).Push(ctx, PushRequest{
		KeyID:     keyID,
		UpdatedAt: updatedAt,
		Payload:   env,
		Reason:    reason,
	})
	if err != nil {
		m.recordError(ctx, err)
		return nil, err
	}

	m.recordSuccess(ctx, updatedAt)
	m.logger.Info("sync push complete", "reason", reason, "stored", resp.Stored)
	return resp, nil
}

// PullAndRestore fetches the remote payload, decrypts it, merges it with
// local state and persists the result. A failed pull leaves local state
// completely unmodified.
func (m *Manager) PullAndRestore(ctx context.Context) error {
	s, endpoint, passphrase, err := m.loadConfig(ctx)
	if err != nil {
		return err
	}

	keyID, err := synccodec.KeyID(passphrase)
	if err != nil {
		return err
	}

	resp, err := m.remoteFor(endpoint).Pull(ctx, keyID)
	if err != nil {
		m.recordError(ctx, err)
		return err
	}
	if !resp.Found {
		return ErrNothingToRestore
	}

	state, err := synccodec.Decrypt(passphrase, resp.Payload)
	if err != nil {
		// Wrong passphrase or corrupted payload. Local state stays untouched.
		m.recordError(ctx, err)
		return err
	}

	local, err := m.progress.GetAll(ctx)
	if err != nil {
		return err
	}

	merged := mergeProgress(local, state.Progress)
	if err := m.progress.PutMany(ctx, merged); err != nil {
		return err
	}
	if err := m.settings.SetMany(ctx, settings.MergeRemote(s, state.Settings)); err != nil {
		return err
	}

	m.recordSuccess(ctx, m.now().UTC().Format(time.RFC3339))
	m.logger.Info("sync pull complete", "records", len(merged))

	if m.OnRestore != nil {
		m.OnRestore()
	}
	return nil
}

// SchedulePush arms (or re-arms) the debounced auto push. It is a no-op when
// sync is unconfigured or auto sync is disabled. Calls made while a timer is
// pending collapse into a single push carrying the latest reason.
func (m *Manager) SchedulePush(reason string) {
	s, _, _, err := m.loadConfig(context.Background())
	if err != nil {
		return
	}
	if !s.Bool(settings.KeySyncAuto, true) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reason = reason
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.debounce, m.firePush)
}

// CancelScheduled drops any pending auto push.
func (m *Manager) CancelScheduled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) firePush() {
	m.mu.Lock()
	m.timer = nil
	reason := m.reason
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), autoPushTimeout)
	defer cancel()

	if _, err := m.PushNow(ctx, reason); err != nil {
		if errors.Is(err, ErrPushInFlight) {
			// A manual push is running; the next mutation reschedules.
			return
		}
		m.logger.Warn("auto push failed", "reason", reason, "error", err)
	}
}

func (m *Manager) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inflight {
		return false
	}
	m.inflight = true
	return true
}

func (m *Manager) release() {
	m.mu.Lock()
	m.inflight = false
	m.mu.Unlock()
}

// loadConfig reads settings and extracts the sync endpoint and passphrase.
func (m *Manager) loadConfig(ctx context.Context) (settings.Settings, string, string, error) {
	raw, err := m.settings.GetAll(ctx)
	if err != nil {
		return nil, "", "", err
	}
	s := settings.WithDefaults(raw)
	endpoint := SanitizeEndpoint(s.String(settings.KeySyncEndpoint, ""))
	passphrase := s.String(settings.KeySyncKey, "")
	if endpoint == "" || passphrase == "" {
		return nil, "", "", ErrNotConfigured
	}
	return s, endpoint, passphrase, nil
}

func (m *Manager) recordSuccess(ctx context.Context, updatedAt string) {
	err := m.settings.SetMany(ctx, map[string]any{
		settings.KeySyncLastAt:    updatedAt,
		settings.KeySyncLastError: nil,
	})
	if err != nil {
		m.logger.Warn("failed to record sync success", "error", err)
	}
}

func (m *Manager) recordError(ctx context.Context, cause error) {
	err := m.settings.Set(ctx, settings.KeySyncLastError, cause.Error())
	if err != nil {
		m.logger.Warn("failed to record sync error", "error", err)
	}
}
