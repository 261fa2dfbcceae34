package sync

import "errors"

var (
	// ErrNotConfigured is returned when the sync endpoint or passphrase is
	// missing. Sync operations are skipped, never fatal to a session.
	ErrNotConfigured = errors.New("sync not configured")
	// ErrNothingToRestore is returned when the remote has no record for the
	// derived keyId. Distinct from a decryption failure: it means no device
	// has pushed yet, not that the passphrase is wrong.
	ErrNothingToRestore = errors.New("nothing to restore")
	// ErrPushInFlight is returned when a push is requested while another is
	// still running. The attempt is skipped, not queued.
	ErrPushInFlight = errors.New("push already in flight")
	// ErrRemote wraps transport and non-success responses from the remote
	// store.
	ErrRemote = errors.New("remote store error")
)
