// Package synccodec serializes the local learning state for sync and
// encrypts it under a passphrase-derived key. The remote store only ever sees
// the envelope and a one-way hash of the passphrase, so the service operator
// cannot read learning data.
//
// The wire format is fixed: envelope {v, salt, iv, data} with base64 fields,
// state {schema, exportedAt, settings, progress}. Payloads are interchangeable
// with the original web client.
package synccodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"vocabtrainer/internal/settings"
	"vocabtrainer/internal/storage"
)

const (
	// SchemaVersion is the sync state schema version.
	SchemaVersion = 1
	// EnvelopeVersion is the encrypted envelope format version.
	EnvelopeVersion = 1
	// MinPassphraseLen is the shortest accepted passphrase. Enforced before
	// key derivation; the remote applies the same floor to the derived keyId
	// as a well-formedness check.
	MinPassphraseLen = 16

	kdfIterations = 120000
	keyLen        = 32
	saltLen       = 16
	nonceLen      = 12
)

var (
	// ErrPassphraseTooShort is returned before any key derivation when the
	// passphrase is below MinPassphraseLen.
	ErrPassphraseTooShort = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLen)
	// ErrDecrypt is returned when authentication fails: wrong passphrase or a
	// tampered payload. It is distinct from network and not-found errors so
	// the user is told to check the passphrase, not the connection.
	ErrDecrypt = errors.New("decryption failed")
	// ErrMalformedPayload is returned when an envelope or its decrypted
	// contents cannot be parsed.
	ErrMalformedPayload = errors.New("malformed sync payload")
)

// State is the unit of synchronization: synced settings plus every mastery
// record. Device-local settings must be filtered out before a State is built.
type State struct {
	Schema     int                      `json:"schema"`
	ExportedAt string                   `json:"exportedAt"`
	Settings   settings.Settings        `json:"settings"`
	Progress   []storage.ProgressRecord `json:"progress"`
}

// NewState assembles a sync state from local data, stripping the device-local
// settings partition.
func NewState(all settings.Settings, progress []storage.ProgressRecord, now time.Time) State {
	return State{
		Schema:     SchemaVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Settings:   all.SyncedOnly(),
		Progress:   progress,
	}
}

// Envelope is the encrypted wire representation of a State. All byte fields
// are standard base64.
type Envelope struct {
	V    int    `json:"v"`
	Salt string `json:"salt"`
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// KeyID derives the remote lookup key from the passphrase: hex SHA-256.
// The passphrase itself never leaves the device.
func KeyID(passphrase string) (string, error) {
	if len(passphrase) < MinPassphraseLen {
		return "", ErrPassphraseTooShort
	}
	sum := sha256.Sum256([]byte(passphrase))
	return hex.EncodeToString(sum[:]), nil
}

// Encrypt serializes and encrypts a State under the passphrase. Each call
// draws a fresh salt and nonce.
func Encrypt(passphrase string, state State) (*Envelope, error) {
	if len(passphrase) < MinPassphraseLen {
		return nil, ErrPassphraseTooShort
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync state: %w", err)
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	nonce := make([]byte, nonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)

	return &Envelope{
		V:    EnvelopeVersion,
		Salt: base64.StdEncoding.EncodeToString(salt),
		IV:   base64.StdEncoding.EncodeToString(nonce),
		Data: base64.StdEncoding.EncodeToString(ciphertext),
	}, nil
}

// Decrypt authenticates and decodes an envelope. Authentication failure is
// ErrDecrypt; structural problems are ErrMalformedPayload. It never returns a
// partially decoded state.
func Decrypt(passphrase string, env *Envelope) (*State, error) {
	if len(passphrase) < MinPassphraseLen {
		return nil, ErrPassphraseTooShort
	}
	if env == nil || env.V != EnvelopeVersion {
		return nil, fmt.Errorf("%w: unsupported envelope version", ErrMalformedPayload)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrMalformedPayload)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil || len(nonce) != nonceLen {
		return nil, fmt.Errorf("%w: bad nonce encoding", ErrMalformedPayload)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext encoding", ErrMalformedPayload)
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}

	var state State
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &state, nil
}

func newAEAD(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, kdfIterations, keyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}
	return aead, nil
}
