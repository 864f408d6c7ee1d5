// Package pinning implements the PairingRecord data model and the
// PinningStore interface (C6): a durable, per-fingerprint-serialized store
// enforcing per-device monotonicity invariants.
package pinning

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyExists is returned by Create when a record already exists for
// the given fingerprint.
var ErrAlreadyExists = errors.New("pinning: record already exists")

// PairingRecord is the durable per-device pinning record, keyed
// externally by PersistentKeyFingerprint.
type PairingRecord struct {
	PersistentKeyFingerprint [32]byte

	PinnedCert0 []byte
	PinnedCert1 []byte
	PinnedCert2 []byte

	PinnedVerifiedBootKey [32]byte

	PinnedOSVersion    int
	PinnedOSPatchLevel int
	PinnedAppVersion   int64

	VerifiedTimeFirst time.Time
	VerifiedTimeLast  time.Time
}

// Store is the PinningStore contract. Implementations must serialize all
// operations for a given fingerprint: a fingerprint-keyed lock or
// an equivalent transaction-level guarantee.
type Store interface {
	// Get returns the record for fingerprint, or nil if none exists.
	Get(ctx context.Context, fingerprint [32]byte) (*PairingRecord, error)

	// Create inserts a new record. It returns ErrAlreadyExists if one is
	// already present for the fingerprint.
	Create(ctx context.Context, rec *PairingRecord) error

	// UpdateMonotonic advances osVersion/osPatchLevel/appVersion and
	// verifiedTimeLast for fingerprint. The caller has already checked
	// monotonicity; the store enforces it again as a safety net and
	// returns an error if the caller's check was somehow wrong.
	UpdateMonotonic(ctx context.Context, fingerprint [32]byte, osVersion, osPatchLevel int, appVersion int64, now time.Time) error

	// AppendAudit appends a row to the audit log.
	AppendAudit(ctx context.Context, fingerprint [32]byte, strong bool, teeEnforcedText, osEnforcedText string) error
}
