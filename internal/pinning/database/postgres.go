package database

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	appdb "github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/copperhead-labs/attestation-server/internal/pinning"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"

	pgx "github.com/jackc/pgx/v4"
)

// Store backs pinning.Store with the Devices/Attestations tables over db.
type Store struct {
	db *appdb.DB
}

// New constructs a Store over an already-connected database.
func New(db *appdb.DB) *Store {
	return &Store{db: db}
}

var _ pinning.Store = (*Store)(nil)

func (s *Store) Get(ctx context.Context, fingerprint [32]byte) (*pinning.PairingRecord, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT pinned_certificate_0, pinned_certificate_1, pinned_certificate_2,
		       pinned_verified_boot_key, pinned_os_version, pinned_os_patch_level,
		       pinned_app_version, verified_time_first, verified_time_last
		FROM Devices WHERE fingerprint = $1`, fingerprint[:])

	var rec pinning.PairingRecord
	rec.PersistentKeyFingerprint = fingerprint
	var verifiedBootKey []byte
	var first, last int64
	err := row.Scan(&rec.PinnedCert0, &rec.PinnedCert1, &rec.PinnedCert2,
		&verifiedBootKey, &rec.PinnedOSVersion, &rec.PinnedOSPatchLevel,
		&rec.PinnedAppVersion, &first, &last)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, verifyerr.Newf(verifyerr.CodeStoreFailure, "get: %v", err)
	}
	if len(verifiedBootKey) != 32 {
		return nil, verifyerr.New(verifyerr.CodeStoreFailure, "get: corrupt pinned_verified_boot_key length")
	}
	copy(rec.PinnedVerifiedBootKey[:], verifiedBootKey)
	rec.VerifiedTimeFirst = time.UnixMilli(first)
	rec.VerifiedTimeLast = time.UnixMilli(last)
	return &rec, nil
}

func (s *Store) Create(ctx context.Context, rec *pinning.PairingRecord) error {
	lockID := hex.EncodeToString(rec.PersistentKeyFingerprint[:])
	unlock, err := s.db.Lock(ctx, lockID)
	if err != nil {
		return mapLockErr(err)
	}
	defer unlock()

	return s.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM Devices WHERE fingerprint = $1)`,
			rec.PersistentKeyFingerprint[:]).Scan(&exists); err != nil {
			return verifyerr.Newf(verifyerr.CodeStoreFailure, "create: existence check: %v", err)
		}
		if exists {
			return pinning.ErrAlreadyExists
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO Devices (
				fingerprint, pinned_certificate_0, pinned_certificate_1, pinned_certificate_2,
				pinned_verified_boot_key, pinned_os_version, pinned_os_patch_level, pinned_app_version,
				verified_time_first, verified_time_last
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.PersistentKeyFingerprint[:], rec.PinnedCert0, rec.PinnedCert1, rec.PinnedCert2,
			rec.PinnedVerifiedBootKey[:], rec.PinnedOSVersion, rec.PinnedOSPatchLevel, rec.PinnedAppVersion,
			rec.VerifiedTimeFirst.UnixMilli(), rec.VerifiedTimeLast.UnixMilli())
		if err != nil {
			return verifyerr.Newf(verifyerr.CodeStoreFailure, "create: insert: %v", err)
		}
		return nil
	})
}

func (s *Store) UpdateMonotonic(ctx context.Context, fingerprint [32]byte, osVersion, osPatchLevel int, appVersion int64, now time.Time) error {
	lockID := hex.EncodeToString(fingerprint[:])
	unlock, err := s.db.Lock(ctx, lockID)
	if err != nil {
		return mapLockErr(err)
	}
	defer unlock()

	return s.db.InTx(ctx, pgx.Serializable, func(tx pgx.Tx) error {
		cmdTag, err := tx.Exec(ctx, `
			UPDATE Devices SET
				pinned_os_version = $2,
				pinned_os_patch_level = $3,
				pinned_app_version = $4,
				verified_time_last = $5
			WHERE fingerprint = $1
			  AND pinned_os_version <= $2
			  AND pinned_os_patch_level <= $3
			  AND pinned_app_version <= $4`,
			fingerprint[:], osVersion, osPatchLevel, appVersion, now.UnixMilli())
		if err != nil {
			return verifyerr.Newf(verifyerr.CodeStoreFailure, "update_monotonic: %v", err)
		}
		if cmdTag.RowsAffected() == 0 {
			return fmt.Errorf("pinning: update_monotonic: no row updated; record missing or update was non-monotonic")
		}
		return nil
	})
}

func (s *Store) AppendAudit(ctx context.Context, fingerprint [32]byte, strong bool, teeEnforcedText, osEnforcedText string) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO Attestations (fingerprint, strong, tee_enforced, os_enforced)
		VALUES ($1, $2, $3, $4)`,
		fingerprint[:], strong, teeEnforcedText, osEnforcedText)
	if err != nil {
		return verifyerr.Newf(verifyerr.CodeStoreFailure, "append_audit: %v", err)
	}
	return nil
}

func mapLockErr(err error) error {
	if err == appdb.ErrAlreadyLocked {
		return verifyerr.New(verifyerr.CodeStoreBusy, "device row is locked by a concurrent verification")
	}
	return verifyerr.Newf(verifyerr.CodeStoreFailure, "lock: %v", err)
}
