// Package samples backs the sample-submission collaborator: a
// write-only store over the Samples table with no core consumer.
// It exists purely so the submit endpoint has somewhere to put bytes; the
// verification pipeline never reads from it.
package samples

import (
	"context"

	appdb "github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

// Store appends raw attestation samples to the Samples table.
type Store struct {
	db *appdb.DB
}

// New constructs a Store over an already-connected database.
func New(db *appdb.DB) *Store {
	return &Store{db: db}
}

// Submit records a raw wire-format sample for offline analysis. It performs
// no validation of the sample's contents; that is the submitter's problem,
// not the store's.
func (s *Store) Submit(ctx context.Context, sample []byte) error {
	_, err := s.db.Pool.Exec(ctx, `INSERT INTO Samples (sample) VALUES ($1)`, sample)
	if err != nil {
		return verifyerr.Newf(verifyerr.CodeStoreFailure, "samples: submit: %v", err)
	}
	return nil
}
