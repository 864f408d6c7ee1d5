// Package database adapts internal/pinning.Store onto the Postgres pool in
// internal/database, using the same InTx/Lock conventions.
package database

import (
	"context"

	appdb "github.com/copperhead-labs/attestation-server/internal/database"
)

// Schema is the bootstrap DDL for the pinning store's two tables,
// plus the Samples table used by the sample-submission collaborator
// (internal/samples). One compiled-in schema is applied once at process
// boot rather than driving a migration pipeline with no second revision
// to migrate to yet.
const Schema = `
CREATE TABLE IF NOT EXISTS Devices (
	fingerprint BYTEA PRIMARY KEY,
	pinned_certificate_0 BYTEA NOT NULL,
	pinned_certificate_1 BYTEA NOT NULL,
	pinned_certificate_2 BYTEA NOT NULL,
	pinned_verified_boot_key BYTEA NOT NULL,
	pinned_os_version INTEGER NOT NULL,
	pinned_os_patch_level INTEGER NOT NULL,
	pinned_app_version BIGINT NOT NULL,
	verified_time_first BIGINT NOT NULL,
	verified_time_last BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS Attestations (
	id BIGSERIAL PRIMARY KEY,
	fingerprint BYTEA NOT NULL,
	strong BOOLEAN NOT NULL,
	tee_enforced TEXT NOT NULL,
	os_enforced TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS Samples (
	sample BYTEA NOT NULL
);
`

// Bootstrap applies Schema. It is idempotent (CREATE TABLE IF NOT EXISTS)
// and safe to call on every process start.
func Bootstrap(ctx context.Context, db *appdb.DB) error {
	_, err := db.Pool.Exec(ctx, Schema)
	return err
}
