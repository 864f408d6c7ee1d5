// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/copperhead-labs/attestation-server/internal/logging"
)

// ErrAlreadyLocked is returned if the lock is already held by another
// session.
var ErrAlreadyLocked = errors.New("lock already in use")

// UnlockFn can be deferred to release a lock.
type UnlockFn func() error

// lockKey folds an arbitrary lock ID (here, a persistent key fingerprint in
// hex) down to the int64 Postgres advisory locks key on.
func lockKey(lockID string) int64 {
	sum := sha256.Sum256([]byte(lockID))
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// Lock acquires a session-scoped Postgres advisory lock keyed by lockID,
// holding a dedicated connection out of the pool until UnlockFn is called.
// The lock is tried once: if another session holds it, Lock returns
// ErrAlreadyLocked at once without waiting. The pinning store takes it for
// each Create and UpdateMonotonic call, so two concurrent writes for the same
// device cannot interleave; it is not held across a caller's earlier Get.
func (db *DB) Lock(ctx context.Context, lockID string) (UnlockFn, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}

	key := lockKey(lockID)
	var acquired bool
	row := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key)
	if err := row.Scan(&acquired); err != nil {
		conn.Release()
		return nil, fmt.Errorf("pg_try_advisory_lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, ErrAlreadyLocked
	}

	logging.FromContext(ctx).Debugf("acquired lock %q (key %d)", lockID, key)

	return func() error {
		defer conn.Release()
		var released bool
		row := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key)
		if err := row.Scan(&released); err != nil {
			return fmt.Errorf("pg_advisory_unlock: %w", err)
		}
		if !released {
			return fmt.Errorf("lock %q was not held by this connection", lockID)
		}
		logging.FromContext(ctx).Debugf("released lock %q (key %d)", lockID, key)
		return nil
	}, nil
}
