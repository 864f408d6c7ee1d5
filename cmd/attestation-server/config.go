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

package main

import (
	"fmt"

	"github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/hashicorp/go-multierror"
)

// Config is the top-level process configuration, populated by
// sethvargo/go-envconfig from the process environment.
type Config struct {
	Port string `env:"PORT,default=8080"`

	Database database.Config

	// AllowDebugSignature makes the app-signature policy check accept the
	// debug signature digest as well as the release digest, for local
	// development against debug-signed Auditor builds. Never set in a
	// production deployment.
	AllowDebugSignature bool `env:"ALLOW_DEBUG_SIGNATURE"`
}

// Validate checks cross-field constraints that envconfig's struct tags
// cannot express, accumulating every violation instead of stopping at the
// first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		result = multierror.Append(result,
			fmt.Errorf("env var `DB_POOL_MIN_CONNS` (%d) must not exceed `DB_POOL_MAX_CONNS` (%d)",
				c.Database.PoolMinConns, c.Database.PoolMaxConns))
	}
	if c.Database.ConnectTimeout <= 0 {
		result = multierror.Append(result,
			fmt.Errorf("env var `DB_CONNECT_TIMEOUT` must be > 0, got: %v", c.Database.ConnectTimeout))
	}

	return result.ErrorOrNil()
}
