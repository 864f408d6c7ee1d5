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
	"testing"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port: "8080",
		Database: database.Config{
			Name:           "attestation",
			User:           "attestation",
			ConnectTimeout: 5 * time.Second,
			PoolMaxConns:   10,
			PoolMinConns:   0,
		},
	}
}

func TestConfigValidateOK(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidateRejectsInvertedPoolBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Database.PoolMinConns = 20
	cfg.Database.PoolMaxConns = 10

	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsNonPositiveConnectTimeout(t *testing.T) {
	cfg := validConfig()
	cfg.Database.ConnectTimeout = 0

	assert.Error(t, cfg.Validate())
}

func TestConfigValidateAccumulatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Database.PoolMinConns = 20
	cfg.Database.PoolMaxConns = 10
	cfg.Database.ConnectTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.NotEmpty(t, err.Error())
}
