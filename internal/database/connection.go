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

// Package database is a facade over the Postgres-backed pinning store.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/logging"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Config holds the database connection parameters, populated by
// sethvargo/go-envconfig from the process environment.
type Config struct {
	Name     string `env:"DB_NAME,required"`
	User     string `env:"DB_USER,required"`
	Host     string `env:"DB_HOST,default=localhost"`
	Port     string `env:"DB_PORT,default=5432"`
	SSLMode  string `env:"DB_SSLMODE,default=require"`
	Password string `env:"DB_PASSWORD"`

	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT,default=5s"`
	PoolMaxConns   int32         `env:"DB_POOL_MAX_CONNS,default=10"`
	PoolMinConns   int32         `env:"DB_POOL_MIN_CONNS,default=0"`
}

func (c *Config) connString() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=%s connect_timeout=%d pool_max_conns=%d pool_min_conns=%d",
		c.Host, c.Port, c.Name, c.User, c.Password, c.SSLMode,
		int(c.ConnectTimeout.Seconds()), c.PoolMaxConns, c.PoolMinConns)
}

// DB wraps a connection pool to the pinning store's backing Postgres
// instance.
type DB struct {
	Pool *pgxpool.Pool
}

// NewFromConfig opens a connection pool per cfg. This should be called once
// per server instance.
func NewFromConfig(ctx context.Context, cfg *Config) (*DB, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("creating database connection pool")

	pool, err := pgxpool.Connect(ctx, cfg.connString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close releases database connections.
func (db *DB) Close(ctx context.Context) {
	logging.FromContext(ctx).Infof("closing database connection pool")
	db.Pool.Close()
}
