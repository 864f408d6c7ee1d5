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

// Command attestation-server runs the HTTP server that fronts the
// attestation verification engine.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
	"github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/copperhead-labs/attestation-server/internal/logging"
	"github.com/copperhead-labs/attestation-server/internal/orchestrator"
	pinningdb "github.com/copperhead-labs/attestation-server/internal/pinning/database"
	"github.com/copperhead-labs/attestation-server/internal/policy"
	"github.com/copperhead-labs/attestation-server/internal/samples"
	"github.com/copperhead-labs/attestation-server/internal/serverenv"
	"github.com/copperhead-labs/attestation-server/internal/transport"

	"github.com/sethvargo/go-envconfig"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewLogger(os.Getenv("LOG_DEBUG") == "true")
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx); err != nil {
		logger.Fatal(err)
	}
}

func realMain(ctx context.Context) error {
	logger := logging.FromContext(ctx)

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return fmt.Errorf("envconfig.Process: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	db, err := database.NewFromConfig(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("database.NewFromConfig: %w", err)
	}
	defer db.Close(ctx)

	if err := pinningdb.Bootstrap(ctx, db); err != nil {
		return fmt.Errorf("pinningdb.Bootstrap: %w", err)
	}

	pinningStore := pinningdb.New(db)
	challenges := challenge.New()
	policyEngine := policy.New(challenges, cfg.AllowDebugSignature)
	orch := orchestrator.New(pinningStore, policyEngine)
	sampleStore := samples.New(db)

	env := serverenv.New(ctx,
		serverenv.WithDB(db),
		serverenv.WithPinning(pinningStore),
		serverenv.WithChallenges(challenges),
		serverenv.WithPolicy(policyEngine),
		serverenv.WithSamples(sampleStore),
		serverenv.WithOrchestrator(orch))

	srv, err := transport.NewServer(env)
	if err != nil {
		return fmt.Errorf("transport.NewServer: %w", err)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", env.Port),
		Handler: srv.Routes(ctx),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Infof("shutting down")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return fmt.Errorf("http serving error: %w", err)
	}
}
