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

// Package serverenv defines common parameters for the server environment.
package serverenv

import (
	"context"
	"os"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
	appdb "github.com/copperhead-labs/attestation-server/internal/database"
	"github.com/copperhead-labs/attestation-server/internal/logging"
	"github.com/copperhead-labs/attestation-server/internal/orchestrator"
	"github.com/copperhead-labs/attestation-server/internal/pinning"
	"github.com/copperhead-labs/attestation-server/internal/policy"
	"github.com/copperhead-labs/attestation-server/internal/samples"
)

const (
	portEnvVar  = "PORT"
	defaultPort = "8080"
)

// ServerEnv carries the wired collaborators a transport handler needs:
// the database pool, the pinning/challenge/policy stack, the sample
// collaborator, and the composed orchestrator (see DESIGN.md: no secret
// manager, request signing, or blob storage concern exists here).
type ServerEnv struct {
	Port string

	DB           *appdb.DB
	Pinning      pinning.Store
	Challenges   *challenge.Store
	Policy       *policy.Engine
	Samples      *samples.Store
	Orchestrator *orchestrator.Orchestrator

	overrides map[string]string
}

// Option defines function types to modify the ServerEnv on creation.
type Option func(*ServerEnv) *ServerEnv

// New creates a new ServerEnv with the requested options.
func New(ctx context.Context, opts ...Option) *ServerEnv {
	env := &ServerEnv{Port: defaultPort}

	logger := logging.FromContext(ctx)

	if override := env.ResolveEnv(portEnvVar); override != "" {
		env.Port = override
	}
	logger.Infof("using port %v (override with $%v)", env.Port, portEnvVar)

	for _, f := range opts {
		env = f(env)
	}

	return env
}

// WithDB installs the database pool.
func WithDB(db *appdb.DB) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.DB = db
		return s
	}
}

// WithPinning installs the pinning store.
func WithPinning(store pinning.Store) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.Pinning = store
		return s
	}
}

// WithChallenges installs the challenge store.
func WithChallenges(store *challenge.Store) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.Challenges = store
		return s
	}
}

// WithPolicy installs the policy engine.
func WithPolicy(engine *policy.Engine) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.Policy = engine
		return s
	}
}

// WithSamples installs the sample-submission collaborator.
func WithSamples(store *samples.Store) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.Samples = store
		return s
	}
}

// WithOrchestrator installs the composed VerifyOrchestrator. Typically
// called last, after WithPinning/WithPolicy, since it composes them.
func WithOrchestrator(orc *orchestrator.Orchestrator) Option {
	return func(s *ServerEnv) *ServerEnv {
		s.Orchestrator = orc
		return s
	}
}

// Set overrides the usual environment-variable lookup for name so that
// value is always returned from ResolveEnv.
func (s *ServerEnv) Set(name, value string) {
	if s.overrides == nil {
		s.overrides = map[string]string{}
	}
	s.overrides[name] = value
}

// ResolveEnv resolves name from the override map first, falling back to the
// process environment. New consults it for $PORT; tests use Set to pin a
// value without mutating the process environment.
func (s *ServerEnv) ResolveEnv(name string) string {
	if val, ok := s.overrides[name]; ok {
		return val
	}
	return os.Getenv(name)
}
