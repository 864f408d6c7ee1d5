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

// Package transport adapts the VerifyOrchestrator and its collaborators onto
// HTTP: a thin layer of routing, body-size enforcement, and status-code
// mapping around the core, kept separate from the verification engine.
package transport

import (
	"context"
	"net/http"

	"github.com/copperhead-labs/attestation-server/internal/middleware"
	"github.com/copperhead-labs/attestation-server/internal/samples"
	"github.com/copperhead-labs/attestation-server/internal/serverenv"
	"github.com/copperhead-labs/attestation-server/pkg/server"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds every POST body accepted by this server.
const maxBodyBytes = 64 * 1024

// Server hosts the attestation verification, challenge issuance, sample
// submission, and health-check endpoints.
type Server struct {
	env *serverenv.ServerEnv
}

// NewServer constructs a Server over the wired collaborators in env.
func NewServer(env *serverenv.ServerEnv) (*Server, error) {
	if env.Orchestrator == nil {
		return nil, errMissing("Orchestrator")
	}
	if env.Challenges == nil {
		return nil, errMissing("Challenges")
	}
	return &Server{env: env}, nil
}

func errMissing(name string) error {
	return &missingCollaboratorError{name: name}
}

type missingCollaboratorError struct{ name string }

func (e *missingCollaboratorError) Error() string {
	return "transport: missing " + e.name + " in server environment"
}

// Routes builds the gorilla/mux router for the server, with the shared
// request-id/logging/recovery middleware chain applied to every route.
func (s *Server) Routes(ctx context.Context) *mux.Router {
	logger := loggerFrom(ctx)

	r := mux.NewRouter()
	r.Use(middleware.Recovery())
	r.Use(middleware.PopulateRequestID())
	r.Use(middleware.PopulateLogger(logger))

	r.Handle("/health", server.HandleHealthz(ctx)).Methods(http.MethodGet)
	r.Handle("/challenge", s.handleIssueChallenge()).Methods(http.MethodPost)
	r.Handle("/verify", s.handleVerify()).Methods(http.MethodPost)

	if s.env.Samples != nil {
		r.Handle("/samples", s.handleSubmitSample()).Methods(http.MethodPost)
	}

	return r
}

// handleIssueChallenge mints a fresh challenge and returns its raw 32 bytes.
// Challenge issuance is an external collaborator; this handler is the
// thinnest possible adapter over challenge.Store.Issue.
func (s *Server) handleIssueChallenge() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := s.env.Challenges.Issue()
		if err != nil {
			http.Error(w, "failed to issue challenge", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(c)
	})
}

// handleVerify is the core entry point: raw wire-format bytes in, a textual
// report or an error string out.
func (s *Server) handleVerify() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		raw, err := readAll(r)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		result, err := s.env.Orchestrator.VerifySerialized(r.Context(), raw)
		if err != nil {
			writeVerifyError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(result.TeeText))
		_, _ = w.Write([]byte("\n\n"))
		_, _ = w.Write([]byte(result.OsText))
	})
}

// handleSubmitSample accepts a raw wire-format sample for offline analysis.
// It is explicitly outside the verification core.
func (s *Server) handleSubmitSample() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

		raw, err := readAll(r)
		if err != nil {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}

		if err := s.env.Samples.Submit(r.Context(), raw); err != nil {
			http.Error(w, "failed to store sample", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})
}
