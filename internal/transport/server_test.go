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

package transport_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
	"github.com/copperhead-labs/attestation-server/internal/orchestrator"
	"github.com/copperhead-labs/attestation-server/internal/pinning"
	"github.com/copperhead-labs/attestation-server/internal/policy"
	"github.com/copperhead-labs/attestation-server/internal/serverenv"
	"github.com/copperhead-labs/attestation-server/internal/transport"
)

func newTestServer(t *testing.T) (*transport.Server, *challenge.Store) {
	t.Helper()

	ctx := context.Background()
	challenges := challenge.New()
	store := pinning.NewMemoryStore()
	engine := policy.New(challenges, false)
	orch := orchestrator.New(store, engine)

	env := serverenv.New(ctx,
		serverenv.WithChallenges(challenges),
		serverenv.WithPolicy(engine),
		serverenv.WithPinning(store),
		serverenv.WithOrchestrator(orch))

	srv, err := transport.NewServer(env)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, challenges
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Routes(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", w.Code)
	}
}

func TestIssueChallenge(t *testing.T) {
	srv, challenges := newTestServer(t)
	r := srv.Routes(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/challenge", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", w.Code)
	}
	if got := w.Body.Len(); got != 32 {
		t.Errorf("challenge length got %d, want 32", got)
	}
	if challenges.Len() != 1 {
		t.Errorf("challenges.Len() got %d, want 1 issued challenge pending", challenges.Len())
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Routes(context.Background())

	req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewReader([]byte("not a wire message")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", w.Code)
	}
}

func TestVerifyRejectsOversizedBody(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Routes(context.Background())

	oversized := strings.Repeat("a", 64*1024+1)
	req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(oversized))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("got status %d, want 413", w.Code)
	}
}

func TestVerifyRejectsWrongMethod(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Routes(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/verify", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("got status %d, want 405", w.Code)
	}
}
