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

package serverenv

import (
	"context"
	"os"
	"testing"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
	"github.com/copperhead-labs/attestation-server/internal/policy"
)

func TestServerEnv(t *testing.T) {
	ctx := context.Background()
	os.Setenv(portEnvVar, "4000")
	env := New(ctx)

	if env.Port != "4000" {
		t.Errorf("env.Port got %v want 4000", env.Port)
	}
}

func TestServerEnvOptions(t *testing.T) {
	ctx := context.Background()
	challenges := challenge.New()
	policyEngine := policy.New(challenges, false)

	env := New(ctx, WithChallenges(challenges), WithPolicy(policyEngine))

	if env.Challenges != challenges {
		t.Errorf("env.Challenges not installed by WithChallenges")
	}
	if env.Policy != policyEngine {
		t.Errorf("env.Policy not installed by WithPolicy")
	}
}

func TestResolveEnvOverride(t *testing.T) {
	ctx := context.Background()
	env := New(ctx)

	os.Setenv("MOOSE", "MUFFIN")
	if got := env.ResolveEnv("MOOSE"); got != "MUFFIN" {
		t.Errorf("env.ResolveEnv: want MUFFIN, got %v", got)
	}

	env.Set("MOOSE", "OVERRIDDEN")
	if got := env.ResolveEnv("MOOSE"); got != "OVERRIDDEN" {
		t.Errorf("env.ResolveEnv: want OVERRIDDEN, got %v", got)
	}
}
