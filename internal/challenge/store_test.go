package challenge_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
)

func TestIssueThenConsumeOnce(t *testing.T) {
	s := challenge.New()
	c, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if len(c) != 32 {
		t.Fatalf("challenge length = %d, want 32", len(c))
	}
	if !s.Consume(c) {
		t.Fatalf("first Consume should succeed")
	}
	if s.Consume(c) {
		t.Fatalf("second Consume of the same challenge should fail")
	}
}

func TestConsumeUnknownChallengeFails(t *testing.T) {
	s := challenge.New()
	if s.Consume(make([]byte, 32)) {
		t.Fatalf("Consume of an unknown challenge should fail")
	}
}

// TestConcurrentConsumeAtMostOnce exercises testable property #3: any two
// concurrent verifications presenting the same challenge, exactly one
// succeeds.
func TestConcurrentConsumeAtMostOnce(t *testing.T) {
	s := challenge.New()
	c, err := s.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	const workers = 64
	var successes int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if s.Consume(c) {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
}
