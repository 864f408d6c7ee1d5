package policy_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/copperhead-labs/attestation-server/internal/challenge"
	"github.com/copperhead-labs/attestation-server/internal/keyattestation"
	"github.com/copperhead-labs/attestation-server/internal/policy"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

const stockVerifiedBootKeyHex = "1F4C8ED16E2C1E5F8C9A6D3B0F7E2A4D5B6C8E9A1F3D5B7C9E1A3F5D7B9C1E3F"

const releaseDigestHex = "A1B2C3D4E5F60718293A4B5C6D7E8F90A1B2C3D4E5F60718293A4B5C6D7E8F90"

func mustHexDecode(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("hex decode %q: %v", s, err)
	}
	return b
}

func wellFormedAttestation(t *testing.T, chal []byte) *keyattestation.Attestation {
	t.Helper()
	return &keyattestation.Attestation{
		AttestationChallenge:     chal,
		AttestationVersion:       2,
		AttestationSecurityLevel: keyattestation.SecurityLevelTEE,
		KeymasterVersion:         3,
		KeymasterSecurityLevel:   keyattestation.SecurityLevelTEE,
		Packages: []keyattestation.PackageInfo{
			{PackageName: "co.copperhead.attestation", Version: 7},
		},
		SignatureDigests: [][]byte{mustHexDecode(t, releaseDigestHex)},
		OSVersion:        80000,
		OSPatchLevel:     201801,
		Origin:           keyattestation.OriginGenerated,
		RootOfTrust: &keyattestation.RootOfTrust{
			VerifiedBootKey:   mustHexDecode(t, stockVerifiedBootKeyHex),
			DeviceLocked:      true,
			VerifiedBootState: keyattestation.VerifiedBootStateVerified,
		},
	}
}

func assertCode(t *testing.T, err error, want verifyerr.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	ve, ok := verifyerr.As(err)
	if !ok {
		t.Fatalf("expected *verifyerr.Error, got %T: %v", err, err)
	}
	if ve.Code != want {
		t.Errorf("code = %s, want %s", ve.Code, want)
	}
}

func TestRunAcceptsWellFormedAttestation(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	v, err := engine.Run(wellFormedAttestation(t, chal))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.DeviceName != "Pixel 2" {
		t.Errorf("DeviceName = %q, want Pixel 2", v.DeviceName)
	}
	if !v.IsStock {
		t.Errorf("IsStock = false, want true")
	}
	if v.VerifiedBootKeyHex != strings.ToUpper(stockVerifiedBootKeyHex) {
		t.Errorf("VerifiedBootKeyHex mismatch")
	}
}

func TestRunRejectsUnknownChallenge(t *testing.T) {
	store := challenge.New()
	engine := policy.New(store, false)

	_, err := engine.Run(wellFormedAttestation(t, make([]byte, 32)))
	assertCode(t, err, verifyerr.CodeChallengeNotPending)
}

func TestRunRejectsReplayedChallenge(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	if _, err := engine.Run(wellFormedAttestation(t, chal)); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	_, err = engine.Run(wellFormedAttestation(t, chal))
	assertCode(t, err, verifyerr.CodeChallengeNotPending)
}

func TestRunRejectsAppTooOld(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	att := wellFormedAttestation(t, chal)
	att.Packages[0].Version = 6

	_, err = engine.Run(att)
	assertCode(t, err, verifyerr.CodeAppTooOld)
}

func TestRunRejectsUnlockedDevice(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	att := wellFormedAttestation(t, chal)
	att.RootOfTrust.DeviceLocked = false

	_, err = engine.Run(att)
	assertCode(t, err, verifyerr.CodeDeviceNotLocked)
}

func TestRunRejectsUnknownDevice(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	att := wellFormedAttestation(t, chal)
	att.RootOfTrust.VerifiedBootKey = mustHexDecode(t, "00000000000000000000000000000000000000000000000000000000000000")

	_, err = engine.Run(att)
	assertCode(t, err, verifyerr.CodeUnknownDevice)
}

func TestRunRejectsOsTooOld(t *testing.T) {
	store := challenge.New()
	chal, err := store.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	engine := policy.New(store, false)

	att := wellFormedAttestation(t, chal)
	att.OSVersion = 70000

	_, err = engine.Run(att)
	assertCode(t, err, verifyerr.CodeOsTooOld)
}
