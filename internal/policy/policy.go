// Package policy implements the PolicyEngine (C4): the ordered content
// checks run against a chain that has already passed C2, over the typed
// attestation view C3 extracts from the leaf certificate.
package policy

import (
	"encoding/hex"
	"strings"

	"github.com/copperhead-labs/attestation-server/internal/catalog"
	"github.com/copperhead-labs/attestation-server/internal/challenge"
	"github.com/copperhead-labs/attestation-server/internal/keyattestation"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

const (
	expectedPackageName = "co.copperhead.attestation"
	minAppVersion        = 7

	minOSVersion    = 80000
	minOSPatchLevel = 201801
)

// Verified is the output of a successful policy run.
type Verified struct {
	DeviceName       string
	VerifiedBootKeyHex string
	OSVersion        int
	OSPatchLevel     int
	AppVersion       int64
	IsStock          bool
}

// Engine runs the six ordered content checks.
type Engine struct {
	Challenges *challenge.Store

	// AllowDebugSignature permits the debug signature digest alongside the
	// release digest. It must only be true in non-production deployments.
	AllowDebugSignature bool
}

// New constructs an Engine bound to a ChallengeStore.
func New(challenges *challenge.Store, allowDebugSignature bool) *Engine {
	return &Engine{Challenges: challenges, AllowDebugSignature: allowDebugSignature}
}

// Run applies the six checks, in order, first failure wins.
func (e *Engine) Run(att *keyattestation.Attestation) (*Verified, error) {
	// 1. Challenge binding.
	if !e.Challenges.Consume(att.AttestationChallenge) {
		return nil, verifyerr.New(verifyerr.CodeChallengeNotPending, "attestation challenge is not pending")
	}

	// 2. App identity.
	if len(att.Packages) != 1 {
		return nil, verifyerr.Newf(verifyerr.CodeWrongApp, "expected exactly one package, got %d", len(att.Packages))
	}
	pkg := att.Packages[0]
	if pkg.PackageName != expectedPackageName {
		return nil, verifyerr.Newf(verifyerr.CodeWrongApp, "unexpected package name %q", pkg.PackageName)
	}
	if pkg.Version < minAppVersion {
		return nil, verifyerr.Newf(verifyerr.CodeAppTooOld, "app version %d < %d", pkg.Version, minAppVersion)
	}
	if len(att.SignatureDigests) != 1 {
		return nil, verifyerr.Newf(verifyerr.CodeWrongAppSignature, "expected exactly one signature digest, got %d", len(att.SignatureDigests))
	}
	digestHex := strings.ToUpper(hex.EncodeToString(att.SignatureDigests[0]))
	if digestHex != releaseSignatureDigestHex && !(e.AllowDebugSignature && digestHex == debugSignatureDigestHex) {
		return nil, verifyerr.New(verifyerr.CodeWrongAppSignature, "signature digest does not match a known release or debug build")
	}

	// 3. OS floor.
	if att.OSVersion < minOSVersion {
		return nil, verifyerr.Newf(verifyerr.CodeOsTooOld, "os_version %d < %d", att.OSVersion, minOSVersion)
	}
	if att.OSPatchLevel < minOSPatchLevel {
		return nil, verifyerr.Newf(verifyerr.CodePatchTooOld, "os_patch_level %d < %d", att.OSPatchLevel, minOSPatchLevel)
	}

	// 4. Root of trust.
	if att.RootOfTrust == nil {
		return nil, verifyerr.New(verifyerr.CodeUnknownVerifiedBootState, "root of trust is absent")
	}
	if !att.RootOfTrust.DeviceLocked {
		return nil, verifyerr.New(verifyerr.CodeDeviceNotLocked, "device is not locked")
	}

	var selfSigned bool
	switch att.RootOfTrust.VerifiedBootState {
	case keyattestation.VerifiedBootStateVerified:
		selfSigned = false
	case keyattestation.VerifiedBootStateSelfSigned:
		selfSigned = true
	default:
		return nil, verifyerr.Newf(verifyerr.CodeUnknownVerifiedBootState, "verified_boot_state = %v", att.RootOfTrust.VerifiedBootState)
	}

	verifiedBootKeyHex := strings.ToUpper(hex.EncodeToString(att.RootOfTrust.VerifiedBootKey))
	device, ok := catalog.Lookup(verifiedBootKeyHex, selfSigned)
	if !ok {
		return nil, verifyerr.Newf(verifyerr.CodeUnknownDevice, "unrecognized verified boot key %s", verifiedBootKeyHex)
	}

	// 5. Key provenance.
	if att.Origin != keyattestation.OriginGenerated {
		return nil, verifyerr.Newf(verifyerr.CodeKeyNotGenerated, "origin = %v, want Generated", att.Origin)
	}
	if att.AllApplications {
		return nil, verifyerr.New(verifyerr.CodeKeyNotAppBound, "key is not bound to a single application")
	}
	if device.RequiresRollbackResistance && !att.RollbackResistant {
		return nil, verifyerr.New(verifyerr.CodeKeyNotRollbackResistant, "device requires rollback-resistant keys")
	}

	// 6. Version floors from device descriptor.
	if att.AttestationVersion < device.MinAttestationVersion {
		return nil, verifyerr.Newf(verifyerr.CodeAttestationVersionTooLow, "attestation_version %d < %d", att.AttestationVersion, device.MinAttestationVersion)
	}
	if att.KeymasterVersion < device.MinKeymasterVersion {
		return nil, verifyerr.Newf(verifyerr.CodeKeymasterVersionTooLow, "keymaster_version %d < %d", att.KeymasterVersion, device.MinKeymasterVersion)
	}
	if att.AttestationSecurityLevel != keyattestation.SecurityLevelTEE || att.KeymasterSecurityLevel != keyattestation.SecurityLevelTEE {
		return nil, verifyerr.New(verifyerr.CodeSoftwareSecurityLevel, "both security levels must be TEE")
	}

	return &Verified{
		DeviceName:          device.DisplayName,
		VerifiedBootKeyHex:  verifiedBootKeyHex,
		OSVersion:           att.OSVersion,
		OSPatchLevel:        att.OSPatchLevel,
		AppVersion:          pkg.Version,
		IsStock:             !selfSigned,
	}, nil
}
