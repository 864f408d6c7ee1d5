// Package orchestrator implements the VerifyOrchestrator (C7): the single
// entry point that composes the codec, chain verifier, attestation
// extractor, policy engine, and pinning store into the pair and re-verify
// flows.
package orchestrator

import (
	"bytes"
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/chain"
	"github.com/copperhead-labs/attestation-server/internal/codec"
	"github.com/copperhead-labs/attestation-server/internal/keyattestation"
	"github.com/copperhead-labs/attestation-server/internal/pinning"
	"github.com/copperhead-labs/attestation-server/internal/policy"
	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

// VerificationResult is what verify_serialized returns on success.
type VerificationResult struct {
	Strong  bool
	TeeText string
	OsText  string
}

// Orchestrator composes C1–C6 per request.
type Orchestrator struct {
	Pinning pinning.Store
	Policy  *policy.Engine

	// Now is overridable for tests; production callers leave it nil and get
	// time.Now.
	Now func() time.Time
}

// New constructs an Orchestrator.
func New(store pinning.Store, policyEngine *policy.Engine) *Orchestrator {
	return &Orchestrator{Pinning: store, Policy: policyEngine, Now: time.Now}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// VerifySerialized runs the full pipeline over a wire-encoded attestation
// message.
func (o *Orchestrator) VerifySerialized(ctx context.Context, raw []byte) (*VerificationResult, error) {
	// 1. Decode.
	msg, err := codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if len(msg.Chain) != chain.ExpectedChainLength {
		return nil, verifyerr.Newf(verifyerr.CodeUnsupportedChainLen, "chain length %d, want %d", len(msg.Chain), chain.ExpectedChainLength)
	}

	// 2. Replace the final chain slot with the pinned Google root so C2's
	// DER-equality check is exact regardless of what the client sent.
	msg.Chain[len(msg.Chain)-1] = chain.GoogleRootDER

	now := o.now()

	// 3. Look up the pairing record.
	record, err := o.Pinning.Get(ctx, msg.PersistentFingerprint)
	if err != nil {
		return nil, err
	}

	// 4. Leaf fingerprint.
	leafFpr := sha256.Sum256(msg.Chain[0])

	// 5. strong := record exists.
	strong := record != nil

	var signerCert *x509.Certificate
	if strong {
		// 6. Existing pairing: cert_1/cert_2 must match exactly, cert_0 must
		// still hash to the claimed fingerprint, and the signature must
		// verify against the pinned cert_0's public key.
		if !bytes.Equal(msg.Chain[1], record.PinnedCert1) || !bytes.Equal(msg.Chain[2], record.PinnedCert2) {
			return nil, verifyerr.New(verifyerr.CodeChainMismatch, "chain certificates 1/2 do not match the pinned record")
		}
		pinnedCert0Fpr := sha256.Sum256(record.PinnedCert0)
		if pinnedCert0Fpr != msg.PersistentFingerprint {
			return nil, verifyerr.New(verifyerr.CodeCorruptPairingData, "pinned cert_0 does not hash to the persistent fingerprint")
		}
		signerCert, err = x509.ParseCertificate(record.PinnedCert0)
		if err != nil {
			return nil, verifyerr.New(verifyerr.CodeCorruptPairingData, "pinned cert_0 does not parse: "+err.Error())
		}
	} else {
		// 7. Fresh pairing: the leaf itself must match the claimed
		// fingerprint, and the leaf's key verifies the signature.
		if leafFpr != msg.PersistentFingerprint {
			return nil, verifyerr.New(verifyerr.CodeChainMismatch, "leaf fingerprint does not match the claimed persistent fingerprint")
		}
		signerCert, err = x509.ParseCertificate(msg.Chain[0])
		if err != nil {
			return nil, verifyerr.AtIndex(verifyerr.CodeInvalidSignatureChain, 0, "leaf certificate does not parse: "+err.Error())
		}
	}

	if err := verifySignature(signerCert.PublicKey, msg.SignedRange, msg.Signature); err != nil {
		return nil, verifyerr.AtIndex(verifyerr.CodeInvalidSignatureChain, 0, "signature verification failed: "+err.Error())
	}

	// 8. Run C2 then C3+C4.
	certs, err := chain.Verify(msg.Chain, now)
	if err != nil {
		return nil, err
	}
	att, err := keyattestation.Extract(certs[0])
	if err != nil {
		return nil, fmt.Errorf("orchestrator: extract attestation: %w", err)
	}
	verified, err := o.Policy.Run(att)
	if err != nil {
		return nil, err
	}

	// 9/10. Enforce continuity against the existing record, or create a new
	// one.
	if strong {
		pinnedBootKeyHex := hex.EncodeToString(record.PinnedVerifiedBootKey[:])
		if !equalFoldHex(verified.VerifiedBootKeyHex, pinnedBootKeyHex) {
			return nil, verifyerr.New(verifyerr.CodeBootKeyChanged, "verified boot key differs from the pinned record")
		}
		if verified.OSVersion < record.PinnedOSVersion {
			return nil, verifyerr.Newf(verifyerr.CodeOsVersionDowngrade, "os_version %d < pinned %d", verified.OSVersion, record.PinnedOSVersion)
		}
		if verified.OSPatchLevel < record.PinnedOSPatchLevel {
			return nil, verifyerr.Newf(verifyerr.CodeOsPatchDowngrade, "os_patch_level %d < pinned %d", verified.OSPatchLevel, record.PinnedOSPatchLevel)
		}
		if verified.AppVersion < record.PinnedAppVersion {
			return nil, verifyerr.Newf(verifyerr.CodeAppVersionDowngrade, "app_version %d < pinned %d", verified.AppVersion, record.PinnedAppVersion)
		}
		if err := o.Pinning.UpdateMonotonic(ctx, msg.PersistentFingerprint, verified.OSVersion, verified.OSPatchLevel, verified.AppVersion, now); err != nil {
			return nil, err
		}
	} else {
		var verifiedBootKey [32]byte
		if att.RootOfTrust == nil || len(att.RootOfTrust.VerifiedBootKey) != 32 {
			return nil, verifyerr.New(verifyerr.CodeCorruptPairingData, "verified boot key is not 32 bytes")
		}
		copy(verifiedBootKey[:], att.RootOfTrust.VerifiedBootKey)

		newRecord := &pinning.PairingRecord{
			PersistentKeyFingerprint: msg.PersistentFingerprint,
			PinnedCert0:              msg.Chain[0],
			PinnedCert1:              msg.Chain[1],
			PinnedCert2:              msg.Chain[2],
			PinnedVerifiedBootKey:    verifiedBootKey,
			PinnedOSVersion:          verified.OSVersion,
			PinnedOSPatchLevel:       verified.OSPatchLevel,
			PinnedAppVersion:         verified.AppVersion,
			VerifiedTimeFirst:        now,
			VerifiedTimeLast:         now,
		}
		if err := o.Pinning.Create(ctx, newRecord); err != nil {
			return nil, err
		}
	}

	// 11. Render the textual report.
	rep, err := renderReport(verified.OSVersion, verified.OSPatchLevel, verified.AppVersion, msg.OSEnforcedFlags, now)
	if err != nil {
		return nil, err
	}

	// 12. Append the audit log entry.
	if err := o.Pinning.AppendAudit(ctx, msg.PersistentFingerprint, strong, rep.TeeText, rep.OsText); err != nil {
		return nil, err
	}

	// 13. Return the result.
	return &VerificationResult{Strong: strong, TeeText: rep.TeeText, OsText: rep.OsText}, nil
}

func equalFoldHex(a, b string) bool {
	return len(a) == len(b) && bytes.EqualFold([]byte(a), []byte(b))
}

// verifySignature checks sig over signedRange with pub, using SHA-256 as
// the digest algorithm (the protocol's attestation keys sign with either
// ECDSA or RSA over a SHA-256 hash of the signed range).
func verifySignature(pub interface{}, signedRange, sig []byte) error {
	digest := sha256.Sum256(signedRange)

	switch key := pub.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest[:], sig) {
			return fmt.Errorf("ecdsa signature did not verify")
		}
		return nil
	case *rsa.PublicKey:
		if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
			return fmt.Errorf("rsa signature did not verify: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported public key type %T", pub)
	}
}
