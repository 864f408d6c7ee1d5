// Package verifyerr defines the error taxonomy produced by the attestation
// verification engine. Every failure the engine can return is represented as
// a *Error carrying a stable Code, so that callers (and tests) can branch on
// the failure kind without parsing strings.
package verifyerr

import (
	"errors"
	"fmt"
)

// Code identifies a distinct, stable failure mode of the verification
// pipeline. Codes are never reused for a different meaning.
type Code string

const (
	// Decode errors (C1).
	CodeUnsupportedVersion Code = "UnsupportedVersion"
	CodeChainTooLarge      Code = "ChainTooLarge"
	CodeTruncatedMessage   Code = "TruncatedMessage"
	CodeInvalidFlags       Code = "InvalidFlags"

	// Chain errors (C2).
	CodeRootMismatch          Code = "RootMismatch"
	CodeInvalidSignatureChain Code = "InvalidSignatureInChain"
	CodeCertExpired           Code = "CertExpired"
	CodeUnsupportedChainLen   Code = "UnsupportedChainLength"

	// Policy errors (C4).
	CodeChallengeNotPending      Code = "ChallengeNotPending"
	CodeWrongApp                 Code = "WrongApp"
	CodeAppTooOld                Code = "AppTooOld"
	CodeWrongAppSignature        Code = "WrongAppSignature"
	CodeOsTooOld                 Code = "OsTooOld"
	CodePatchTooOld              Code = "PatchTooOld"
	CodeDeviceNotLocked           Code = "DeviceNotLocked"
	CodeUnknownVerifiedBootState Code = "UnknownVerifiedBootState"
	CodeUnknownDevice            Code = "UnknownDevice"
	CodeKeyNotGenerated          Code = "KeyNotGenerated"
	CodeKeyNotAppBound           Code = "KeyNotAppBound"
	CodeKeyNotRollbackResistant  Code = "KeyNotRollbackResistant"
	CodeAttestationVersionTooLow Code = "AttestationVersionTooLow"
	CodeKeymasterVersionTooLow   Code = "KeymasterVersionTooLow"
	CodeSoftwareSecurityLevel    Code = "SoftwareSecurityLevel"

	// Pairing errors (C6/C7).
	CodeChainMismatch      Code = "ChainMismatch"
	CodeCorruptPairingData Code = "CorruptPairingData"
	CodeBootKeyChanged     Code = "BootKeyChanged"
	CodeOsVersionDowngrade Code = "OsVersionDowngrade"
	CodeOsPatchDowngrade   Code = "OsPatchDowngrade"
	CodeAppVersionDowngrade Code = "AppVersionDowngrade"
	CodePairingMissing     Code = "PairingMissing"

	// Resource errors.
	CodeStoreBusy    Code = "StoreBusy"
	CodeStoreFailure Code = "StoreFailure"
)

// Error is a tagged, fatal-to-the-request verification failure. It never
// wraps internal state beyond the fixed message supplied at the call site;
// each layer attaches context with fmt.Errorf("...: %w", err) on the way up,
// and the HTTP transport unwraps back to the *Error to pick a status code.
type Error struct {
	Code Code
	Msg  string

	// Index is set for chain-position-specific errors (C2); -1 otherwise.
	Index int
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (index %d)", e.Code, e.Msg, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// New builds an *Error with no chain index.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg, Index: -1}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Index: -1}
}

// AtIndex builds a chain-position-specific *Error (used by the chain verifier).
func AtIndex(code Code, index int, msg string) *Error {
	return &Error{Code: code, Msg: msg, Index: index}
}

// As reports whether err is (or wraps) a *Error, returning it if so.
func As(err error) (*Error, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
