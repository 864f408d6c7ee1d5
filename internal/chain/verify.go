// Package chain implements the certificate chain verifier (C2): it walks a
// leaf-to-root certificate chain, checking validity windows and signature
// links, and requires the final certificate to be byte-identical to the
// compiled-in root.
package chain

import (
	"bytes"
	"crypto/x509"
	"time"

	"github.com/copperhead-labs/attestation-server/internal/verifyerr"
)

// ExpectedChainLength is the only chain length protocol version 1 accepts.
const ExpectedChainLength = 4

// Verify walks chain (leaf first, root last) and checks:
//   - the chain has exactly ExpectedChainLength links,
//   - every non-root certificate is within its validity window at now,
//   - cert[i] is signed by cert[i+1] for i in [0, n-2],
//   - the final certificate's DER encoding is byte-identical to the
//     compiled-in Google hardware-attestation root.
//
// It returns the parsed chain (leaf first) on success.
func Verify(rawChain [][]byte, now time.Time) ([]*x509.Certificate, error) {
	if len(rawChain) != ExpectedChainLength {
		return nil, verifyerr.Newf(verifyerr.CodeUnsupportedChainLen,
			"chain length %d, want %d", len(rawChain), ExpectedChainLength)
	}

	certs := make([]*x509.Certificate, len(rawChain))
	for i, der := range rawChain {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, verifyerr.AtIndex(verifyerr.CodeInvalidSignatureChain, i, "malformed certificate: "+err.Error())
		}
		certs[i] = cert
	}

	last := len(certs) - 1
	for i := 0; i < last; i++ {
		if now.Before(certs[i].NotBefore) || now.After(certs[i].NotAfter) {
			return nil, verifyerr.AtIndex(verifyerr.CodeCertExpired, i, "certificate not valid at verification time")
		}
		if err := certs[i].CheckSignatureFrom(certs[i+1]); err != nil {
			return nil, verifyerr.AtIndex(verifyerr.CodeInvalidSignatureChain, i, "signature check against issuer failed: "+err.Error())
		}
	}

	root := certs[last]
	if err := root.CheckSignatureFrom(root); err != nil {
		return nil, verifyerr.AtIndex(verifyerr.CodeInvalidSignatureChain, last, "root is not self-signed: "+err.Error())
	}
	if !bytes.Equal(root.Raw, GoogleRootDER) {
		return nil, verifyerr.AtIndex(verifyerr.CodeRootMismatch, last, "chain root does not match compiled-in trust anchor")
	}

	return certs, nil
}
