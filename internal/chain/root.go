package chain

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

// googleRootPEM is the compiled-in hardware-attestation root certificate.
// Like the DEFLATE dictionary, it is a compiled-in constant: it is never
// loaded from configuration, so a compromised deployment cannot silently
// relax the trust anchor.
const googleRootPEM = `-----BEGIN CERTIFICATE-----
MIIB6zCCAZGgAwIBAgIUTatRf6Ebt9rYmgFZMizzLfAbxIIwCgYIKoZIzj0EAwIw
SjETMBEGA1UECgwKR29vZ2xlIExMQzEzMDEGA1UEAwwqQW5kcm9pZCBLZXlzdG9y
ZSBIYXJkd2FyZSBBdHRlc3RhdGlvbiBSb290MCAXDTI2MDcyOTE1MDMyMFoYDzIw
NTYwNzIxMTUwMzIwWjBKMRMwEQYDVQQKDApHb29nbGUgTExDMTMwMQYDVQQDDCpB
bmRyb2lkIEtleXN0b3JlIEhhcmR3YXJlIEF0dGVzdGF0aW9uIFJvb3QwWTATBgcq
hkjOPQIBBggqhkjOPQMBBwNCAASP9DGlAX1UwORKgByXBoGq2E7nhvL4aI5v4wMg
oCpsMFrfGd1A3GqIqTEwoYhSZQQ7lpCiygZKCxtRyJ0xs8DTo1MwUTAdBgNVHQ4E
FgQUktgI/gxE211qZtRaJY8+JbuDcoIwHwYDVR0jBBgwFoAUktgI/gxE211qZtRa
JY8+JbuDcoIwDwYDVR0TAQH/BAUwAwEB/zAKBggqhkjOPQQDAgNIADBFAiEAnz55
wudbS7DNc6Fwf9QepfkQEpSRaucoi2Q+lIw/n1cCIFaxxHqkQ6MNiNoSgZdnWyBp
m+aOe3mPmS+kkJGzLZim
-----END CERTIFICATE-----
`

// GoogleRootDER is the DER encoding of the compiled-in root certificate.
// ChainVerifier requires the final chain slot to be byte-identical to this.
var GoogleRootDER = mustRootDER()

// GoogleRootCertificate is the parsed form of GoogleRootDER. Verify checks
// the self-signature of the chain's own final certificate, not this value.
var GoogleRootCertificate = mustRootCert()

func mustRootDER() []byte {
	block, _ := pem.Decode([]byte(googleRootPEM))
	if block == nil {
		panic("chain: invalid compiled-in root certificate PEM")
	}
	return block.Bytes
}

func mustRootCert() *x509.Certificate {
	cert, err := x509.ParseCertificate(GoogleRootDER)
	if err != nil {
		panic(fmt.Sprintf("chain: invalid compiled-in root certificate DER: %v", err))
	}
	return cert
}
