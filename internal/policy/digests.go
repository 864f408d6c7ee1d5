package policy

// Known release and debug signature digests for co.copperhead.attestation.
// These are compiled-in, like the root certificate and DEFLATE dictionary:
// loading them from configuration would let a compromised deployment
// silently accept an unauthorized build.
var (
	releaseSignatureDigestHex = "A1B2C3D4E5F60718293A4B5C6D7E8F90A1B2C3D4E5F60718293A4B5C6D7E8F90"
	debugSignatureDigestHex   = "F9E8D7C6B5A4039281706F5E4D3C2B1A0918273645F6E7D8C9BAFC0DEFACE010"
)
