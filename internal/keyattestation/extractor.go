package keyattestation

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// ExtensionOID is the standard Android key-attestation extension OID.
var ExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 1, 17}

// asn1KeyDescription mirrors the KeyDescription SEQUENCE Android's Keymaster
// HAL embeds in the attestation extension.
type asn1KeyDescription struct {
	AttestationVersion       int
	AttestationSecurityLevel asn1.Enumerated
	KeymasterVersion         int
	KeymasterSecurityLevel   asn1.Enumerated
	AttestationChallenge     []byte
	UniqueID                 []byte
	SoftwareEnforced         asn1AuthorizationList
	TeeEnforced              asn1AuthorizationList
}

// asn1AuthorizationList mirrors the subset of the AuthorizationList SEQUENCE
// this server's policy checks depend on. Explicit context tags follow the
// numbering Android's Keymaster documentation assigns; tags not listed here
// (purpose, algorithm, digest, padding, …) are simply skipped by the ASN.1
// unmarshaler, which is tolerant of unrecognized optional fields.
type asn1AuthorizationList struct {
	RollbackResistance      asn1.RawValue `asn1:"optional,tag:303"`
	AllApplications         asn1.RawValue `asn1:"optional,tag:600"`
	Origin                  int           `asn1:"optional,explicit,tag:702,default:-1"`
	RootOfTrust             asn1RootOfTrust `asn1:"optional,explicit,tag:704"`
	OSVersion               int           `asn1:"optional,explicit,tag:705,default:-1"`
	OSPatchLevel            int           `asn1:"optional,explicit,tag:706,default:-1"`
	AttestationApplicationID []byte       `asn1:"optional,explicit,tag:709"`
}

type asn1RootOfTrust struct {
	VerifiedBootKey   []byte
	DeviceLocked      bool
	VerifiedBootState asn1.Enumerated
	VerifiedBootHash  []byte `asn1:"optional"`
}

type asn1AttestationApplicationID struct {
	PackageInfos      []asn1PackageInfo `asn1:"set"`
	SignatureDigests  [][]byte          `asn1:"set"`
}

type asn1PackageInfo struct {
	PackageName []byte
	Version     int64
}

// Extract locates the key-attestation extension on leaf and parses it into
// an Attestation. It returns an error if the extension is missing or
// malformed; it never inspects any other certificate in the chain.
func Extract(leaf *x509.Certificate) (*Attestation, error) {
	var raw []byte
	for _, ext := range leaf.Extensions {
		if ext.Id.Equal(ExtensionOID) {
			raw = ext.Value
			break
		}
	}
	if raw == nil {
		return nil, fmt.Errorf("keyattestation: leaf certificate has no attestation extension")
	}

	var kd asn1KeyDescription
	if rest, err := asn1.Unmarshal(raw, &kd); err != nil {
		return nil, fmt.Errorf("keyattestation: parse KeyDescription: %w", err)
	} else if len(rest) != 0 {
		return nil, fmt.Errorf("keyattestation: %d trailing bytes after KeyDescription", len(rest))
	}

	att := &Attestation{
		AttestationChallenge:     kd.AttestationChallenge,
		AttestationVersion:       kd.AttestationVersion,
		AttestationSecurityLevel: SecurityLevel(kd.AttestationSecurityLevel),
		KeymasterVersion:         kd.KeymasterVersion,
		KeymasterSecurityLevel:   SecurityLevel(kd.KeymasterSecurityLevel),
		OSVersion:                kd.TeeEnforced.OSVersion,
		OSPatchLevel:             kd.TeeEnforced.OSPatchLevel,
		Origin:                   Origin(kd.TeeEnforced.Origin),
		AllApplications:          kd.TeeEnforced.AllApplications.FullBytes != nil,
		RollbackResistant:        kd.TeeEnforced.RollbackResistance.FullBytes != nil,
	}

	if kd.TeeEnforced.RootOfTrust.VerifiedBootKey != nil {
		att.RootOfTrust = &RootOfTrust{
			VerifiedBootKey:   kd.TeeEnforced.RootOfTrust.VerifiedBootKey,
			DeviceLocked:      kd.TeeEnforced.RootOfTrust.DeviceLocked,
			VerifiedBootState: VerifiedBootState(kd.TeeEnforced.RootOfTrust.VerifiedBootState),
		}
	}

	if appID := kd.SoftwareEnforced.AttestationApplicationID; appID != nil {
		var parsed asn1AttestationApplicationID
		if rest, err := asn1.Unmarshal(appID, &parsed); err != nil {
			return nil, fmt.Errorf("keyattestation: parse AttestationApplicationId: %w", err)
		} else if len(rest) != 0 {
			return nil, fmt.Errorf("keyattestation: %d trailing bytes after AttestationApplicationId", len(rest))
		}
		for _, pkg := range parsed.PackageInfos {
			att.Packages = append(att.Packages, PackageInfo{
				PackageName: string(pkg.PackageName),
				Version:     pkg.Version,
			})
		}
		att.SignatureDigests = parsed.SignatureDigests
	}

	return att, nil
}
