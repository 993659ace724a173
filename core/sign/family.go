package sign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
)

const (
	AlgEd25519     = "ed25519"
	AlgRSASHA256   = "rsa-sha256"
	AlgECDSASHA256 = "ecdsa-sha256"

	HashAlgSHA256 = "sha256"
)

// KeyFamily is the asymmetric key family behind a signature. The family
// decides the signing discipline: Ed25519 signs the raw message (the
// primitive hashes internally), RSA and EC pre-hash with SHA-256.
type KeyFamily int

const (
	FamilyUnknown KeyFamily = iota
	FamilyEd25519
	FamilyRSA
	FamilyECDSA
)

func (f KeyFamily) String() string {
	switch f {
	case FamilyEd25519:
		return "ed25519"
	case FamilyRSA:
		return "rsa"
	case FamilyECDSA:
		return "ecdsa"
	default:
		return "unknown"
	}
}

// Alg maps a key family to its signatureAlg identifier. Unknown families
// take the sha256-digest path and are labeled rsa-sha256 as a best-effort
// fallback for keys x509 can parse but this table does not name.
func (f KeyFamily) Alg() string {
	switch f {
	case FamilyEd25519:
		return AlgEd25519
	case FamilyRSA:
		return AlgRSASHA256
	case FamilyECDSA:
		return AlgECDSASHA256
	default:
		return AlgRSASHA256
	}
}

// PreHashes reports whether the family signs a SHA-256 digest of the
// message rather than the raw message bytes.
func (f KeyFamily) PreHashes() bool {
	return f != FamilyEd25519
}

func familyOfPublic(key crypto.PublicKey) KeyFamily {
	switch key.(type) {
	case ed25519.PublicKey:
		return FamilyEd25519
	case *rsa.PublicKey:
		return FamilyRSA
	case *ecdsa.PublicKey:
		return FamilyECDSA
	default:
		return FamilyUnknown
	}
}

func familyOfPrivate(key crypto.PrivateKey) KeyFamily {
	switch key.(type) {
	case ed25519.PrivateKey:
		return FamilyEd25519
	case *rsa.PrivateKey:
		return FamilyRSA
	case *ecdsa.PrivateKey:
		return FamilyECDSA
	default:
		return FamilyUnknown
	}
}

// familyForAlg is the verification-side mapping table. It mirrors Alg
// exactly; unrecognized algorithm strings return FamilyUnknown so the
// verifier can fall back to the sha256-digest discipline.
func familyForAlg(alg string) KeyFamily {
	switch alg {
	case AlgEd25519:
		return FamilyEd25519
	case AlgRSASHA256:
		return FamilyRSA
	case AlgECDSASHA256:
		return FamilyECDSA
	default:
		return FamilyUnknown
	}
}
