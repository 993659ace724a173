package sign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/davidahmann/appdepot/core/digest"
	schemaapp "github.com/davidahmann/appdepot/core/schema/v1/app"
)

// NewRecord signs an artifact hash and assembles the detached signature
// record. The signed message is the raw decoded hash bytes, never the hex
// text; verification decodes identically.
func NewRecord(appID, version, artifactHash string, privateKeyPEM []byte, now time.Time) (schemaapp.SignatureRecord, error) {
	signer, family, err := ParsePrivateKeyPEM(privateKeyPEM)
	if err != nil {
		return schemaapp.SignatureRecord{}, err
	}
	message, err := digest.DecodeHex(artifactHash)
	if err != nil {
		return schemaapp.SignatureRecord{}, err
	}

	var sig []byte
	if family.PreHashes() {
		sum := sha256.Sum256(message)
		sig, err = signer.Sign(rand.Reader, sum[:], crypto.SHA256)
	} else {
		sig, err = signer.Sign(rand.Reader, message, crypto.Hash(0))
	}
	if err != nil {
		return schemaapp.SignatureRecord{}, fmt.Errorf("sign artifact hash: %w", err)
	}

	publicPEM, err := EncodePublicKeyPEM(signer.Public())
	if err != nil {
		return schemaapp.SignatureRecord{}, err
	}
	return schemaapp.SignatureRecord{
		AppID:        appID,
		Version:      version,
		Hash:         strings.ToLower(strings.TrimSpace(artifactHash)),
		HashAlg:      HashAlgSHA256,
		Signature:    base64.StdEncoding.EncodeToString(sig),
		SignatureAlg: family.Alg(),
		PublicKey:    publicPEM,
		CreatedAt:    now.UTC().Format(time.RFC3339),
	}, nil
}

// VerifyResult is a structured verdict so callers auditing many entries
// can continue past one bad signature.
type VerifyResult struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func failure(format string, args ...any) VerifyResult {
	return VerifyResult{OK: false, Reason: fmt.Sprintf(format, args...)}
}

// VerifyRecord checks a signature record against an independently computed
// artifact hash. It never panics or returns an error: malformed input
// yields ok=false with a reason.
func VerifyRecord(record schemaapp.SignatureRecord, expectedHash string) VerifyResult {
	if record.Hash != expectedHash {
		return failure("hash mismatch")
	}
	if strings.TrimSpace(record.PublicKey) == "" {
		return failure("missing public key")
	}
	if strings.TrimSpace(record.Signature) == "" {
		return failure("missing signature")
	}

	pub, keyFamily, err := ParsePublicKeyPEM([]byte(record.PublicKey))
	if err != nil {
		return failure("%v", err)
	}
	sig, err := base64.StdEncoding.DecodeString(record.Signature)
	if err != nil {
		return failure("decode signature: %v", err)
	}
	message, err := digest.DecodeHex(expectedHash)
	if err != nil {
		return failure("%v", err)
	}

	algFamily := familyForAlg(record.SignatureAlg)
	fallback := algFamily == FamilyUnknown

	var ok bool
	if algFamily == FamilyEd25519 {
		edKey, isEd := pub.(ed25519.PublicKey)
		if !isEd {
			return failure("signatureAlg %s requires an ed25519 public key, got %s", record.SignatureAlg, keyFamily)
		}
		ok = ed25519.Verify(edKey, message, sig)
	} else {
		// rsa-sha256, ecdsa-sha256, and the documented fallback for
		// unrecognized algorithm strings all verify over sha256(message),
		// dispatching on the actual key family of the record's public key.
		sum := sha256.Sum256(message)
		switch key := pub.(type) {
		case *rsa.PublicKey:
			ok = rsa.VerifyPKCS1v15(key, crypto.SHA256, sum[:], sig) == nil
		case *ecdsa.PublicKey:
			ok = ecdsa.VerifyASN1(key, sum[:], sig)
		case ed25519.PublicKey:
			ok = ed25519.Verify(key, sum[:], sig)
		default:
			return failure("unsupported public key type %T", pub)
		}
	}

	if !ok {
		return failure("signature verification failed")
	}
	if fallback {
		return VerifyResult{
			OK:     true,
			Reason: fmt.Sprintf("signatureAlg %q not recognized; verified via sha256-digest fallback", record.SignatureAlg),
		}
	}
	return VerifyResult{OK: true}
}
