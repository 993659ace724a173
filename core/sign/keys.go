package sign

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"os"
)

const rsaKeyBits = 2048

// ParsePrivateKeyPEM parses a PEM private key and reports its family.
// PKCS#8, SEC1 (EC), and PKCS#1 (RSA) encodings are accepted.
func ParsePrivateKeyPEM(pemBytes []byte) (crypto.Signer, KeyFamily, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, FamilyUnknown, fmt.Errorf("no PEM block in private key")
	}
	parsed, err := parsePrivateKeyDER(block.Bytes)
	if err != nil {
		return nil, FamilyUnknown, err
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return nil, FamilyUnknown, fmt.Errorf("private key type %T cannot sign", parsed)
	}
	return signer, familyOfPrivate(parsed), nil
}

func parsePrivateKeyDER(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unparseable private key (expected PKCS#8, SEC1, or PKCS#1)")
}

// LoadPrivateKeyPEM reads and parses a PEM private key file.
func LoadPrivateKeyPEM(path string) (crypto.Signer, KeyFamily, error) {
	// #nosec G304 -- caller supplies local key path by design.
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, FamilyUnknown, fmt.Errorf("read private key: %w", err)
	}
	return ParsePrivateKeyPEM(raw)
}

// ParsePublicKeyPEM parses an SPKI/PEM public key and reports its family.
func ParsePublicKeyPEM(pemBytes []byte) (crypto.PublicKey, KeyFamily, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, FamilyUnknown, fmt.Errorf("no PEM block in public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, FamilyUnknown, fmt.Errorf("parse public key: %w", err)
	}
	return parsed, familyOfPublic(parsed), nil
}

// EncodePublicKeyPEM exports a public key in SPKI/PEM form.
func EncodePublicKeyPEM(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// EncodePrivateKeyPEM exports a private key in PKCS#8/PEM form.
func EncodePrivateKeyPEM(priv crypto.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// Fingerprint is the sha256 hex digest of the SPKI encoding of a public
// key, used as a stable key identifier in command output.
func Fingerprint(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("marshal public key: %w", err)
	}
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateKeyPair creates a fresh signing key for the named family.
func GenerateKeyPair(family KeyFamily) (crypto.Signer, error) {
	switch family {
	case FamilyEd25519:
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ed25519 key: %w", err)
		}
		return priv, nil
	case FamilyRSA:
		priv, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, fmt.Errorf("generate rsa key: %w", err)
		}
		return priv, nil
	case FamilyECDSA:
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("generate ecdsa key: %w", err)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("unsupported key family: %s", family)
	}
}

// ParseKeyFamily resolves a CLI algorithm name to a key family.
func ParseKeyFamily(name string) (KeyFamily, error) {
	switch name {
	case "ed25519":
		return FamilyEd25519, nil
	case "rsa":
		return FamilyRSA, nil
	case "ecdsa":
		return FamilyECDSA, nil
	default:
		return FamilyUnknown, fmt.Errorf("unsupported key algorithm %q (expected ed25519, rsa, or ecdsa)", name)
	}
}
