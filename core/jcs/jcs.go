// Package jcs digests JSON documents over their RFC 8785 canonical form,
// so a manifest's digest does not change with key order or whitespace.
package jcs

import (
	"crypto/sha256"
	"encoding/hex"

	gojcs "github.com/gowebpki/jcs"
)

// Canonicalize returns the RFC 8785 canonical encoding of a JSON document.
func Canonicalize(document []byte) ([]byte, error) {
	return gojcs.Transform(document)
}

// Digest returns the sha256 hex digest of a JSON document's canonical form.
func Digest(document []byte) (string, error) {
	canonical, err := Canonicalize(document)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
