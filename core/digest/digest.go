package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// HexLength is the length of a sha256 digest rendered as lowercase hex.
const HexLength = sha256.Size * 2

// File streams the file at path through sha256 and returns the lowercase
// hex digest of its raw bytes.
func File(path string) (string, error) {
	// #nosec G304 -- caller supplies local artifact path by design.
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open artifact: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	hashWriter := sha256.New()
	if _, err := io.Copy(hashWriter, file); err != nil {
		return "", fmt.Errorf("hash artifact: %w", err)
	}
	return hex.EncodeToString(hashWriter.Sum(nil)), nil
}

// Bytes returns the lowercase hex sha256 digest of data.
func Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// EqualHex compares two hex digests case-insensitively.
func EqualHex(first, second string) bool {
	return strings.EqualFold(first, second)
}

// DecodeHex decodes a hex digest into raw bytes and enforces sha256 length.
func DecodeHex(digestHex string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(digestHex))
	if err != nil {
		return nil, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != sha256.Size {
		return nil, fmt.Errorf("invalid digest length: %d", len(raw))
	}
	return raw, nil
}
