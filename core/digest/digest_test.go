package digest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileKnownVector(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.zip")
	if err := os.WriteFile(path, []byte("abc"), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	got, err := File(path)
	if err != nil {
		t.Fatalf("hash file: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("digest mismatch: got %s want %s", got, want)
	}
}

func TestFileMatchesBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	payload := make([]byte, 1<<16)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	streamed, err := File(path)
	if err != nil {
		t.Fatalf("hash file: %v", err)
	}
	if whole := Bytes(payload); streamed != whole {
		t.Fatalf("streaming digest %s differs from whole-buffer digest %s", streamed, whole)
	}
}

func TestFileTamperChangesDigest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob")
	payload := []byte("package bytes under test")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	before, err := File(path)
	if err != nil {
		t.Fatalf("hash before: %v", err)
	}
	payload[0] ^= 0x01
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatalf("rewrite artifact: %v", err)
	}
	after, err := File(path)
	if err != nil {
		t.Fatalf("hash after: %v", err)
	}
	if before == after {
		t.Fatal("expected one-byte flip to change digest")
	}
}

func TestFileMissing(t *testing.T) {
	if _, err := File(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestEqualHexCaseInsensitive(t *testing.T) {
	if !EqualHex("ABCDEF", "abcdef") {
		t.Fatal("expected case-insensitive match")
	}
	if EqualHex("abc", "abd") {
		t.Fatal("expected mismatch")
	}
}

func TestDecodeHex(t *testing.T) {
	raw, err := DecodeHex(Bytes([]byte("x")))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(raw) != 32 {
		t.Fatalf("expected 32 raw bytes, got %d", len(raw))
	}
	if _, err := DecodeHex("zz"); err == nil {
		t.Fatal("expected error for non-hex input")
	}
	if _, err := DecodeHex("abcd"); err == nil {
		t.Fatal("expected error for short digest")
	}
}
