// Package digest computes the content hashes artifacts are identified by.
// The algorithm is sha-512, matching the hashes published by Modrinth.
package digest

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Algorithm names the hash used for artifact identity.
const Algorithm = "sha512"

// Bytes returns the lower-case hex digest of data.
func Bytes(data []byte) string {
	h := sha512.Sum512(data)
	return hex.EncodeToString(h[:])
}

// Reader returns the lower-case hex digest of everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha512.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// File returns the lower-case hex digest of the file at path.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum, nil
}

// Normalize lower-cases and trims a hex digest so externally supplied
// hashes compare equal to computed ones.
func Normalize(hash string) string {
	return strings.ToLower(strings.TrimSpace(hash))
}

// Equal compares two hex digests ignoring case and surrounding space.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// Valid reports whether hash is a well-formed hex sha-512 digest.
func Valid(hash string) bool {
	hash = Normalize(hash)
	if len(hash) != sha512.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hash)
	return err == nil
}
