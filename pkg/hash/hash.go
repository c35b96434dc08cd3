package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// ContentHash streams r through SHA256 and returns the hex digest.
// Used to key cached results for uploaded files by their bytes.
func ContentHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Prefix returns the first n characters of a hex digest, or the whole digest
// if it is shorter.
func Prefix(digest string, n int) string {
	if n > len(digest) {
		return digest
	}
	return digest[:n]
}
