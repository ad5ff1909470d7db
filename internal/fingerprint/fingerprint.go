// Package fingerprint computes content digests of collected source files.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Sum returns the lowercase hex SHA-256 of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// Reader digests everything read from r.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
