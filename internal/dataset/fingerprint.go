package dataset

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when fingerprinting a zero-length upload. An empty
// file is not a meaningful dataset and must never produce a dedup key.
var ErrEmptyInput = errors.New("dataset: empty input")

// FingerprintLen is the length of a fingerprint in hex characters.
const FingerprintLen = 64

// Fingerprint computes the content address of an uploaded dataset: the
// lowercase hex SHA-256 of its raw bytes. Identical content always yields the
// identical fingerprint.
func Fingerprint(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", ErrEmptyInput
	}
	hash := sha256.Sum256(raw)
	return fmt.Sprintf("%x", hash), nil
}

// ValidFingerprint reports whether s has the exact shape of a fingerprint:
// 64 lowercase hex characters.
func ValidFingerprint(s string) bool {
	if len(s) != FingerprintLen {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
