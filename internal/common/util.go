package common

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter is the number of random bytes, so the resulting string
// is twice as long. Single-use access links are MakeRandHexString(32).
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used for secrets read from the terminal or derived keys no longer needed.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

var hex64 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// IsHex64 reports whether s looks like a 32-byte random token encoded as hex.
func IsHex64(s string) bool {
	return hex64.MatchString(s)
}
