package accesstoken

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes used as HKDF info. Changing them rotates every derived key.
const (
	PurposeLink     = "contractsign/link-token/v1"
	PurposeOperator = "contractsign/operator-jwt/v1"
)

const derivedKeyLen = 32

var ErrEmptySecret = errors.New("empty master secret")

// DeriveKey expands master into a 32-byte key bound to purpose.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) == 0 {
		return nil, ErrEmptySecret
	}
	r := hkdf.New(sha256.New, master, nil, []byte(purpose))
	key := make([]byte, derivedKeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}
