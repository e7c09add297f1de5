// Package accesstoken mints and checks the capability tokens carried by
// client links. Two strategies exist: a stateless HMAC token and a stored
// single-use token; Verifier picks one by the token's shape.
package accesstoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
)

// DefaultMaxAge is how long a stateless token stays valid after issue.
const DefaultMaxAge = 24 * time.Hour

const fieldSep = "|"

// Claims is what a verified token grants: access to one contract.
type Claims struct {
	Email      string
	ContractID int64
	IssuedAt   time.Time
	// Token and SingleUse are set for stored tokens so the signing
	// transaction can consume the record.
	Token     string
	SingleUse bool
}

// Codec issues and verifies stateless tokens. It holds no state besides
// the key, so one value can be shared across goroutines.
type Codec struct {
	key    []byte
	maxAge time.Duration
}

// NewCodec returns a Codec. A non-positive maxAge means DefaultMaxAge.
func NewCodec(key []byte, maxAge time.Duration) *Codec {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Codec{key: key, maxAge: maxAge}
}

// Issue returns base64(email|contractID|issuedAt|hexHMAC).
func (c *Codec) Issue(email string, contractID int64, now time.Time) (string, error) {
	if email == "" || strings.Contains(email, fieldSep) {
		return "", fmt.Errorf("%w: email must be non-empty and must not contain %q", common.ErrorValidation, fieldSep)
	}
	if contractID <= 0 {
		return "", fmt.Errorf("%w: contract id must be positive", common.ErrorValidation)
	}

	payload := strings.Join([]string{email, strconv.FormatInt(contractID, 10), strconv.FormatInt(now.Unix(), 10)}, fieldSep)
	raw := payload + fieldSep + hex.EncodeToString(c.mac(payload))

	return base64.URLEncoding.EncodeToString([]byte(raw)), nil
}

// Verify authenticates token and checks its age against now. Every failure
// is reported as common.ErrInvalidToken.
func (c *Codec) Verify(token string, now time.Time) (*Claims, error) {
	raw, ok := decode(token)
	if !ok {
		return nil, common.ErrInvalidToken
	}

	parts := strings.Split(raw, fieldSep)
	if len(parts) != 4 {
		return nil, common.ErrInvalidToken
	}
	email, idStr, issuedStr, sigHex := parts[0], parts[1], parts[2], parts[3]

	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, common.ErrInvalidToken
	}
	want := c.mac(strings.Join(parts[:3], fieldSep))
	if !hmac.Equal(got, want) {
		return nil, common.ErrInvalidToken
	}

	contractID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || contractID <= 0 || email == "" {
		return nil, common.ErrInvalidToken
	}
	issuedAt, err := strconv.ParseInt(issuedStr, 10, 64)
	if err != nil {
		return nil, common.ErrInvalidToken
	}

	age := now.Unix() - issuedAt
	if age < 0 || age > int64(c.maxAge/time.Second) {
		return nil, common.ErrInvalidToken
	}

	return &Claims{
		Email:      email,
		ContractID: contractID,
		IssuedAt:   time.Unix(issuedAt, 0),
	}, nil
}

func (c *Codec) mac(payload string) []byte {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(payload))
	return h.Sum(nil)
}

// decode accepts URL-safe and standard alphabets, padded or not. Links that
// went through a mail client often lose or re-encode the padding.
func decode(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding, base64.StdEncoding,
		base64.RawURLEncoding, base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(token); err == nil {
			return string(b), true
		}
	}
	return "", false
}
