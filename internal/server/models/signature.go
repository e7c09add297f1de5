package models

import "time"

// SignatureKind tells how the signature payload was captured.
type SignatureKind string

const (
	SignatureTyped SignatureKind = "typed"
	SignatureDrawn SignatureKind = "drawn"
)

// ParseSignatureKind maps user input to a kind, defaulting to typed.
func ParseSignatureKind(s string) SignatureKind {
	if SignatureKind(s) == SignatureDrawn {
		return SignatureDrawn
	}
	return SignatureTyped
}

// Signature is written once per contract and never changed.
type Signature struct {
	ID            int64
	ContractID    int64
	SignatureData string
	Kind          SignatureKind
	SignedByName  string
	SignedByEmail string
	IPAddress     *string
	UserAgent     *string
	SignedAt      time.Time
}
