package models

import "time"

// TermsVersion is an immutable snapshot of the terms text.
type TermsVersion struct {
	ID        int64
	Version   string
	Content   string
	IsActive  bool
	CreatedAt time.Time
}

// TermsAcceptance records the first time a client accepted the terms for
// a contract.
type TermsAcceptance struct {
	ContractID     int64
	TermsVersionID *int64
	IPAddress      *string
	AcceptedAt     time.Time
}
