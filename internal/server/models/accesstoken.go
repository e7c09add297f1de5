package models

import "time"

// AccessTokenRecord backs a single-use email link.
type AccessTokenRecord struct {
	Token      string
	ContractID int64
	ExpiresAt  time.Time
	Used       bool
	UsedAt     *time.Time
	CreatedAt  time.Time
}
