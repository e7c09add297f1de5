package accesstoken

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// DefaultSingleUseValidity is the lifetime of a stored link.
const DefaultSingleUseValidity = 7 * 24 * time.Hour

// DefaultUsedGrace keeps a consumed stored link readable for a while so the
// client can reload the page and see the signed state.
const DefaultUsedGrace = 24 * time.Hour

// DefaultLookupTimeout bounds a stored token lookup when no timeout is set.
const DefaultLookupTimeout = 5 * time.Second

// TokenVerifier turns a raw token into Claims or common.ErrInvalidToken.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// RecordFinder looks up stored single-use tokens.
type RecordFinder interface {
	Find(ctx context.Context, token string) (*models.AccessTokenRecord, error)
}

// StatelessVerifier checks HMAC tokens against the wall clock.
type StatelessVerifier struct {
	codec *Codec
	now   func() time.Time
}

func NewStatelessVerifier(codec *Codec, now func() time.Time) *StatelessVerifier {
	if now == nil {
		now = time.Now
	}
	return &StatelessVerifier{codec: codec, now: now}
}

func (v *StatelessVerifier) Verify(_ context.Context, token string) (*Claims, error) {
	return v.codec.Verify(token, v.now())
}

// SingleUseVerifier checks stored tokens. A consumed token keeps verifying
// for grace after use so the signing retry path reports AlreadySigned.
type SingleUseVerifier struct {
	records RecordFinder
	grace   time.Duration
	timeout time.Duration
	now     func() time.Time
}

// NewSingleUseVerifier builds the stored-token verifier. Each lookup runs
// under timeout, or DefaultLookupTimeout when timeout is not positive.
func NewSingleUseVerifier(records RecordFinder, grace, timeout time.Duration, now func() time.Time) *SingleUseVerifier {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &SingleUseVerifier{records: records, grace: grace, timeout: timeout, now: now}
}

func (v *SingleUseVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	rec, err := v.records.Find(ctx, strings.ToLower(token))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, common.Temporary(err)
	}

	now := v.now()
	if !now.Before(rec.ExpiresAt) {
		return nil, common.ErrInvalidToken
	}
	if rec.Used {
		if rec.UsedAt == nil || now.Sub(*rec.UsedAt) > v.grace {
			return nil, common.ErrInvalidToken
		}
	}

	return &Claims{
		ContractID: rec.ContractID,
		IssuedAt:   rec.CreatedAt,
		Token:      rec.Token,
		SingleUse:  true,
	}, nil
}

// Verifier dispatches on token shape: 64 hex characters is a stored token,
// anything else is treated as a stateless one.
type Verifier struct {
	stateless TokenVerifier
	singleUse TokenVerifier
}

// NewVerifier builds the dispatcher. singleUse may be nil when no store is
// configured, in which case hex tokens are rejected.
func NewVerifier(stateless, singleUse TokenVerifier) *Verifier {
	return &Verifier{stateless: stateless, singleUse: singleUse}
}

func (v *Verifier) Verify(ctx context.Context, token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, common.ErrInvalidToken
	}
	if common.IsHex64(token) {
		if v.singleUse == nil {
			return nil, common.ErrInvalidToken
		}
		return v.singleUse.Verify(ctx, token)
	}
	return v.stateless.Verify(ctx, token)
}
