package accesstokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, rec *models.AccessTokenRecord) error
	Find(ctx context.Context, token string) (*models.AccessTokenRecord, error)
	MarkUsed(ctx context.Context, token string, at time.Time) (bool, error)
	Cleanup(ctx context.Context, now time.Time, usedGrace time.Duration) (int64, error)
}
