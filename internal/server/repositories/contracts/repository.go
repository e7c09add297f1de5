package contracts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, id int64) (*models.Contract, error)
	GetForUpdate(ctx context.Context, id int64) (*models.Contract, error)
	MarkSigned(ctx context.Context, id int64) (bool, error)
	SetStatus(ctx context.Context, id int64, from, to models.Status) (bool, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	ArchiveCompleted(ctx context.Context, cutoff time.Time) (int64, error)
}
