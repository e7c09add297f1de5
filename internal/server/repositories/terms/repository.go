package terms

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Current(ctx context.Context) (*models.TermsVersion, error)
	Get(ctx context.Context, id int64) (*models.TermsVersion, error)
	CountVersionsWithPrefix(ctx context.Context, prefix string) (int, error)
	Create(ctx context.Context, t *models.TermsVersion) (*models.TermsVersion, error)
	Lock(ctx context.Context) error
	DeactivateAll(ctx context.Context) error
	Activate(ctx context.Context, id int64) error
}
