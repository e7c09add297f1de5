package acceptances

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Accept(ctx context.Context, a *models.TermsAcceptance) (bool, error)
	Get(ctx context.Context, contractID int64) (*models.TermsAcceptance, error)
}
