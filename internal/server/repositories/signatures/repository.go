package signatures

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Signature) (*models.Signature, error)
	GetByContract(ctx context.Context, contractID int64) (*models.Signature, error)
}
