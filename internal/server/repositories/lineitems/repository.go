package lineitems

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	ListByContract(ctx context.Context, contractID int64) ([]*models.LineItem, error)
}
