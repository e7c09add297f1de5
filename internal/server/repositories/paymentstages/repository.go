package paymentstages

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	List(ctx context.Context, contractID int64) ([]models.Stage, error)
	Replace(ctx context.Context, contractID int64, stages []models.Stage) error
}
