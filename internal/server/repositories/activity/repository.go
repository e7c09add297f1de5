package activity

import (
	"context"

	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type Repository interface {
	Log(ctx context.Context, a *models.Activity) error
}
