// Package activity writes the contract audit trail.
package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Log(ctx context.Context, a *models.Activity) error {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal details: %w", err)
	}

	query := `
		INSERT INTO activity_log (contract_id, action, details, ip_address)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, a.ContractID, a.Action, string(raw), a.IPAddress); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
