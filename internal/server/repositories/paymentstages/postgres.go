// Package paymentstages stores operator overrides of a contract's payment
// plan. A contract with no rows here uses the derived plan.
package paymentstages

import (
	"context"
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

func (r *PostgresRepository) List(ctx context.Context, contractID int64) ([]models.Stage, error) {
	query := `
		SELECT stage, amount, description
		FROM payment_stages
		WHERE contract_id = $1
		ORDER BY sort_order, id
	`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		var s models.Stage
		if err := rows.Scan(&s.Stage, &s.Amount, &s.Description); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return stages, nil
}

// Replace swaps the stored plan for stages. Call it inside a transaction.
func (r *PostgresRepository) Replace(ctx context.Context, contractID int64, stages []models.Stage) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_stages WHERE contract_id = $1`, contractID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query := `
		INSERT INTO payment_stages (contract_id, stage, amount, description, sort_order)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i, s := range stages {
		if _, err := r.db.ExecContext(ctx, query, contractID, s.Stage, s.Amount, s.Description, i); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}
