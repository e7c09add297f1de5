package lineitems

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

// ListByContract returns the quote rows in display order.
func (r *PostgresRepository) ListByContract(ctx context.Context, contractID int64) ([]*models.LineItem, error) {
	query := `
		SELECT id, description, quantity, unit_price, total_price, sort_order
		FROM line_items
		WHERE contract_id = $1
		ORDER BY sort_order, id
	`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	items := make([]*models.LineItem, 0)
	for rows.Next() {
		li := &models.LineItem{ContractID: contractID}
		if err := rows.Scan(&li.ID, &li.Description, &li.Quantity, &li.UnitPrice, &li.TotalPrice, &li.SortOrder); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}
