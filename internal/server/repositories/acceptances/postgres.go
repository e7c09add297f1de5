// Package acceptances records that a client accepted the terms for a
// contract. Only the first acceptance is kept.
package acceptances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Accept inserts the acceptance unless one exists. It reports whether a
// new row was written.
func (r *PostgresRepository) Accept(ctx context.Context, a *models.TermsAcceptance) (bool, error) {
	query := `
		INSERT INTO terms_acceptances (contract_id, terms_version_id, ip_address, accepted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (contract_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, a.ContractID, a.TermsVersionID, a.IPAddress, a.AcceptedAt)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Get(ctx context.Context, contractID int64) (*models.TermsAcceptance, error) {
	query := `
		SELECT contract_id, terms_version_id, ip_address, accepted_at
		FROM terms_acceptances
		WHERE contract_id = $1
	`
	var (
		a  models.TermsAcceptance
		tv sql.NullInt64
		ip sql.NullString
	)
	if err := r.db.QueryRowContext(ctx, query, contractID).Scan(&a.ContractID, &tv, &ip, &a.AcceptedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if tv.Valid {
		a.TermsVersionID = &tv.Int64
	}
	if ip.Valid {
		a.IPAddress = &ip.String
	}
	return &a, nil
}
