// Package signatures persists contract signatures. Rows are insert-only;
// the unique constraint on contract_id is the last line against a double
// sign.
package signatures

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// ContractUniqueConstraint is the name used in the schema migration.
const ContractUniqueConstraint = "signatures_contract_id_key"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts s and fills in ID and SignedAt. A second signature for the
// same contract yields common.ErrAlreadySigned.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Signature) (*models.Signature, error) {
	query := `
		INSERT INTO signatures (contract_id, signature_data, signature_kind, signed_by_name, signed_by_email, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, signed_at
	`
	err := r.db.QueryRowContext(ctx, query,
		s.ContractID, s.SignatureData, string(s.Kind), s.SignedByName, s.SignedByEmail, s.IPAddress, s.UserAgent,
	).Scan(&s.ID, &s.SignedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, ContractUniqueConstraint) {
			return nil, common.ErrAlreadySigned
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) GetByContract(ctx context.Context, contractID int64) (*models.Signature, error) {
	query := `
		SELECT id, contract_id, signature_data, signature_kind, signed_by_name, signed_by_email, ip_address, user_agent, signed_at
		FROM signatures
		WHERE contract_id = $1
	`
	var (
		s    models.Signature
		kind string
		ip   sql.NullString
		ua   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, contractID).Scan(
		&s.ID, &s.ContractID, &s.SignatureData, &kind, &s.SignedByName, &s.SignedByEmail, &ip, &ua, &s.SignedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Kind = models.SignatureKind(kind)
	if ip.Valid {
		s.IPAddress = &ip.String
	}
	if ua.Valid {
		s.UserAgent = &ua.String
	}
	return &s, nil
}
