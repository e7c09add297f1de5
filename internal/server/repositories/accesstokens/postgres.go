// Package accesstokens provides a PostgreSQL-backed repository for the
// single-use tokens embedded in emailed links.
package accesstokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// PostgresRepository implements the token operations over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores a new unused token.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.AccessTokenRecord) error {
	query := `
		INSERT INTO access_tokens (token, contract_id, expires_at)
		VALUES ($1, $2, $3)
	`
	if _, err := r.db.ExecContext(ctx, query, rec.Token, rec.ContractID, rec.ExpiresAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// Find returns the token row. If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.AccessTokenRecord, error) {
	query := `
		SELECT token, contract_id, expires_at, used, used_at, created_at
		FROM access_tokens
		WHERE token = $1
	`
	rec := &models.AccessTokenRecord{}
	var usedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&rec.Token, &rec.ContractID, &rec.ExpiresAt, &rec.Used, &usedAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if usedAt.Valid {
		rec.UsedAt = &usedAt.Time
	}
	return rec, nil
}

// MarkUsed consumes the token. It returns false if it was already used.
func (r *PostgresRepository) MarkUsed(ctx context.Context, token string, at time.Time) (bool, error) {
	query := `
		UPDATE access_tokens SET used = TRUE, used_at = $2
		WHERE token = $1 AND used = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, token, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// Cleanup deletes expired tokens and tokens consumed more than usedGrace
// ago.
func (r *PostgresRepository) Cleanup(ctx context.Context, now time.Time, usedGrace time.Duration) (int64, error) {
	query := `
		DELETE FROM access_tokens
		WHERE expires_at < $1 OR (used AND used_at < $2)
	`
	res, err := r.db.ExecContext(ctx, query, now, now.Add(-usedGrace))
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
