// Package terms stores versioned terms and conditions.
package terms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

// Current returns the active version, newest first on ties. With no active
// row it falls back to the newest version of any status.
func (r *PostgresRepository) Current(ctx context.Context) (*models.TermsVersion, error) {
	query := `
		SELECT id, version, content, is_active, created_at
		FROM terms_versions
		ORDER BY is_active DESC, created_at DESC, id DESC
		LIMIT 1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query))
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.TermsVersion, error) {
	query := `
		SELECT id, version, content, is_active, created_at
		FROM terms_versions
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// CountVersionsWithPrefix counts labels starting with prefix, used to
// number same-day publications.
func (r *PostgresRepository) CountVersionsWithPrefix(ctx context.Context, prefix string) (int, error) {
	query := `SELECT COUNT(*) FROM terms_versions WHERE version LIKE $1`

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(prefix)

	var n int
	if err := r.db.QueryRowContext(ctx, query, escaped+"%").Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// Create inserts an inactive version.
func (r *PostgresRepository) Create(ctx context.Context, t *models.TermsVersion) (*models.TermsVersion, error) {
	query := `
		INSERT INTO terms_versions (version, content, is_active)
		VALUES ($1, $2, FALSE)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, t.Version, t.Content).Scan(&t.ID, &t.CreatedAt); err != nil {
		if dbx.IsUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: version %q already exists", common.ErrorValidation, t.Version)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.IsActive = false
	return t, nil
}

// Lock serialises writers of terms_versions until the transaction ends.
// Readers are not blocked. Call it first in any transaction that publishes
// or activates a version.
func (r *PostgresRepository) Lock(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `LOCK TABLE terms_versions IN SHARE ROW EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeactivateAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE terms_versions SET is_active = FALSE WHERE is_active`); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Activate marks one version active. Pair it with DeactivateAll in the same
// transaction.
func (r *PostgresRepository) Activate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE terms_versions SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.TermsVersion, error) {
	var t models.TermsVersion
	if err := row.Scan(&t.ID, &t.Version, &t.Content, &t.IsActive, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}
