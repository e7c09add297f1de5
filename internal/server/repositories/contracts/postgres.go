// Package contracts provides the PostgreSQL repository for contract rows.
// Status changes are conditional updates so that concurrent signing and
// sweeps cannot overwrite each other.
package contracts

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

const selectColumns = `
	SELECT id, client_name, client_email, client_address, client_phone,
	       project_type, scope_of_work, installation_date, quote_number,
	       total_amount, status, created_at, updated_at
	FROM contracts
	WHERE id = $1`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.Contract, error) {
	return r.get(ctx, selectColumns, id)
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *PostgresRepository) GetForUpdate(ctx context.Context, id int64) (*models.Contract, error) {
	return r.get(ctx, selectColumns+"\n\tFOR UPDATE", id)
}

func (r *PostgresRepository) get(ctx context.Context, query string, id int64) (*models.Contract, error) {
	var (
		c       models.Contract
		install sql.NullTime
		total   sql.NullString
		status  string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.ClientName, &c.ClientEmail, &c.ClientAddress, &c.ClientPhone,
		&c.ProjectType, &c.ScopeOfWork, &install, &c.QuoteNumber,
		&total, &status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if install.Valid {
		d := install.Time
		c.InstallationDate = &d
	}
	if total.Valid {
		m, err := models.ParseMoney(total.String)
		if err != nil {
			return nil, fmt.Errorf("contract %d total_amount: %w", id, err)
		}
		c.TotalAmount = &m
	}
	c.Status = models.Status(status)

	return &c, nil
}

// MarkSigned moves a pending or overdue contract to signed. It returns false
// when the row was in any other state.
func (r *PostgresRepository) MarkSigned(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE contracts SET status = 'signed', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'overdue')
	`
	return r.execAffected(ctx, query, id)
}

// SetStatus moves the contract from one status to another, only if it is
// still in from.
func (r *PostgresRepository) SetStatus(ctx context.Context, id int64, from, to models.Status) (bool, error) {
	query := `
		UPDATE contracts SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`
	return r.execAffected(ctx, query, string(to), id, string(from))
}

// MarkOverdue flags every pending or signed contract whose installation
// date is before now. It returns the number of rows changed.
func (r *PostgresRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE contracts SET status = 'overdue', updated_at = now()
		WHERE status IN ('pending', 'signed')
		  AND installation_date IS NOT NULL
		  AND installation_date < $1
	`
	return r.exec(ctx, query, now)
}

// ArchiveCompleted archives completed contracts not touched since cutoff.
func (r *PostgresRepository) ArchiveCompleted(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE contracts SET status = 'archived', updated_at = now()
		WHERE status = 'completed' AND updated_at < $1
	`
	return r.exec(ctx, query, cutoff)
}

func (r *PostgresRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	n, err := r.exec(ctx, query, args...)
	return n > 0, err
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
