// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/migrations"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/acceptances"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/accesstokens"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/activity"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/lineitems"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/paymentstages"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/terms"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Contracts(db dbx.DBTX) contracts.Repository {
	return contracts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) LineItems(db dbx.DBTX) lineitems.Repository {
	return lineitems.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) PaymentStages(db dbx.DBTX) paymentstages.Repository {
	return paymentstages.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Signatures(db dbx.DBTX) signatures.Repository {
	return signatures.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Terms(db dbx.DBTX) terms.Repository {
	return terms.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Acceptances(db dbx.DBTX) acceptances.Repository {
	return acceptances.NewPostgresRepository(db)
}

// AccessTokens returns the single-use token repository bound to db.
func (m *PostgresRepositoryManager) AccessTokens(db dbx.DBTX) accesstokens.Repository {
	return accesstokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Activity(db dbx.DBTX) activity.Repository {
	return activity.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
