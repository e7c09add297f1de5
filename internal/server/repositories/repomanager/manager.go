package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/acceptances"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/accesstokens"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/activity"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/lineitems"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/paymentstages"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/terms"
)

// RepositoryManager hands out repositories bound to a DBTX, so services
// can use the same code inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Contracts(db dbx.DBTX) contracts.Repository
	LineItems(db dbx.DBTX) lineitems.Repository
	PaymentStages(db dbx.DBTX) paymentstages.Repository
	Signatures(db dbx.DBTX) signatures.Repository
	Terms(db dbx.DBTX) terms.Repository
	Acceptances(db dbx.DBTX) acceptances.Repository
	AccessTokens(db dbx.DBTX) accesstokens.Repository
	Activity(db dbx.DBTX) activity.Repository
}
