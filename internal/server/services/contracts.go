package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/lifecycle"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contractsign/internal/server/schedule"
)

// ContractAdminService holds operator actions on a single contract.
type ContractAdminService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	log          logging.Logger
	storeTimeout time.Duration
}

func NewContractAdminService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *ContractAdminService {
	return &ContractAdminService{
		db:           db,
		repomanager:  m,
		log:          log,
		storeTimeout: cfg.StoreTimeout,
	}
}

// SetSchedule replaces the payment schedule override. The stages must sum
// to the contract total. An empty list removes the override so the derived
// schedule applies again. The effective schedule is returned.
func (s *ContractAdminService) SetSchedule(ctx context.Context, contractID int64, stages []models.Stage) ([]models.Stage, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	var effective []models.Stage
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.repomanager.Contracts(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		items, err := s.repomanager.LineItems(tx).ListByContract(ctx, c.ID)
		if err != nil {
			return err
		}
		total := lineItemsTotal(ctx, s.log, c, items)

		if len(stages) > 0 {
			if err := schedule.Validate(stages, total); err != nil {
				return err
			}
		}
		if err := s.repomanager.PaymentStages(tx).Replace(ctx, c.ID, stages); err != nil {
			return err
		}

		effective = stages
		if len(stages) == 0 {
			effective = schedule.Derive(total)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "payment schedule updated", "contract_id", contractID, "stages", len(stages))
	return effective, nil
}

// Complete marks a signed contract as completed.
func (s *ContractAdminService) Complete(ctx context.Context, contractID int64) error {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Contracts(tx)

		c, err := repo.GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if _, err := lifecycle.Apply(c.Status, models.StatusCompleted); err != nil {
			return err
		}
		ok, err := repo.SetStatus(ctx, c.ID, c.Status, models.StatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return &common.TransitionError{From: string(c.Status), To: string(models.StatusCompleted)}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "contract completed", "contract_id", contractID)
	return nil
}
