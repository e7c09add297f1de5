package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
)

// SweepResult counts rows touched by one sweep.
type SweepResult struct {
	Overdue       int64
	Archived      int64
	TokensDeleted int64
}

// Sweeper runs the periodic lifecycle maintenance: overdue marking,
// archival of old completed contracts and expired token cleanup. Each
// step is a single idempotent statement.
type Sweeper struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	log          logging.Logger
	retention    time.Duration
	usedGrace    time.Duration
	storeTimeout time.Duration
	now          func() time.Time
}

func NewSweeper(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *Sweeper {
	return &Sweeper{
		db:           db,
		repomanager:  m,
		log:          log,
		retention:    cfg.ArchiveRetention,
		usedGrace:    cfg.SingleUseGrace,
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// Run performs one sweep. Steps are independent; the first failure stops
// the sweep and the counts so far are returned with it.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := s.now()

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	contracts := s.repomanager.Contracts(s.db)

	n, err := contracts.MarkOverdue(ctx, now)
	if err != nil {
		return res, err
	}
	res.Overdue = n

	n, err = contracts.ArchiveCompleted(ctx, now.Add(-s.retention))
	if err != nil {
		return res, err
	}
	res.Archived = n

	n, err = s.repomanager.AccessTokens(s.db).Cleanup(ctx, now, s.usedGrace)
	if err != nil {
		return res, err
	}
	res.TokensDeleted = n

	s.log.Info(ctx, "sweep finished",
		"overdue", res.Overdue,
		"archived", res.Archived,
		"tokens_deleted", res.TokensDeleted,
	)
	return res, nil
}

// Start runs a sweep every interval until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx); err != nil {
				s.log.Error(ctx, "sweep failed", "error", err)
			}
		}
	}
}
