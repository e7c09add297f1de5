package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
)

// TermsService publishes and activates terms versions. Versions are never
// edited after publication.
type TermsService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	log          logging.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

func NewTermsService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *TermsService {
	return &TermsService{
		db:           db,
		repomanager:  m,
		log:          log,
		storeTimeout: cfg.StoreTimeout,
		now:          time.Now,
	}
}

// versionPrefix is the date part of a version label, e.g. "v2026.10.16.".
func versionPrefix(t time.Time) string {
	return t.UTC().Format("v2006.01.02.")
}

// Publish stores content as a new version labelled vYYYY.MM.DD.N, where N
// counts versions published that day. With activate set it becomes the
// only active version.
func (s *TermsService) Publish(ctx context.Context, content string, activate bool) (*models.TermsVersion, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: terms content is empty", common.ErrorValidation)
	}

	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	var published *models.TermsVersion
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Terms(tx)
		if err := repo.Lock(ctx); err != nil {
			return err
		}

		prefix := versionPrefix(s.now())
		n, err := repo.CountVersionsWithPrefix(ctx, prefix)
		if err != nil {
			return err
		}

		tv, err := repo.Create(ctx, &models.TermsVersion{
			Version: fmt.Sprintf("%s%d", prefix, n+1),
			Content: content,
		})
		if err != nil {
			return err
		}

		if activate {
			if err := repo.DeactivateAll(ctx); err != nil {
				return err
			}
			if err := repo.Activate(ctx, tv.ID); err != nil {
				return err
			}
			tv.IsActive = true
		}

		published = tv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "terms published", "version", published.Version, "active", published.IsActive)
	return published, nil
}

// Activate makes version id the only active one.
func (s *TermsService) Activate(ctx context.Context, id int64) (*models.TermsVersion, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	var activated *models.TermsVersion
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Terms(tx)
		if err := repo.Lock(ctx); err != nil {
			return err
		}

		tv, err := repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeactivateAll(ctx); err != nil {
			return err
		}
		if err := repo.Activate(ctx, id); err != nil {
			return err
		}
		tv.IsActive = true
		activated = tv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "terms activated", "version", activated.Version)
	return activated, nil
}
