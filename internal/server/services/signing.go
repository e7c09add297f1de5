package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/lifecycle"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/notify"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contractsign/internal/server/schedule"
	"github.com/dmitrijs2005/contractsign/internal/server/storage"
)

// PlaceholderTerms is shown when no terms version has been published.
const PlaceholderTerms = "Terms and conditions are not available at the moment. Please contact us before signing."

// TermsView is the terms text shown to the client.
type TermsView struct {
	ID          *int64
	Version     string
	Content     string
	Placeholder bool
}

// ContractView is everything the client page needs in one read.
type ContractView struct {
	Contract           *models.Contract
	LineItems          []*models.LineItem
	Total              models.Money
	Schedule           []models.Stage
	ScheduleOverridden bool
	Terms              TermsView
	Acceptance         *models.TermsAcceptance
	Signature          *models.Signature
}

// SignRequest is the client's signing submission.
type SignRequest struct {
	SignatureData string
	Kind          string
	AgreesToTerms bool
	SignerName    string
}

// SigningService implements the client side of the workflow. Every method
// takes claims already verified by a TokenVerifier.
type SigningService struct {
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	notifier      notify.Notifier
	store         storage.ObjectStore
	log           logging.Logger
	storeTimeout  time.Duration
	notifyTimeout time.Duration
	company       string
	now           func() time.Time
}

// NewSigningService wires the service. store may be nil, in which case
// downloads are returned inline only.
func NewSigningService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	notifier notify.Notifier, store storage.ObjectStore, log logging.Logger) *SigningService {
	return &SigningService{
		db:            db,
		repomanager:   m,
		notifier:      notifier,
		store:         store,
		log:           log,
		storeTimeout:  cfg.StoreTimeout,
		notifyTimeout: cfg.NotifyTimeout,
		company:       cfg.CompanyName,
		now:           time.Now,
	}
}

// ViewContract assembles the contract page. It has no side effects.
func (s *SigningService) ViewContract(ctx context.Context, claims *accesstoken.Claims) (*ContractView, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	view, err := s.view(ctx, claims)
	if err != nil {
		return nil, common.Temporary(err)
	}
	return view, nil
}

func (s *SigningService) view(ctx context.Context, claims *accesstoken.Claims) (*ContractView, error) {
	c, err := s.repomanager.Contracts(s.db).Get(ctx, claims.ContractID)
	if err != nil {
		return nil, err
	}
	if err := authorize(c, claims); err != nil {
		return nil, err
	}

	items, err := s.repomanager.LineItems(s.db).ListByContract(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	total := lineItemsTotal(ctx, s.log, c, items)

	stages, err := s.repomanager.PaymentStages(s.db).List(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	overridden := len(stages) > 0
	if !overridden {
		stages = schedule.Derive(total)
	}

	terms, err := s.currentTerms(ctx, s.db)
	if err != nil {
		return nil, err
	}

	acceptance, err := s.repomanager.Acceptances(s.db).Get(ctx, c.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	signature, err := s.repomanager.Signatures(s.db).GetByContract(ctx, c.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	return &ContractView{
		Contract:           c,
		LineItems:          items,
		Total:              total,
		Schedule:           stages,
		ScheduleOverridden: overridden,
		Terms:              terms,
		Acceptance:         acceptance,
		Signature:          signature,
	}, nil
}

func (s *SigningService) currentTerms(ctx context.Context, db dbx.DBTX) (TermsView, error) {
	tv, err := s.repomanager.Terms(db).Current(ctx)
	if err != nil {
		if isNotFound(err) {
			return TermsView{Content: PlaceholderTerms, Placeholder: true}, nil
		}
		return TermsView{}, err
	}
	id := tv.ID
	return TermsView{ID: &id, Version: tv.Version, Content: tv.Content}, nil
}

// AcceptTerms records the client's acceptance. Repeated calls keep the
// first timestamp and return it.
func (s *SigningService) AcceptTerms(ctx context.Context, claims *accesstoken.Claims, meta ClientMeta) (*models.TermsAcceptance, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	var accepted *models.TermsAcceptance
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.repomanager.Contracts(tx).Get(ctx, claims.ContractID)
		if err != nil {
			return err
		}
		if err := authorize(c, claims); err != nil {
			return err
		}

		terms, err := s.currentTerms(ctx, tx)
		if err != nil {
			return err
		}

		repo := s.repomanager.Acceptances(tx)
		inserted, err := repo.Accept(ctx, &models.TermsAcceptance{
			ContractID:     c.ID,
			TermsVersionID: terms.ID,
			IPAddress:      meta.ip(),
			AcceptedAt:     s.now(),
		})
		if err != nil {
			return err
		}
		if inserted {
			if err := s.repomanager.Activity(tx).Log(ctx, &models.Activity{
				ContractID: c.ID,
				Action:     models.ActivityTermsAccepted,
				Details:    map[string]any{"terms_version": terms.Version},
				IPAddress:  meta.ip(),
			}); err != nil {
				return err
			}
		}

		accepted, err = repo.Get(ctx, c.ID)
		return err
	})
	if err != nil {
		return nil, common.Temporary(err)
	}
	return accepted, nil
}

// Sign captures the signature and moves the contract to signed in one
// transaction. The row lock, the unique signature constraint and the
// conditional status update each stop a concurrent second sign; the loser
// gets common.ErrAlreadySigned.
func (s *SigningService) Sign(ctx context.Context, claims *accesstoken.Claims, req SignRequest, meta ClientMeta) (*models.Signature, error) {
	if !req.AgreesToTerms {
		return nil, common.ErrTermsNotAgreed
	}
	data := strings.TrimSpace(req.SignatureData)
	if data == "" {
		return nil, common.ErrEmptySignature
	}

	txCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	var (
		signed   *models.Signature
		contract *models.Contract
	)
	err := dbx.WithTx(txCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		contracts := s.repomanager.Contracts(tx)

		c, err := contracts.GetForUpdate(ctx, claims.ContractID)
		if err != nil {
			return err
		}
		if err := authorize(c, claims); err != nil {
			return err
		}

		if _, err := s.repomanager.Acceptances(tx).Get(ctx, c.ID); err != nil {
			if isNotFound(err) {
				return common.ErrTermsNotAccepted
			}
			return err
		}

		signatures := s.repomanager.Signatures(tx)
		if _, err := signatures.GetByContract(ctx, c.ID); err == nil {
			return common.ErrAlreadySigned
		} else if !isNotFound(err) {
			return err
		}

		if _, err := lifecycle.Apply(c.Status, models.StatusSigned); err != nil {
			return err
		}

		name := strings.TrimSpace(req.SignerName)
		if name == "" {
			name = c.ClientName
		}
		email := claims.Email
		if email == "" {
			email = c.ClientEmail
		}

		sig, err := signatures.Create(ctx, &models.Signature{
			ContractID:    c.ID,
			SignatureData: data,
			Kind:          models.ParseSignatureKind(req.Kind),
			SignedByName:  name,
			SignedByEmail: email,
			IPAddress:     meta.ip(),
			UserAgent:     meta.userAgent(),
		})
		if err != nil {
			return err
		}

		ok, err := contracts.MarkSigned(ctx, c.ID)
		if err != nil {
			return err
		}
		if !ok {
			return &common.TransitionError{From: string(c.Status), To: string(models.StatusSigned)}
		}

		if claims.SingleUse {
			if _, err := s.repomanager.AccessTokens(tx).MarkUsed(ctx, claims.Token, s.now()); err != nil {
				return err
			}
		}

		if err := s.repomanager.Activity(tx).Log(ctx, &models.Activity{
			ContractID: c.ID,
			Action:     models.ActivityContractSigned,
			Details: map[string]any{
				"signature_id":   sig.ID,
				"signature_kind": string(sig.Kind),
				"signed_by":      sig.SignedByName,
				"previous":       string(c.Status),
			},
			IPAddress: meta.ip(),
		}); err != nil {
			return err
		}

		signed, contract = sig, c
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadySigned) {
			s.log.Info(ctx, "repeated sign rejected", "contract_id", claims.ContractID)
		}
		return nil, common.Temporary(err)
	}

	s.log.Info(ctx, "contract signed", "contract_id", contract.ID, "signature_id", signed.ID)
	s.notifySigned(ctx, contract, signed)

	return signed, nil
}

// notifySigned sends the confirmation mail. The signature is already
// committed, so failures are only logged.
func (s *SigningService) notifySigned(ctx context.Context, c *models.Contract, sig *models.Signature) {
	ctx, cancel := withTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	total := models.Money(0)
	if c.TotalAmount != nil {
		total = *c.TotalAmount
	} else if items, err := s.repomanager.LineItems(s.db).ListByContract(ctx, c.ID); err == nil {
		total = models.SumLineItems(items)
	}

	subject, html, text, err := notify.Signed(notify.SignedData{
		Company:     s.company,
		ClientName:  c.ClientName,
		ProjectType: c.ProjectType,
		QuoteNumber: c.QuoteNumber,
		SignedAt:    sig.SignedAt.UTC().Format("2 January 2006 15:04 MST"),
		Total:       total.String(),
	})
	if err != nil {
		s.log.Error(ctx, "render confirmation mail", "contract_id", c.ID, "error", err)
		return
	}
	if err := s.notifier.Send(ctx, c.ClientEmail, subject, html, text); err != nil {
		s.log.Warn(ctx, "confirmation mail not sent", "contract_id", c.ID, "error", err)
	}
}
