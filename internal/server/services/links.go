package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/notify"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/repomanager"
)

// LinkMode selects the token flavor of an issued link.
type LinkMode string

const (
	LinkStateless LinkMode = "stateless"
	LinkSingleUse LinkMode = "single_use"
)

// ParseLinkMode maps operator input to a LinkMode. Empty means stateless.
func ParseLinkMode(s string) (LinkMode, error) {
	switch LinkMode(s) {
	case "", LinkStateless:
		return LinkStateless, nil
	case LinkSingleUse:
		return LinkSingleUse, nil
	default:
		return "", fmt.Errorf("%w: unknown link mode %q", common.ErrorValidation, s)
	}
}

// IssuedLink is the result of IssueLink.
type IssuedLink struct {
	URL       string
	Token     string
	Mode      LinkMode
	ExpiresAt time.Time
	// Emailed is false when no mail was requested or sending failed.
	Emailed bool
}

// LinkService issues client access links.
type LinkService struct {
	db                *sql.DB
	repomanager       repomanager.RepositoryManager
	codec             *accesstoken.Codec
	notifier          notify.Notifier
	log               logging.Logger
	baseURL           string
	company           string
	statelessMaxAge   time.Duration
	singleUseValidity time.Duration
	storeTimeout      time.Duration
	notifyTimeout     time.Duration
	now               func() time.Time
}

func NewLinkService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	codec *accesstoken.Codec, notifier notify.Notifier, log logging.Logger) *LinkService {
	return &LinkService{
		db:                db,
		repomanager:       m,
		codec:             codec,
		notifier:          notifier,
		log:               log,
		baseURL:           cfg.LinkBaseURL,
		company:           cfg.CompanyName,
		statelessMaxAge:   cfg.LinkTokenMaxAge,
		singleUseValidity: cfg.SingleUseTokenValidity,
		storeTimeout:      cfg.StoreTimeout,
		notifyTimeout:     cfg.NotifyTimeout,
		now:               time.Now,
	}
}

// IssueLink mints a token for contractID and optionally mails the link to
// the client. A failed mail does not fail the call.
func (s *LinkService) IssueLink(ctx context.Context, contractID int64, mode LinkMode, send bool) (*IssuedLink, error) {
	if contractID <= 0 {
		return nil, fmt.Errorf("%w: contract id must be positive", common.ErrorValidation)
	}

	storeCtx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	now := s.now()
	link := &IssuedLink{Mode: mode}
	var contract *models.Contract

	err := dbx.WithTx(storeCtx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.repomanager.Contracts(tx).Get(ctx, contractID)
		if err != nil {
			return err
		}

		switch mode {
		case LinkStateless:
			link.Token, err = s.codec.Issue(c.ClientEmail, c.ID, now)
			if err != nil {
				return err
			}
			link.ExpiresAt = now.Add(s.statelessMaxAge)
		case LinkSingleUse:
			link.Token, err = common.MakeRandHexString(32)
			if err != nil {
				return err
			}
			link.ExpiresAt = now.Add(s.singleUseValidity)
			if err := s.repomanager.AccessTokens(tx).Create(ctx, &models.AccessTokenRecord{
				Token:      link.Token,
				ContractID: c.ID,
				ExpiresAt:  link.ExpiresAt,
			}); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown link mode %q", common.ErrorValidation, mode)
		}

		contract = c
		return s.repomanager.Activity(tx).Log(ctx, &models.Activity{
			ContractID: c.ID,
			Action:     models.ActivityLinkIssued,
			Details: map[string]any{
				"mode":       string(mode),
				"expires_at": link.ExpiresAt.UTC().Format(time.RFC3339),
				"emailed":    send,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	link.URL, err = buildLink(s.baseURL, link.Token)
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "access link issued", "contract_id", contractID, "mode", string(mode))

	if send {
		link.Emailed = s.sendInvitation(ctx, contract, link)
	}

	return link, nil
}

func (s *LinkService) sendInvitation(ctx context.Context, c *models.Contract, link *IssuedLink) bool {
	ctx, cancel := withTimeout(ctx, s.notifyTimeout)
	defer cancel()

	subject, html, text, err := notify.Invitation(notify.InvitationData{
		Company:     s.company,
		ClientName:  c.ClientName,
		ProjectType: c.ProjectType,
		QuoteNumber: c.QuoteNumber,
		Link:        link.URL,
		ExpiresAt:   link.ExpiresAt.UTC().Format("2 January 2006 15:04 MST"),
	})
	if err != nil {
		s.log.Error(ctx, "render invitation mail", "contract_id", c.ID, "error", err)
		return false
	}
	if err := s.notifier.Send(ctx, c.ClientEmail, subject, html, text); err != nil {
		s.log.Warn(ctx, "invitation mail not sent", "contract_id", c.ID, "error", err)
		return false
	}
	return true
}

// buildLink appends the token query parameter to base, keeping any query
// base already has.
func buildLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("link base url: %w", err)
	}
	q := u.Query()
	q.Set(common.TokenParamName, token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
