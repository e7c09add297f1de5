// Package services contains server-side business logic: the client signing
// flow, link issuance, terms management, schedule overrides and the
// housekeeping sweep. Services talk to storage only through the
// RepositoryManager and run multi-step writes inside dbx.WithTx.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// ClientMeta describes the HTTP request that carried a client token.
type ClientMeta struct {
	IP        string
	UserAgent string
}

func (m ClientMeta) ip() *string { return optional(m.IP) }

func (m ClientMeta) userAgent() *string { return optional(m.UserAgent) }

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// withTimeout bounds one I/O step. A zero duration only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// authorize checks that claims grant access to c. Stateless tokens carry
// the client email, which must still match the contract.
func authorize(c *models.Contract, claims *accesstoken.Claims) error {
	if c.ID != claims.ContractID {
		return common.ErrInvalidToken
	}
	if claims.SingleUse {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(claims.Email), strings.TrimSpace(c.ClientEmail)) {
		return common.ErrInvalidToken
	}
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, common.ErrorNotFound) }

// lineItemsTotal recomputes line totals, logging rows whose stored total
// disagrees, and returns the contract total. A stored contract total wins
// over the line item sum.
func lineItemsTotal(ctx context.Context, log logging.Logger, c *models.Contract, items []*models.LineItem) models.Money {
	for _, li := range items {
		if li.Consistent() {
			continue
		}
		log.Warn(ctx, "line item total does not match quantity * unit price",
			"contract_id", c.ID,
			"line_item_id", li.ID,
			"stored", li.TotalPrice.String(),
			"computed", li.ExpectedTotal().String(),
		)
		li.TotalPrice = li.ExpectedTotal()
	}
	if c.TotalAmount != nil {
		return *c.TotalAmount
	}
	return models.SumLineItems(items)
}
