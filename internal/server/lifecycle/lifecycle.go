// Package lifecycle holds the contract state machine and the predicates
// used by the housekeeping sweep.
package lifecycle

import (
	"time"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// DefaultArchiveRetention is how long a completed contract stays visible.
const DefaultArchiveRetention = 365 * 24 * time.Hour

type edge struct{ from, to models.Status }

var legal = map[edge]bool{
	{models.StatusPending, models.StatusSigned}: true,
	// a sign can race the overdue sweep and must still win
	{models.StatusOverdue, models.StatusSigned}:     true,
	{models.StatusPending, models.StatusOverdue}:    true,
	{models.StatusSigned, models.StatusOverdue}:     true,
	{models.StatusSigned, models.StatusCompleted}:   true,
	{models.StatusOverdue, models.StatusCompleted}:  true,
	{models.StatusCompleted, models.StatusArchived}: true,
}

// repeated sweeps land on these without error
var idempotent = map[models.Status]bool{
	models.StatusOverdue:  true,
	models.StatusArchived: true,
}

// SignableStatuses are the states a contract may be signed from.
var SignableStatuses = []models.Status{models.StatusPending, models.StatusOverdue}

// CanTransition reports whether from -> to is allowed, no-ops included.
func CanTransition(from, to models.Status) bool {
	if from == to {
		return idempotent[from]
	}
	return legal[edge{from, to}]
}

// Apply returns the resulting status or a *common.TransitionError.
func Apply(from, to models.Status) (models.Status, error) {
	if !CanTransition(from, to) {
		return from, &common.TransitionError{From: string(from), To: string(to)}
	}
	return to, nil
}

// IsOverdue reports whether c should be swept to overdue: still pending or
// signed and the installation date has passed.
func IsOverdue(c *models.Contract, now time.Time) bool {
	if c.InstallationDate == nil {
		return false
	}
	if c.Status != models.StatusPending && c.Status != models.StatusSigned {
		return false
	}
	return c.InstallationDate.Before(now)
}

// IsArchivable reports whether a completed contract has been idle longer
// than retention.
func IsArchivable(c *models.Contract, now time.Time, retention time.Duration) bool {
	if c.Status != models.StatusCompleted {
		return false
	}
	return c.UpdatedAt.Before(now.Add(-retention))
}
