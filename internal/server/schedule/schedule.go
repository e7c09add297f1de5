// Package schedule derives installment plans from a contract total.
package schedule

import (
	"fmt"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
)

// Tier boundaries in minor units.
const (
	SmallJobLimit  models.Money = 5000_00
	MediumJobLimit models.Money = 15000_00
)

type part struct {
	stage       string
	percent     int64
	description string
}

var (
	smallPlan = []part{
		{"Deposit", 50, "Initial deposit to secure booking"},
		{"Completion", 50, "Final payment upon completion"},
	}
	mediumPlan = []part{
		{"Deposit", 30, "Initial deposit (30% of total)"},
		{"Materials", 40, "Materials payment (40% of total)"},
		{"Completion", 30, "Final payment upon completion"},
	}
	largePlan = []part{
		{"Deposit", 25, "Initial deposit (25% of total)"},
		{"Materials", 35, "Materials and supplies (35% of total)"},
		{"Progress", 25, "Progress payment at 50% completion (25% of total)"},
		{"Completion", 15, "Final payment upon completion"},
	}
)

// Derive returns the payment plan for total. Every stage but the last is
// rounded half-up to the cent and the last takes whatever remains, so the
// amounts always sum to total. A non-positive total has no plan.
func Derive(total models.Money) []models.Stage {
	if total <= 0 {
		return []models.Stage{}
	}

	plan := largePlan
	switch {
	case total <= SmallJobLimit:
		plan = smallPlan
	case total <= MediumJobLimit:
		plan = mediumPlan
	}

	stages := make([]models.Stage, 0, len(plan))
	var allocated models.Money
	for i, p := range plan {
		amount := total.Percent(p.percent)
		if i == len(plan)-1 {
			amount = total - allocated
		}
		allocated += amount
		stages = append(stages, models.Stage{Stage: p.stage, Amount: amount, Description: p.description})
	}
	return stages
}

// Validate checks an operator supplied plan: at least one stage, named,
// non-negative amounts that add up to total exactly.
func Validate(stages []models.Stage, total models.Money) error {
	if len(stages) == 0 {
		return fmt.Errorf("%w: schedule has no stages", common.ErrorValidation)
	}
	for i, s := range stages {
		if s.Stage == "" {
			return fmt.Errorf("%w: stage %d has no name", common.ErrorValidation, i+1)
		}
		if s.Amount < 0 {
			return fmt.Errorf("%w: stage %q has a negative amount", common.ErrorValidation, s.Stage)
		}
	}
	if sum := models.SumStages(stages); sum != total {
		return fmt.Errorf("%w: stages sum to %s, contract total is %s", common.ErrorValidation, sum, total)
	}
	return nil
}
