// Package models defines the persisted records of the signing workflow.
package models

import "time"

// Status is the lifecycle state of a contract.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSigned    Status = "signed"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
	StatusArchived  Status = "archived"
)

// Contract is owned by the issuing organisation and reviewed by the client.
type Contract struct {
	ID               int64
	ClientName       string
	ClientEmail      string
	ClientAddress    string
	ClientPhone      string
	ProjectType      string
	ScopeOfWork      string
	InstallationDate *time.Time
	QuoteNumber      string
	// TotalAmount is authoritative when set; otherwise the line items are summed.
	TotalAmount *Money
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LineItem is one priced row of a quote.
type LineItem struct {
	ID          int64    `json:"id"`
	ContractID  int64    `json:"-"`
	Description string   `json:"description"`
	Quantity    Quantity `json:"quantity"`
	UnitPrice   Money    `json:"unitPrice"`
	TotalPrice  Money    `json:"totalPrice"`
	SortOrder   int      `json:"-"`
}

// ExpectedTotal is quantity * unit price.
func (li LineItem) ExpectedTotal() Money {
	return li.Quantity.Times(li.UnitPrice)
}

// Consistent reports whether the stored total matches quantity * unit price.
func (li LineItem) Consistent() bool {
	return li.TotalPrice == li.ExpectedTotal()
}

// Stage is one installment of a payment schedule.
type Stage struct {
	Stage       string `json:"stage"`
	Amount      Money  `json:"amount"`
	Description string `json:"description"`
}

// SumLineItems adds up ExpectedTotal over items.
func SumLineItems(items []*LineItem) Money {
	var total Money
	for _, li := range items {
		total += li.ExpectedTotal()
	}
	return total
}

// SumStages adds up stage amounts.
func SumStages(stages []Stage) Money {
	var total Money
	for _, s := range stages {
		total += s.Amount
	}
	return total
}
