package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CaseStatus string

const (
	CaseInProgress CaseStatus = "IN_PROGRESS"
	CaseClosed     CaseStatus = "CLOSED"
)

// Valid reports whether s is one of the known case statuses.
func (s CaseStatus) Valid() bool {
	return s == CaseInProgress || s == CaseClosed
}

// Case is a debt-collection matter: one debtor's obligation to one creditor.
type Case struct {
	ID           string          `json:"id"`
	Reference    string          `json:"reference"`
	DebtorName   string          `json:"debtor_name"`
	CreditorName string          `json:"creditor_name"`
	TotalOwed    decimal.Decimal `json:"total_owed"`
	Currency     string          `json:"currency"`
	Status       CaseStatus      `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Remaining returns totalOwed minus the given paid amount.
func (c *Case) Remaining(paid decimal.Decimal) decimal.Decimal {
	return c.TotalOwed.Sub(paid)
}

// SettledBy reports whether paid fully covers the amount owed.
func (c *Case) SettledBy(paid decimal.Decimal) bool {
	return paid.GreaterThanOrEqual(c.TotalOwed)
}

// StatusFor returns the status a case must carry once paid has been collected.
func (c *Case) StatusFor(paid decimal.Decimal) CaseStatus {
	if c.SettledBy(paid) {
		return CaseClosed
	}
	return CaseInProgress
}

// CaseSummary is a case together with its ledger position.
type CaseSummary struct {
	Case
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PaymentCount     int             `json:"payment_count"`
}
