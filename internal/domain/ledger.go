package domain

import (
	"context"
	"time"
)

// Ledger is the set of case and payment operations available inside a single
// storage transaction. Every call made through one Ledger commits or rolls
// back together.
type Ledger interface {
	// GetCaseByID returns nil, nil when the case does not exist.
	GetCaseByID(ctx context.Context, id string) (*Case, error)
	UpdateCaseStatus(ctx context.Context, id string, status CaseStatus) error
	ListPaymentsForCase(ctx context.Context, caseID string) ([]Payment, error)
	// GetPaymentByID returns nil, nil when the payment does not exist.
	GetPaymentByID(ctx context.Context, id string) (*Payment, error)
	// GetPaymentBySource returns nil, nil when no payment carries source.
	GetPaymentBySource(ctx context.Context, source string) (*Payment, error)
	InsertPayment(ctx context.Context, p *Payment) error
	UpdatePayment(ctx context.Context, p *Payment) error
	DeletePayment(ctx context.Context, id string) error
}

// ImportBatch records one ingested payment statement.
type ImportBatch struct {
	ID         string    `json:"id"`
	Format     string    `json:"format"`
	BatchRef   string    `json:"batch_ref"`
	FileHash   string    `json:"file_hash"`
	LineCount  int       `json:"line_count"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	ImportedBy string    `json:"imported_by"`
	ImportedAt time.Time `json:"imported_at"`
}
