package repository

import (
	"context"
	"database/sql"

	"github.com/dossier/recouvrement/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx so that the same SQL can
// run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store hands out transaction-scoped ledgers.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithTx begins a transaction, runs fn against it and commits when fn returns
// nil. Any error from fn, or a panic, rolls the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(domain.Ledger) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageError{Op: "begin transaction", Err: err}
	}
	defer tx.Rollback()

	if err := fn(&Tx{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageError{Op: "commit", Err: err}
	}
	return nil
}

// Tx implements domain.Ledger on top of an open *sql.Tx.
type Tx struct {
	q querier
}

var _ domain.Ledger = (*Tx)(nil)

func (t *Tx) GetCaseByID(ctx context.Context, id string) (*domain.Case, error) {
	c, err := getCase(ctx, t.q, id)
	if err != nil {
		return nil, &domain.StorageError{Op: "get case", Err: err}
	}
	return c, nil
}

func (t *Tx) UpdateCaseStatus(ctx context.Context, id string, status domain.CaseStatus) error {
	res, err := t.q.ExecContext(ctx,
		"UPDATE cases SET status = ?, updated_at = ? WHERE id = ?",
		string(status), formatTimestamp(now()), id,
	)
	if err != nil {
		return &domain.StorageError{Op: "update case status", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "case", ID: id}
	}
	return nil
}

func (t *Tx) ListPaymentsForCase(ctx context.Context, caseID string) ([]domain.Payment, error) {
	ps, err := listPaymentsForCase(ctx, t.q, caseID)
	if err != nil {
		return nil, &domain.StorageError{Op: "list payments", Err: err}
	}
	return ps, nil
}

func (t *Tx) GetPaymentByID(ctx context.Context, id string) (*domain.Payment, error) {
	p, err := getPayment(ctx, t.q, id)
	if err != nil {
		return nil, &domain.StorageError{Op: "get payment", Err: err}
	}
	return p, nil
}

func (t *Tx) GetPaymentBySource(ctx context.Context, source string) (*domain.Payment, error) {
	p, err := getPaymentBySource(ctx, t.q, source)
	if err != nil {
		return nil, &domain.StorageError{Op: "get payment by source", Err: err}
	}
	return p, nil
}

func (t *Tx) InsertPayment(ctx context.Context, p *domain.Payment) error {
	ts := now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = ts
	}
	p.UpdatedAt = ts

	_, err := t.q.ExecContext(ctx,
		`INSERT INTO payments
		(`+paymentColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.CaseID, p.Amount.String(), formatDate(p.Date), string(p.Mode),
		p.Reference, p.Comment, p.RecordedBy, p.UpdatedBy, p.Source,
		formatTimestamp(p.CreatedAt), formatTimestamp(p.UpdatedAt),
	)
	if err != nil {
		return &domain.StorageError{Op: "insert payment", Err: err}
	}
	return nil
}

func (t *Tx) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	p.UpdatedAt = now()
	res, err := t.q.ExecContext(ctx,
		`UPDATE payments SET amount = ?, payment_date = ?, mode = ?, reference = ?,
		comment = ?, updated_by = ?, updated_at = ? WHERE id = ?`,
		p.Amount.String(), formatDate(p.Date), string(p.Mode), p.Reference,
		p.Comment, p.UpdatedBy, formatTimestamp(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return &domain.StorageError{Op: "update payment", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "payment", ID: p.ID}
	}
	return nil
}

func (t *Tx) DeletePayment(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return &domain.StorageError{Op: "delete payment", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "payment", ID: id}
	}
	return nil
}
