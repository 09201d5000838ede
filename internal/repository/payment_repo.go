package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/domain"
)

const paymentColumns = "id, case_id, amount, payment_date, mode, reference, comment, recorded_by, updated_by, source, created_at, updated_at"

// PaymentRepo serves read-only payment queries outside a ledger transaction.
type PaymentRepo struct {
	db *sql.DB
}

func NewPaymentRepo(db *sql.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

// ListForCase returns the payments of a case, oldest first.
func (r *PaymentRepo) ListForCase(ctx context.Context, caseID string) ([]domain.Payment, error) {
	return listPaymentsForCase(ctx, r.db, caseID)
}

// GetByID returns nil, nil when the payment does not exist.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return getPayment(ctx, r.db, id)
}

type ModeVolume struct {
	Mode      string          `json:"mode"`
	Count     int             `json:"count"`
	Collected decimal.Decimal `json:"collected"`
}

// GetVolumeByMode returns the collected amount per payment channel, largest first.
func (r *PaymentRepo) GetVolumeByMode(ctx context.Context) ([]ModeVolume, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT mode, amount FROM payments")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byMode := make(map[string]*ModeVolume)
	for rows.Next() {
		var mode string
		var amt decimal.Decimal
		if err := rows.Scan(&mode, &amt); err != nil {
			return nil, err
		}
		v, ok := byMode[mode]
		if !ok {
			v = &ModeVolume{Mode: mode, Collected: decimal.Zero}
			byMode[mode] = v
		}
		v.Count++
		v.Collected = v.Collected.Add(amt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vols := make([]ModeVolume, 0, len(byMode))
	for _, v := range byMode {
		vols = append(vols, *v)
	}
	sort.Slice(vols, func(i, j int) bool {
		if c := vols[i].Collected.Cmp(vols[j].Collected); c != 0 {
			return c > 0
		}
		return vols[i].Mode < vols[j].Mode
	})
	return vols, nil
}

// --- helpers ---

func listPaymentsForCase(ctx context.Context, q querier, caseID string) ([]domain.Payment, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE case_id = ? ORDER BY payment_date, created_at, id",
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func getPayment(ctx context.Context, q querier, id string) (*domain.Payment, error) {
	row := q.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func getPaymentBySource(ctx context.Context, q querier, source string) (*domain.Payment, error) {
	row := q.QueryRowContext(ctx, "SELECT "+paymentColumns+" FROM payments WHERE source = ?", source)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var mode, date, createdAt, updatedAt string

	err := row.Scan(
		&p.ID, &p.CaseID, &p.Amount, &date, &mode,
		&p.Reference, &p.Comment, &p.RecordedBy, &p.UpdatedBy, &p.Source, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Mode = domain.PaymentMode(mode)
	p.Date = parseDate(date)
	p.CreatedAt = parseTimestamp(createdAt)
	p.UpdatedAt = parseTimestamp(updatedAt)
	return &p, nil
}
