package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dossier/recouvrement/internal/domain"
)

const caseColumns = "id, reference, debtor_name, creditor_name, total_owed, currency, status, created_at, updated_at"

type CaseRepo struct {
	db *sql.DB
}

func NewCaseRepo(db *sql.DB) *CaseRepo {
	return &CaseRepo{db: db}
}

// Insert stores a new case. A duplicate reference is reported as a
// validation error.
func (r *CaseRepo) Insert(ctx context.Context, c *domain.Case) error {
	ts := now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = ts
	}
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cases (`+caseColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.Reference, c.DebtorName, c.CreditorName, c.TotalOwed.String(),
		c.Currency, string(c.Status), formatTimestamp(c.CreatedAt), formatTimestamp(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ValidationError{Field: "reference", Reason: fmt.Sprintf("%q is already in use", c.Reference)}
		}
		return &domain.StorageError{Op: "insert case", Err: err}
	}
	return nil
}

// BulkInsert stores cases in one transaction, skipping ids that already exist.
// A blank status means IN_PROGRESS; rows with an unknown status or a
// non-positive total_owed are skipped and not counted.
func (r *CaseRepo) BulkInsert(ctx context.Context, cases []domain.Case) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO cases (`+caseColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range cases {
		c := &cases[i]
		if c.Status == "" {
			c.Status = domain.CaseInProgress
		}
		if !c.Status.Valid() || !c.TotalOwed.IsPositive() {
			continue
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now()
		}
		if c.UpdatedAt.IsZero() {
			c.UpdatedAt = c.CreatedAt
		}
		res, err := stmt.ExecContext(ctx,
			c.ID, c.Reference, c.DebtorName, c.CreditorName, c.TotalOwed.String(),
			c.Currency, string(c.Status), formatTimestamp(c.CreatedAt), formatTimestamp(c.UpdatedAt),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert case %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *CaseRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases").Scan(&count)
	return count, err
}

// GetByID returns nil, nil when the case does not exist.
func (r *CaseRepo) GetByID(ctx context.Context, id string) (*domain.Case, error) {
	return getCase(ctx, r.db, id)
}

// GetSummary returns the case with its collected total and remaining balance.
func (r *CaseRepo) GetSummary(ctx context.Context, id string) (*domain.CaseSummary, error) {
	c, err := getCase(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, &domain.NotFoundError{Entity: "case", ID: id}
	}
	totals, err := paymentTotals(ctx, r.db, []string{id})
	if err != nil {
		return nil, err
	}
	s := summarize(*c, totals[id])
	return &s, nil
}

type CaseFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns one page of cases, newest first, with their ledger summaries.
func (r *CaseRepo) List(ctx context.Context, f CaseFilter) ([]domain.CaseSummary, int, error) {
	where, args := buildCaseWhere(f)

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cases"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := "SELECT " + caseColumns + " FROM cases" + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var cases []domain.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	ids := make([]string, len(cases))
	for i, c := range cases {
		ids[i] = c.ID
	}
	totals, err := paymentTotals(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.CaseSummary, 0, len(cases))
	for _, c := range cases {
		out = append(out, summarize(c, totals[c.ID]))
	}
	return out, total, nil
}

// DashboardStats holds portfolio-wide collection figures.
type DashboardStats struct {
	Total       int             `json:"total"`
	InProgress  int             `json:"in_progress"`
	Closed      int             `json:"closed"`
	TotalOwed   decimal.Decimal `json:"total_owed"`
	Collected   decimal.Decimal `json:"collected"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// GetDashboardStats aggregates in Go: amounts are stored as exact decimal
// text and SQLite's SUM would go through floating point.
func (r *CaseRepo) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	s := &DashboardStats{TotalOwed: decimal.Zero, Collected: decimal.Zero}

	rows, err := r.db.QueryContext(ctx, "SELECT status, total_owed FROM cases")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var owed decimal.Decimal
		if err := rows.Scan(&status, &owed); err != nil {
			return nil, err
		}
		s.Total++
		switch domain.CaseStatus(status) {
		case domain.CaseClosed:
			s.Closed++
		default:
			s.InProgress++
		}
		s.TotalOwed = s.TotalOwed.Add(owed)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prow, err := r.db.QueryContext(ctx, "SELECT amount FROM payments")
	if err != nil {
		return nil, err
	}
	defer prow.Close()
	for prow.Next() {
		var amt decimal.Decimal
		if err := prow.Scan(&amt); err != nil {
			return nil, err
		}
		s.Collected = s.Collected.Add(amt)
	}
	s.Outstanding = s.TotalOwed.Sub(s.Collected)
	return s, prow.Err()
}

// --- helpers ---

type ledgerTotal struct {
	paid  decimal.Decimal
	count int
}

func summarize(c domain.Case, t ledgerTotal) domain.CaseSummary {
	return domain.CaseSummary{
		Case:             c,
		TotalPaid:        t.paid,
		RemainingBalance: c.Remaining(t.paid),
		PaymentCount:     t.count,
	}
}

func paymentTotals(ctx context.Context, q querier, caseIDs []string) (map[string]ledgerTotal, error) {
	out := make(map[string]ledgerTotal, len(caseIDs))
	if len(caseIDs) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(caseIDs)), ",")
	args := make([]any, len(caseIDs))
	for i, id := range caseIDs {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		"SELECT case_id, amount FROM payments WHERE case_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("payment totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var caseID string
		var amt decimal.Decimal
		if err := rows.Scan(&caseID, &amt); err != nil {
			return nil, err
		}
		t := out[caseID]
		t.paid = t.paid.Add(amt)
		t.count++
		out[caseID] = t
	}
	return out, rows.Err()
}

func getCase(ctx context.Context, q querier, id string) (*domain.Case, error) {
	row := q.QueryRowContext(ctx, "SELECT "+caseColumns+" FROM cases WHERE id = ?", id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func buildCaseWhere(f CaseFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Search != "" {
		clauses = append(clauses, "(reference LIKE ? OR debtor_name LIKE ? OR creditor_name LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*domain.Case, error) {
	var c domain.Case
	var status, createdAt, updatedAt string

	err := row.Scan(
		&c.ID, &c.Reference, &c.DebtorName, &c.CreditorName, &c.TotalOwed,
		&c.Currency, &status, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CaseStatus(status)
	c.CreatedAt = parseTimestamp(createdAt)
	c.UpdatedAt = parseTimestamp(updatedAt)
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
