package cases

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/domain"
)

// Store persists new cases.
type Store interface {
	Insert(ctx context.Context, c *domain.Case) error
}

type OpenCaseInput struct {
	Reference    string
	DebtorName   string
	CreditorName string
	TotalOwed    decimal.Decimal
	Currency     string
	ActorID      string
}

// DefaultCurrency is used when a case is opened without one.
const DefaultCurrency = "XOF"

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// OpenCase validates and stores a new collection case in IN_PROGRESS.
// A reference of the form REC-<year>-<id> is generated when none is given.
func (s *Service) OpenCase(ctx context.Context, in OpenCaseInput) (*domain.Case, error) {
	debtor := strings.TrimSpace(in.DebtorName)
	if debtor == "" {
		return nil, &domain.ValidationError{Field: "debtor_name", Reason: "is required"}
	}
	if !in.TotalOwed.IsPositive() {
		return nil, &domain.ValidationError{Field: "total_owed", Reason: "must be greater than zero"}
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, &domain.ValidationError{Field: "currency", Reason: "must be a 3-letter ISO code"}
	}

	id := uuid.NewString()
	ref := strings.TrimSpace(in.Reference)
	if ref == "" {
		ref = generateReference(s.now(), id)
	}

	c := &domain.Case{
		ID:           id,
		Reference:    ref,
		DebtorName:   debtor,
		CreditorName: strings.TrimSpace(in.CreditorName),
		TotalOwed:    in.TotalOwed,
		Currency:     currency,
		Status:       domain.CaseInProgress,
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, err
	}

	log.Printf("[cases] Opened case %s for %s: %s %s (by %s)",
		c.Reference, c.DebtorName, c.TotalOwed.StringFixed(2), c.Currency, in.ActorID)
	return c, nil
}

func generateReference(t time.Time, id string) string {
	short := strings.ToUpper(strings.ReplaceAll(id, "-", ""))[:8]
	return fmt.Sprintf("REC-%d-%s", t.Year(), short)
}
