package reconciliation

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dossier/recouvrement/internal/domain"
)

// Receipt describes the ledger position of a case after a payment was
// recorded, edited or removed.
type Receipt struct {
	Payment          domain.Payment    `json:"payment"`
	CaseID           string            `json:"case_id"`
	CaseReference    string            `json:"case_reference"`
	TotalOwed        decimal.Decimal   `json:"total_owed"`
	PreviouslyPaid   decimal.Decimal   `json:"previously_paid"`
	TotalPaid        decimal.Decimal   `json:"total_paid"`
	RemainingBalance decimal.Decimal   `json:"remaining_balance"`
	CaseStatus       domain.CaseStatus `json:"case_status"`
	// Closed and Reopened report a status transition caused by this operation.
	Closed   bool `json:"closed"`
	Reopened bool `json:"reopened"`
}

type RecordPaymentInput struct {
	CaseID    string
	Amount    decimal.Decimal
	Date      time.Time
	Mode      domain.PaymentMode
	Reference string
	Comment   string
	ActorID   string
	// Source, when set, must be unique across payments. A second payment
	// with the same source is refused with a DuplicateSourceError.
	Source string
}

type UpdatePaymentInput struct {
	PaymentID string
	Amount    decimal.Decimal
	Date      time.Time
	Mode      domain.PaymentMode
	Reference string
	Comment   string
	ActorID   string
}

// Service applies payments to collection cases. Every operation runs as one
// transaction: the balance check and the writes it guards commit together.
type Service struct {
	tx    Transactor
	newID func() string
	now   func() time.Time
}

func NewService(tx Transactor) *Service {
	return &Service{
		tx:    tx,
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// RecordPayment accepts a payment against a case, rejects it when it exceeds
// the remaining balance, and closes the case once it is fully paid.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*Receipt, error) {
	mode, date, err := s.validate(in.Amount, in.Date, in.Mode, in.ActorID)
	if err != nil {
		return nil, err
	}

	var rcpt *Receipt
	err = s.tx.WithTx(ctx, func(l domain.Ledger) error {
		c, err := l.GetCaseByID(ctx, in.CaseID)
		if err != nil {
			return err
		}
		if c == nil {
			return &domain.NotFoundError{Entity: "case", ID: in.CaseID}
		}

		if in.Source != "" {
			prior, err := l.GetPaymentBySource(ctx, in.Source)
			if err != nil {
				return err
			}
			if prior != nil {
				return &domain.DuplicateSourceError{Source: in.Source, PaymentID: prior.ID}
			}
		}

		existing, err := l.ListPaymentsForCase(ctx, c.ID)
		if err != nil {
			return err
		}
		alreadyPaid := domain.SumPayments(existing)
		remaining := c.Remaining(alreadyPaid)

		if in.Amount.GreaterThan(remaining) {
			return &domain.OverpaymentError{CaseID: c.ID, Amount: in.Amount, Remaining: remaining}
		}

		p := &domain.Payment{
			ID:         s.newID(),
			CaseID:     c.ID,
			Amount:     in.Amount,
			Date:       date,
			Mode:       mode,
			Reference:  strings.TrimSpace(in.Reference),
			Comment:    strings.TrimSpace(in.Comment),
			RecordedBy: in.ActorID,
			Source:     in.Source,
		}
		if err := l.InsertPayment(ctx, p); err != nil {
			return err
		}

		rcpt, err = s.settle(ctx, l, c, *p, alreadyPaid, alreadyPaid.Add(in.Amount))
		return err
	})
	if err != nil {
		logRejection("record", in.CaseID, err)
		return nil, err
	}

	log.Printf("[reconciliation] Accepted payment %s of %s on case %s by %s (remaining=%s)",
		rcpt.Payment.ID, rcpt.Payment.Amount.StringFixed(2), rcpt.CaseReference,
		in.ActorID, rcpt.RemainingBalance.StringFixed(2))
	logTransition(rcpt)
	return rcpt, nil
}

// UpdatePayment rewrites an existing payment. The new amount is checked
// against the balance left by the case's other payments, and the case
// status is recomputed, so lowering a settling payment reopens the case.
func (s *Service) UpdatePayment(ctx context.Context, in UpdatePaymentInput) (*Receipt, error) {
	mode, date, err := s.validate(in.Amount, in.Date, in.Mode, in.ActorID)
	if err != nil {
		return nil, err
	}

	var rcpt *Receipt
	err = s.tx.WithTx(ctx, func(l domain.Ledger) error {
		p, c, payments, err := loadPayment(ctx, l, in.PaymentID)
		if err != nil {
			return err
		}

		others := domain.SumPaymentsExcept(payments, p.ID)
		remaining := c.Remaining(others)
		if in.Amount.GreaterThan(remaining) {
			return &domain.OverpaymentError{CaseID: c.ID, Amount: in.Amount, Remaining: remaining}
		}

		p.Amount = in.Amount
		p.Date = date
		p.Mode = mode
		p.Reference = strings.TrimSpace(in.Reference)
		p.Comment = strings.TrimSpace(in.Comment)
		p.UpdatedBy = in.ActorID
		if err := l.UpdatePayment(ctx, p); err != nil {
			return err
		}

		rcpt, err = s.settle(ctx, l, c, *p, others, others.Add(in.Amount))
		return err
	})
	if err != nil {
		logRejection("update", in.PaymentID, err)
		return nil, err
	}

	log.Printf("[reconciliation] Updated payment %s on case %s to %s by %s (remaining=%s)",
		rcpt.Payment.ID, rcpt.CaseReference, rcpt.Payment.Amount.StringFixed(2),
		in.ActorID, rcpt.RemainingBalance.StringFixed(2))
	logTransition(rcpt)
	return rcpt, nil
}

// DeletePayment removes a payment and recomputes the case status. The
// returned receipt carries the removed payment.
func (s *Service) DeletePayment(ctx context.Context, paymentID, actorID string) (*Receipt, error) {
	if actorID == "" {
		return nil, &domain.ValidationError{Field: "actor", Reason: "is required"}
	}

	var rcpt *Receipt
	err := s.tx.WithTx(ctx, func(l domain.Ledger) error {
		p, c, payments, err := loadPayment(ctx, l, paymentID)
		if err != nil {
			return err
		}

		if err := l.DeletePayment(ctx, p.ID); err != nil {
			return err
		}

		others := domain.SumPaymentsExcept(payments, p.ID)
		rcpt, err = s.settle(ctx, l, c, *p, domain.SumPayments(payments), others)
		return err
	})
	if err != nil {
		logRejection("delete", paymentID, err)
		return nil, err
	}

	log.Printf("[reconciliation] Deleted payment %s of %s on case %s by %s (remaining=%s)",
		rcpt.Payment.ID, rcpt.Payment.Amount.StringFixed(2), rcpt.CaseReference,
		actorID, rcpt.RemainingBalance.StringFixed(2))
	logTransition(rcpt)
	return rcpt, nil
}

// settle brings the case status in line with totalPaid and builds the receipt.
func (s *Service) settle(
	ctx context.Context,
	l domain.Ledger,
	c *domain.Case,
	p domain.Payment,
	previouslyPaid, totalPaid decimal.Decimal,
) (*Receipt, error) {
	status := c.StatusFor(totalPaid)
	if status != c.Status {
		if err := l.UpdateCaseStatus(ctx, c.ID, status); err != nil {
			return nil, err
		}
	}

	return &Receipt{
		Payment:          p,
		CaseID:           c.ID,
		CaseReference:    c.Reference,
		TotalOwed:        c.TotalOwed,
		PreviouslyPaid:   previouslyPaid,
		TotalPaid:        totalPaid,
		RemainingBalance: c.Remaining(totalPaid),
		CaseStatus:       status,
		Closed:           status == domain.CaseClosed && c.Status != domain.CaseClosed,
		Reopened:         status == domain.CaseInProgress && c.Status == domain.CaseClosed,
	}, nil
}

func (s *Service) validate(
	amount decimal.Decimal,
	date time.Time,
	mode domain.PaymentMode,
	actorID string,
) (domain.PaymentMode, time.Time, error) {
	if !amount.IsPositive() {
		return "", time.Time{}, &domain.ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if actorID == "" {
		return "", time.Time{}, &domain.ValidationError{Field: "actor", Reason: "is required"}
	}
	m, err := domain.ParsePaymentMode(string(mode))
	if err != nil {
		return "", time.Time{}, err
	}
	if date.IsZero() {
		date = s.now()
	}
	y, mo, d := date.Date()
	return m, time.Date(y, mo, d, 0, 0, 0, 0, time.UTC), nil
}

func loadPayment(ctx context.Context, l domain.Ledger, id string) (*domain.Payment, *domain.Case, []domain.Payment, error) {
	p, err := l.GetPaymentByID(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	if p == nil {
		return nil, nil, nil, &domain.NotFoundError{Entity: "payment", ID: id}
	}

	c, err := l.GetCaseByID(ctx, p.CaseID)
	if err != nil {
		return nil, nil, nil, err
	}
	if c == nil {
		return nil, nil, nil, &domain.NotFoundError{Entity: "case", ID: p.CaseID}
	}

	payments, err := l.ListPaymentsForCase(ctx, c.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return p, c, payments, nil
}

func logRejection(op, id string, err error) {
	log.Printf("[reconciliation] Rejected %s on %s: %v", op, id, err)
}

func logTransition(r *Receipt) {
	switch {
	case r.Closed:
		log.Printf("[reconciliation] Case %s fully paid (%s), status CLOSED",
			r.CaseReference, r.TotalPaid.StringFixed(2))
	case r.Reopened:
		log.Printf("[reconciliation] Case %s reopened, %s outstanding",
			r.CaseReference, r.RemainingBalance.StringFixed(2))
	}
}
