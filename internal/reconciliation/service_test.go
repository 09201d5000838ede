package reconciliation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dossier/recouvrement/internal/domain"
	"github.com/dossier/recouvrement/internal/reconciliation"
	mock_reconciliation "github.com/dossier/recouvrement/internal/reconciliation/mocks"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// runInline makes the mock transactor hand the ledger straight to fn.
func runInline(tx *mock_reconciliation.MockTransactor, ledger domain.Ledger, txErr error) {
	tx.EXPECT().WithTx(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(domain.Ledger) error) error {
			if txErr != nil {
				return txErr
			}
			return fn(ledger)
		},
	)
}

func newCase(owed int64, status domain.CaseStatus) *domain.Case {
	return &domain.Case{
		ID:        "case-1",
		Reference: "REC-2024-0001",
		TotalOwed: dec(owed),
		Currency:  "XOF",
		Status:    status,
	}
}

func TestService_RecordPayment(t *testing.T) {
	paymentDate := time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		caseID     string
		theCase    *domain.Case
		existing   []domain.Payment
		amount     int64
		wantStatus domain.CaseStatus
		wantRemain int64
		wantClosed bool
		wantErr    error
		wantRemErr int64
	}{
		{
			name:       "partial payment keeps case open",
			caseID:     "case-1",
			theCase:    newCase(100000, domain.CaseInProgress),
			amount:     40000,
			wantStatus: domain.CaseInProgress,
			wantRemain: 60000,
		},
		{
			name:       "payment equal to remaining balance closes case",
			caseID:     "case-1",
			theCase:    newCase(100000, domain.CaseInProgress),
			existing:   []domain.Payment{{ID: "p0", Amount: dec(40000)}},
			amount:     60000,
			wantStatus: domain.CaseClosed,
			wantRemain: 0,
			wantClosed: true,
		},
		{
			name:       "overpayment is rejected with remaining balance",
			caseID:     "case-1",
			theCase:    newCase(100000, domain.CaseInProgress),
			existing:   []domain.Payment{{ID: "p0", Amount: dec(50000)}, {ID: "p1", Amount: dec(40000)}},
			amount:     15000,
			wantErr:    domain.ErrValidation,
			wantRemErr: 10000,
		},
		{
			name:    "unknown case",
			caseID:  "does-not-exist",
			amount:  1000,
			wantErr: domain.ErrNotFound,
		},
		{
			name:       "single payment settling whole debt",
			caseID:     "case-1",
			theCase:    newCase(50000, domain.CaseInProgress),
			amount:     50000,
			wantStatus: domain.CaseClosed,
			wantRemain: 0,
			wantClosed: true,
		},
		{
			name:       "fully paid case accepts nothing more",
			caseID:     "case-1",
			theCase:    newCase(50000, domain.CaseClosed),
			existing:   []domain.Payment{{ID: "p0", Amount: dec(50000)}},
			amount:     1,
			wantErr:    domain.ErrValidation,
			wantRemErr: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			tx := mock_reconciliation.NewMockTransactor(ctrl)
			ledger := mock_reconciliation.NewMockLedger(ctrl)
			runInline(tx, ledger, nil)

			ledger.EXPECT().GetCaseByID(gomock.Any(), tt.caseID).Return(tt.theCase, nil)
			if tt.theCase != nil {
				ledger.EXPECT().ListPaymentsForCase(gomock.Any(), tt.theCase.ID).Return(tt.existing, nil)
			}
			if tt.wantErr == nil {
				ledger.EXPECT().InsertPayment(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, p *domain.Payment) error {
						assert.NotEmpty(t, p.ID)
						assert.Equal(t, tt.caseID, p.CaseID)
						assert.Equal(t, "agent-7", p.RecordedBy)
						assert.Equal(t, domain.ModeOrangeMoney, p.Mode)
						assert.Equal(t, paymentDate, p.Date)
						return nil
					},
				)
				if tt.wantClosed {
					ledger.EXPECT().UpdateCaseStatus(gomock.Any(), tt.caseID, domain.CaseClosed).Return(nil)
				}
			}

			svc := reconciliation.NewService(tx)
			got, err := svc.RecordPayment(context.Background(), reconciliation.RecordPaymentInput{
				CaseID:    tt.caseID,
				Amount:    dec(tt.amount),
				Date:      paymentDate,
				Mode:      "orange_money",
				Reference: " OM-123 ",
				ActorID:   "agent-7",
			})

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				var over *domain.OverpaymentError
				if errors.As(err, &over) {
					assert.True(t, over.Remaining.Equal(dec(tt.wantRemErr)), "remaining %s", over.Remaining)
					assert.True(t, over.Amount.Equal(dec(tt.amount)))
				}
				if errors.Is(err, domain.ErrNotFound) {
					assert.EqualError(t, err, "case does-not-exist not found")
				}
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.CaseStatus)
			assert.Equal(t, tt.wantClosed, got.Closed)
			assert.True(t, got.RemainingBalance.Equal(dec(tt.wantRemain)), "remaining %s", got.RemainingBalance)
			assert.Equal(t, "REC-2024-0001", got.CaseReference)
			assert.Equal(t, "OM-123", got.Payment.Reference)
			assert.True(t, got.Payment.Amount.Equal(dec(tt.amount)))
		})
	}
}

func TestService_RecordPayment_Source(t *testing.T) {
	in := reconciliation.RecordPaymentInput{
		CaseID: "case-1", Amount: dec(40000), Mode: domain.ModeCash, ActorID: "agent-7",
		Source: "import:abc:2",
	}

	t.Run("new source is stored on the payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(newCase(100000, domain.CaseInProgress), nil)
		ledger.EXPECT().GetPaymentBySource(gomock.Any(), "import:abc:2").Return(nil, nil)
		ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(nil, nil)
		ledger.EXPECT().InsertPayment(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *domain.Payment) error {
				assert.Equal(t, "import:abc:2", p.Source)
				return nil
			},
		)

		got, err := reconciliation.NewService(tx).RecordPayment(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, "import:abc:2", got.Payment.Source)
	})

	t.Run("known source is refused before the balance check", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(newCase(100000, domain.CaseInProgress), nil)
		ledger.EXPECT().GetPaymentBySource(gomock.Any(), "import:abc:2").Return(&domain.Payment{ID: "p-old"}, nil)

		_, err := reconciliation.NewService(tx).RecordPayment(context.Background(), in)
		require.ErrorIs(t, err, domain.ErrAlreadyApplied)
		var dup *domain.DuplicateSourceError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, "p-old", dup.PaymentID)
	})
}

func TestService_RecordPayment_InvalidInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No transaction may start for rejected input.
	svc := reconciliation.NewService(mock_reconciliation.NewMockTransactor(ctrl))
	ctx := context.Background()

	tests := []struct {
		name  string
		input reconciliation.RecordPaymentInput
		field string
	}{
		{"zero amount", reconciliation.RecordPaymentInput{CaseID: "c", Amount: dec(0), Mode: domain.ModeCash, ActorID: "a"}, "amount"},
		{"negative amount", reconciliation.RecordPaymentInput{CaseID: "c", Amount: dec(-5), Mode: domain.ModeCash, ActorID: "a"}, "amount"},
		{"missing actor", reconciliation.RecordPaymentInput{CaseID: "c", Amount: dec(5), Mode: domain.ModeCash}, "actor"},
		{"unknown mode", reconciliation.RecordPaymentInput{CaseID: "c", Amount: dec(5), Mode: "BITCOIN", ActorID: "a"}, "mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, tt.input)
			require.Error(t, err)
			var ve *domain.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestService_RecordPayment_StorageFailure(t *testing.T) {
	t.Run("insert fails", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		storageErr := &domain.StorageError{Op: "insert payment", Err: errors.New("disk I/O error")}
		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(newCase(1000, domain.CaseInProgress), nil)
		ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(nil, nil)
		ledger.EXPECT().InsertPayment(gomock.Any(), gomock.Any()).Return(storageErr)

		_, err := reconciliation.NewService(tx).RecordPayment(context.Background(), reconciliation.RecordPaymentInput{
			CaseID: "case-1", Amount: dec(1000), Mode: domain.ModeCash, ActorID: "a",
		})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("status update fails after insert", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		storageErr := &domain.StorageError{Op: "update case status", Err: errors.New("database is locked")}
		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(newCase(1000, domain.CaseInProgress), nil)
		ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(nil, nil)
		ledger.EXPECT().InsertPayment(gomock.Any(), gomock.Any()).Return(nil)
		ledger.EXPECT().UpdateCaseStatus(gomock.Any(), "case-1", domain.CaseClosed).Return(storageErr)

		got, err := reconciliation.NewService(tx).RecordPayment(context.Background(), reconciliation.RecordPaymentInput{
			CaseID: "case-1", Amount: dec(1000), Mode: domain.ModeCash, ActorID: "a",
		})
		assert.ErrorIs(t, err, domain.ErrStorage)
		assert.Nil(t, got)
	})

	t.Run("transaction cannot begin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		runInline(tx, nil, &domain.StorageError{Op: "begin transaction", Err: errors.New("closed")})

		_, err := reconciliation.NewService(tx).RecordPayment(context.Background(), reconciliation.RecordPaymentInput{
			CaseID: "case-1", Amount: dec(1), Mode: domain.ModeCash, ActorID: "a",
		})
		assert.ErrorIs(t, err, domain.ErrStorage)
	})
}

func TestService_UpdatePayment(t *testing.T) {
	closedCase := func() *domain.Case { return newCase(100000, domain.CaseClosed) }
	payments := []domain.Payment{
		{ID: "p1", CaseID: "case-1", Amount: dec(40000)},
		{ID: "p2", CaseID: "case-1", Amount: dec(60000), RecordedBy: "agent-1"},
	}

	t.Run("lowering the settling payment reopens the case", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		p2 := payments[1]
		ledger.EXPECT().GetPaymentByID(gomock.Any(), "p2").Return(&p2, nil)
		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(closedCase(), nil)
		ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(payments, nil)
		ledger.EXPECT().UpdatePayment(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, p *domain.Payment) error {
				assert.True(t, p.Amount.Equal(dec(50000)))
				assert.Equal(t, "agent-1", p.RecordedBy)
				assert.Equal(t, "supervisor", p.UpdatedBy)
				return nil
			},
		)
		ledger.EXPECT().UpdateCaseStatus(gomock.Any(), "case-1", domain.CaseInProgress).Return(nil)

		got, err := reconciliation.NewService(tx).UpdatePayment(context.Background(), reconciliation.UpdatePaymentInput{
			PaymentID: "p2", Amount: dec(50000), Mode: domain.ModeBankTransfer, ActorID: "supervisor",
		})
		require.NoError(t, err)
		assert.True(t, got.Reopened)
		assert.Equal(t, domain.CaseInProgress, got.CaseStatus)
		assert.True(t, got.RemainingBalance.Equal(dec(10000)))
	})

	t.Run("raising beyond the balance left by other payments is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)

		p1 := payments[0]
		ledger.EXPECT().GetPaymentByID(gomock.Any(), "p1").Return(&p1, nil)
		ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(closedCase(), nil)
		ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(payments, nil)

		_, err := reconciliation.NewService(tx).UpdatePayment(context.Background(), reconciliation.UpdatePaymentInput{
			PaymentID: "p1", Amount: dec(40001), Mode: domain.ModeCash, ActorID: "supervisor",
		})
		var over *domain.OverpaymentError
		require.ErrorAs(t, err, &over)
		assert.True(t, over.Remaining.Equal(dec(40000)))
	})

	t.Run("unknown payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		tx := mock_reconciliation.NewMockTransactor(ctrl)
		ledger := mock_reconciliation.NewMockLedger(ctrl)
		runInline(tx, ledger, nil)
		ledger.EXPECT().GetPaymentByID(gomock.Any(), "ghost").Return(nil, nil)

		_, err := reconciliation.NewService(tx).UpdatePayment(context.Background(), reconciliation.UpdatePaymentInput{
			PaymentID: "ghost", Amount: dec(1), Mode: domain.ModeCash, ActorID: "a",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.EqualError(t, err, "payment ghost not found")
	})
}

func TestService_DeletePayment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tx := mock_reconciliation.NewMockTransactor(ctrl)
	ledger := mock_reconciliation.NewMockLedger(ctrl)
	runInline(tx, ledger, nil)

	payments := []domain.Payment{
		{ID: "p1", CaseID: "case-1", Amount: dec(50000)},
	}
	p1 := payments[0]
	ledger.EXPECT().GetPaymentByID(gomock.Any(), "p1").Return(&p1, nil)
	ledger.EXPECT().GetCaseByID(gomock.Any(), "case-1").Return(newCase(50000, domain.CaseClosed), nil)
	ledger.EXPECT().ListPaymentsForCase(gomock.Any(), "case-1").Return(payments, nil)
	ledger.EXPECT().DeletePayment(gomock.Any(), "p1").Return(nil)
	ledger.EXPECT().UpdateCaseStatus(gomock.Any(), "case-1", domain.CaseInProgress).Return(nil)

	got, err := reconciliation.NewService(tx).DeletePayment(context.Background(), "p1", "supervisor")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.Payment.ID)
	assert.True(t, got.Reopened)
	assert.True(t, got.TotalPaid.IsZero())
	assert.True(t, got.RemainingBalance.Equal(dec(50000)))
}
