package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of payment dates.
const DateLayout = "2006-01-02"

type PaymentMode string

const (
	ModeCash         PaymentMode = "CASH"
	ModeBankTransfer PaymentMode = "BANK_TRANSFER"
	ModeCheck        PaymentMode = "CHECK"
	ModeOrangeMoney  PaymentMode = "ORANGE_MONEY"
	ModeMTNMoney     PaymentMode = "MTN_MONEY"
	ModeMoovMoney    PaymentMode = "MOOV_MONEY"
	ModeWave         PaymentMode = "WAVE"
	ModeOther        PaymentMode = "OTHER"
)

var paymentModes = map[PaymentMode]bool{
	ModeCash:         true,
	ModeBankTransfer: true,
	ModeCheck:        true,
	ModeOrangeMoney:  true,
	ModeMTNMoney:     true,
	ModeMoovMoney:    true,
	ModeWave:         true,
	ModeOther:        true,
}

// ParsePaymentMode normalises s and checks it against the known channels.
func ParsePaymentMode(s string) (PaymentMode, error) {
	m := PaymentMode(strings.ToUpper(strings.TrimSpace(s)))
	if !paymentModes[m] {
		return "", &ValidationError{Field: "mode", Reason: "unsupported payment mode " + s}
	}
	return m, nil
}

type Payment struct {
	ID         string          `json:"id"`
	CaseID     string          `json:"case_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       time.Time       `json:"date"`
	Mode       PaymentMode     `json:"mode"`
	Reference  string          `json:"reference,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	RecordedBy string          `json:"recorded_by"`
	UpdatedBy  string          `json:"updated_by,omitempty"`
	// Source identifies the statement line a payment was imported from.
	Source     string          `json:"source,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// SumPayments adds up the amounts of ps.
func SumPayments(ps []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		total = total.Add(p.Amount)
	}
	return total
}

// SumPaymentsExcept adds up the amounts of ps, skipping the payment with id.
func SumPaymentsExcept(ps []Payment, id string) decimal.Decimal {
	total := decimal.Zero
	for _, p := range ps {
		if p.ID == id {
			continue
		}
		total = total.Add(p.Amount)
	}
	return total
}
