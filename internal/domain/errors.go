package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failure")

	// ErrAlreadyImported is returned when a statement file was ingested before.
	ErrAlreadyImported = errors.New("statement already imported")
	ErrAlreadyApplied  = errors.New("payment already applied")
)

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// OverpaymentError is returned when a payment would take the collected total
// above the amount owed. Remaining is the balance seen when the check ran.
type OverpaymentError struct {
	CaseID    string
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment of %s exceeds remaining balance %s on case %s",
		e.Amount.StringFixed(2), e.Remaining.StringFixed(2), e.CaseID)
}

func (e *OverpaymentError) Is(target error) bool { return target == ErrValidation }

// StorageError wraps a failure of the underlying store. Nothing was persisted,
// so callers may retry the whole operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// DuplicateSourceError is returned when a payment with the same source was
// recorded before. PaymentID names the existing payment.
type DuplicateSourceError struct {
	Source    string
	PaymentID string
}

func (e *DuplicateSourceError) Error() string {
	return fmt.Sprintf("%s already applied as payment %s", e.Source, e.PaymentID)
}

func (e *DuplicateSourceError) Is(target error) bool { return target == ErrAlreadyApplied }
