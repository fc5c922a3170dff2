package ledger

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
)

var (
	ErrInvalidEntryKind   = errors.New("invalid ledger entry kind")
	ErrInvalidEntryOrigin = errors.New("invalid ledger entry origin")
	ErrEmptyDescription   = errors.New("entry description cannot be empty")
)

// EntryKind is the direction of a ledger entry. DEBIT increases the amount
// the customer owes, CREDIT decreases it.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

func (k EntryKind) IsValid() bool {
	return k == EntryKindDebit || k == EntryKindCredit
}

// EntryOrigin is the closed set of places a ledger entry can come from.
// It replaces the free-form metadata tagging the source system used, so
// reporting code can switch on a first-class field.
type EntryOrigin string

const (
	// OriginCharge is a manually recorded or shipment-intake charge.
	OriginCharge EntryOrigin = "CHARGE"
	// OriginPayment is the top-level entry for a received payment.
	OriginPayment EntryOrigin = "PAYMENT"
	// OriginPaymentApplication tags a slice of a payment to one shipment.
	// These entries mirror the top-level payment's balance and are not
	// independent steps in the running-balance fold.
	OriginPaymentApplication EntryOrigin = "PAYMENT_APPLICATION"
	// OriginExpenseShare is a charge derived from a container's shared
	// operating expenses.
	OriginExpenseShare EntryOrigin = "EXPENSE_SHARE"
)

func (o EntryOrigin) IsValid() bool {
	switch o {
	case OriginCharge, OriginPayment, OriginPaymentApplication, OriginExpenseShare:
		return true
	}
	return false
}

// CountsTowardBalance reports whether entries of this origin move the
// customer's running balance. Payment applications are bookkeeping tags on
// the shipment they settle; the top-level PAYMENT entry already carried the
// balance change.
func (o EntryOrigin) CountsTowardBalance() bool {
	return o != OriginPaymentApplication
}

// Entry is one immutable, dated financial fact about a customer, optionally
// tied to a shipment. BalanceAfter is the customer's running balance
// immediately after this entry; Seq is the insertion-order tie-breaker for
// entries sharing a transaction date.
type Entry struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	ShipmentID *uuid.UUID `json:"shipment_id,omitempty"`
	// PaymentID links a PAYMENT_APPLICATION entry back to the top-level
	// PAYMENT entry it slices. Deleting the payment deletes its
	// applications through this link.
	PaymentID       *uuid.UUID      `json:"payment_id,omitempty"`
	Description     string          `json:"description"`
	Kind            EntryKind       `json:"kind"`
	Origin          EntryOrigin     `json:"origin"`
	Amount          decimal.Decimal `json:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	TransactionDate time.Time       `json:"transaction_date"`
	Seq             int64           `json:"seq"`
	CreatedBy       string          `json:"created_by"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewEntry validates and builds a ledger entry. BalanceAfter and Seq are
// assigned by the store on append.
func NewEntry(customerID uuid.UUID, shipmentID *uuid.UUID, description string, kind EntryKind, origin EntryOrigin, amount decimal.Decimal, transactionDate time.Time, createdBy string) (*Entry, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidEntryKind
	}
	if !origin.IsValid() {
		return nil, ErrInvalidEntryOrigin
	}
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if err := money.RequirePositive(amount); err != nil {
		return nil, err
	}
	if transactionDate.IsZero() {
		transactionDate = time.Now().UTC()
	}

	return &Entry{
		ID:              uuid.New(),
		CustomerID:      customerID,
		ShipmentID:      shipmentID,
		Description:     description,
		Kind:            kind,
		Origin:          origin,
		Amount:          amount,
		TransactionDate: transactionDate,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// Apply folds this entry onto a prior running balance according to its kind.
// Callers must check CountsTowardBalance first; applying a payment
// application would double-count its parent payment.
func (e *Entry) Apply(prior decimal.Decimal) decimal.Decimal {
	if e.Kind == EntryKindDebit {
		return prior.Add(e.Amount)
	}
	return prior.Sub(e.Amount)
}
