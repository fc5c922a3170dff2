package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository manages ledger entry persistence. Append and the range
// reads used for recomputation assume the caller holds the customer's
// serialization lock; the repository itself does not guard against
// concurrent appends for the same customer.
type Repository interface {
	// Append stores the entry and assigns its Seq. For origins that count
	// toward the balance it derives BalanceAfter from the customer's latest
	// balance at the time of the call; PAYMENT_APPLICATION entries keep the
	// BalanceAfter the allocator set on them.
	Append(ctx context.Context, entry *Entry) error

	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)

	// ListByCustomer returns the customer's entries ordered by
	// (transaction_date, seq) ascending. A non-nil from restricts the range
	// to transaction_date >= from.
	ListByCustomer(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*Entry, error)

	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*Entry, error)

	// LatestBalance returns the balance_after of the customer's latest entry,
	// or zero if the customer has no entries.
	LatestBalance(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	// OutstandingForShipment derives the shipment's due amount:
	// sum(DEBIT) - sum(CREDIT) restricted to entries tagged to the shipment.
	OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error)

	// Delete removes a single entry. It does not fix up later balances;
	// the recomputation engine is responsible for that, in the same
	// transaction.
	Delete(ctx context.Context, id uuid.UUID) error

	// DeleteByPayment removes every application entry linked to the given
	// top-level payment and returns the deleted entries so callers can
	// restore the affected shipments.
	DeleteByPayment(ctx context.Context, paymentID uuid.UUID) ([]*Entry, error)

	// UpdateBalances persists recomputed balance_after values for the given
	// entries. Non-financial fields are never touched.
	UpdateBalances(ctx context.Context, entries []*Entry) error

	WithTx(tx pgx.Tx) Repository
}

// ErrEntryNotFound indicates a missing ledger entry.
type ErrEntryNotFound struct {
	EntryID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "ledger entry not found: " + e.EntryID.String()
}

// Is matches any ErrEntryNotFound when the target carries a nil ID.
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	if t.EntryID == uuid.Nil {
		return true
	}
	return e.EntryID == t.EntryID
}
