package invoice

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines invoice persistence operations.
type Repository interface {
	// NextInvoiceNumber allocates the next value of the global sequential
	// counter, formatted for display (e.g. INV-00000042).
	NextInvoiceNumber(ctx context.Context) (string, error)

	// Create persists the invoice and its line items atomically. A duplicate
	// for an occupied (customer, container) slot - or a second AUTO invoice
	// for a container - returns ErrDuplicateInvoice.
	Create(ctx context.Context, inv *Invoice) error

	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// GetActiveForCustomerContainer returns the non-CANCELLED invoice for the
	// pair, or nil when the slot is free.
	GetActiveForCustomerContainer(ctx context.Context, customerID, containerID uuid.UUID) (*Invoice, error)

	// GetActiveAutoForContainer returns the container's non-CANCELLED AUTO
	// invoice, or nil when none exists.
	GetActiveAutoForContainer(ctx context.Context, containerID uuid.UUID) (*Invoice, error)

	ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*Invoice, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrInvoiceNotFound indicates a missing invoice.
type ErrInvoiceNotFound struct {
	InvoiceID uuid.UUID
}

func (e ErrInvoiceNotFound) Error() string {
	return "invoice not found: " + e.InvoiceID.String()
}

func (e ErrInvoiceNotFound) Is(target error) bool {
	t, ok := target.(ErrInvoiceNotFound)
	if !ok {
		return false
	}
	if t.InvoiceID == uuid.Nil {
		return true
	}
	return e.InvoiceID == t.InvoiceID
}

// ErrDuplicateInvoice indicates the store's uniqueness constraint resolved a
// creation race: a non-CANCELLED invoice already occupies the slot. Callers
// treat this as the idempotent already-generated outcome, not a failure.
type ErrDuplicateInvoice struct {
	ContainerID uuid.UUID
}

func (e ErrDuplicateInvoice) Error() string {
	return "active invoice already exists for container: " + e.ContainerID.String()
}

func (e ErrDuplicateInvoice) Is(target error) bool {
	t, ok := target.(ErrDuplicateInvoice)
	if !ok {
		return false
	}
	if t.ContainerID == uuid.Nil {
		return true
	}
	return e.ContainerID == t.ContainerID
}
