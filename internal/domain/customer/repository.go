package customer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines customer persistence operations.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// LockForUpdate acquires the customer's row lock. Every ledger mutation
	// for a customer must take this lock inside its transaction before
	// reading balances.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Customer, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrCustomerNotFound indicates an unknown customer reference.
type ErrCustomerNotFound struct {
	CustomerID uuid.UUID
}

func (e ErrCustomerNotFound) Error() string {
	return "customer not found: " + e.CustomerID.String()
}

func (e ErrCustomerNotFound) Is(target error) bool {
	t, ok := target.(ErrCustomerNotFound)
	if !ok {
		return false
	}
	if t.CustomerID == uuid.Nil {
		return true
	}
	return e.CustomerID == t.CustomerID
}
