package container

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines container persistence operations.
type Repository interface {
	Create(ctx context.Context, c *Container) error
	GetByID(ctx context.Context, id uuid.UUID) (*Container, error)
	// LockForUpdate loads the container with a row lock held until the
	// surrounding transaction ends. Capacity checks must count shipments
	// under this lock.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Container, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	CountShipments(ctx context.Context, id uuid.UUID) (int, error)

	AddExpense(ctx context.Context, e *Expense) error
	ListExpenses(ctx context.Context, containerID uuid.UUID) ([]*Expense, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrContainerNotFound indicates an unknown container reference.
type ErrContainerNotFound struct {
	ContainerID uuid.UUID
}

func (e ErrContainerNotFound) Error() string {
	return "container not found: " + e.ContainerID.String()
}

func (e ErrContainerNotFound) Is(target error) bool {
	t, ok := target.(ErrContainerNotFound)
	if !ok {
		return false
	}
	if t.ContainerID == uuid.Nil {
		return true
	}
	return e.ContainerID == t.ContainerID
}

// ErrCapacityExceeded indicates an assignment that would overfill the
// container.
type ErrCapacityExceeded struct {
	ContainerID uuid.UUID
	Capacity    int
}

func (e ErrCapacityExceeded) Error() string {
	return "container at capacity: " + e.ContainerID.String()
}
