package shipment

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines shipment persistence operations.
type Repository interface {
	Create(ctx context.Context, s *Shipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Shipment, error)

	// GetManyByIDs fetches the given shipments preserving the input order.
	// Every ID must resolve; a missing one yields ErrShipmentNotFound.
	GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*Shipment, error)

	// ListByContainer returns a container's shipments in assignment order
	// (created_at, id) so expense shares are deterministic.
	ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*Shipment, error)

	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error
	AssignToContainer(ctx context.Context, id uuid.UUID, containerID uuid.UUID) error

	WithTx(tx pgx.Tx) Repository
}

// ErrShipmentNotFound indicates an unknown shipment reference.
type ErrShipmentNotFound struct {
	ShipmentID uuid.UUID
}

func (e ErrShipmentNotFound) Error() string {
	return "shipment not found: " + e.ShipmentID.String()
}

func (e ErrShipmentNotFound) Is(target error) bool {
	t, ok := target.(ErrShipmentNotFound)
	if !ok {
		return false
	}
	if t.ShipmentID == uuid.Nil {
		return true
	}
	return e.ShipmentID == t.ShipmentID
}

// ErrShipmentNotOwned indicates a shipment referenced under the wrong
// customer, e.g. a payment targeting another customer's vehicle.
type ErrShipmentNotOwned struct {
	ShipmentID uuid.UUID
	CustomerID uuid.UUID
}

func (e ErrShipmentNotOwned) Error() string {
	return "shipment " + e.ShipmentID.String() + " does not belong to customer " + e.CustomerID.String()
}

// ErrAlreadyAssigned indicates the shipment is already in a container.
type ErrAlreadyAssigned struct {
	ShipmentID uuid.UUID
}

func (e ErrAlreadyAssigned) Error() string {
	return "shipment already assigned to a container: " + e.ShipmentID.String()
}
