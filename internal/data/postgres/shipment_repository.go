package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
)

// ShipmentRepository implements the shipment.Repository interface for PostgreSQL
type ShipmentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewShipmentRepository(logger *slog.Logger, db *persistence.PostgresDB) shipment.Repository {
	return &ShipmentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *ShipmentRepository) WithTx(tx pgx.Tx) shipment.Repository {
	return &ShipmentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const shipmentColumns = `id, customer_id, container_id, description, vin, price, insurance_value, payment_mode, payment_status, created_at, updated_at`

func scanShipment(row pgx.Row) (*shipment.Shipment, error) {
	var s shipment.Shipment
	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.ContainerID,
		&s.Description,
		&s.VIN,
		&s.Price,
		&s.InsuranceValue,
		&s.PaymentMode,
		&s.PaymentStatus,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	query := `
		INSERT INTO shipments (id, customer_id, container_id, description, vin, price, insurance_value, payment_mode, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.CustomerID,
		s.ContainerID,
		s.Description,
		s.VIN,
		s.Price,
		s.InsuranceValue,
		s.PaymentMode,
		s.PaymentStatus,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create shipment", "error", err)
		return fmt.Errorf("failed to create shipment: %w", err)
	}

	return nil
}

func (r *ShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE id = $1
	`

	s, err := scanShipment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipment.ErrShipmentNotFound{ShipmentID: id}
		}
		r.logger.Error("Failed to get shipment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get shipment: %w", err)
	}

	return s, nil
}

// GetManyByIDs fetches the given shipments preserving the input order. A
// missing ID yields ErrShipmentNotFound for that ID.
func (r *ShipmentRepository) GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*shipment.Shipment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE id = ANY($1)
	`

	rows, err := r.querier.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to get shipments by IDs", "error", err)
		return nil, fmt.Errorf("failed to get shipments by IDs: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*shipment.Shipment, len(ids))
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shipments: %w", err)
	}

	ordered := make([]*shipment.Shipment, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return nil, shipment.ErrShipmentNotFound{ShipmentID: id}
		}
		ordered = append(ordered, s)
	}

	return ordered, nil
}

// ListByContainer returns a container's shipments in assignment order so
// downstream expense shares are deterministic.
func (r *ShipmentRepository) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*shipment.Shipment, error) {
	query := `
		SELECT ` + shipmentColumns + `
		FROM shipments
		WHERE container_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, containerID)
	if err != nil {
		r.logger.Error("Failed to list shipments by container", "container_id", containerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list shipments by container: %w", err)
	}
	defer rows.Close()

	var shipments []*shipment.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shipment: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shipments: %w", err)
	}

	return shipments, nil
}

func (r *ShipmentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status shipment.PaymentStatus) error {
	query := `
		UPDATE shipments
		SET payment_status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update shipment payment status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update shipment payment status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shipment.ErrShipmentNotFound{ShipmentID: id}
	}

	return nil
}

// AssignToContainer places the shipment into a container. The guard on
// container_id IS NULL makes reassignment an explicit error rather than a
// silent move.
func (r *ShipmentRepository) AssignToContainer(ctx context.Context, id uuid.UUID, containerID uuid.UUID) error {
	query := `
		UPDATE shipments
		SET container_id = $1, updated_at = $2
		WHERE id = $3 AND container_id IS NULL
	`

	result, err := r.querier.Exec(ctx, query, containerID, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to assign shipment to container", "id", id.String(), "container_id", containerID.String(), "error", err)
		return fmt.Errorf("failed to assign shipment to container: %w", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing shipment from one already assigned.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return shipment.ErrAlreadyAssigned{ShipmentID: id}
	}

	return nil
}
