package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
)

// ContainerRepository implements the container.Repository interface for PostgreSQL
type ContainerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewContainerRepository(logger *slog.Logger, db *persistence.PostgresDB) container.Repository {
	return &ContainerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *ContainerRepository) WithTx(tx pgx.Tx) container.Repository {
	return &ContainerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *ContainerRepository) Create(ctx context.Context, c *container.Container) error {
	query := `
		INSERT INTO containers (id, number, capacity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.Number,
		c.Capacity,
		c.Status,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create container", "error", err)
		return fmt.Errorf("failed to create container: %w", err)
	}

	return nil
}

func (r *ContainerRepository) GetByID(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	query := `
		SELECT id, number, capacity, status, created_at, updated_at
		FROM containers
		WHERE id = $1
	`

	var c container.Container
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Number,
		&c.Capacity,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, container.ErrContainerNotFound{ContainerID: id}
		}
		r.logger.Error("Failed to get container", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get container: %w", err)
	}

	return &c, nil
}

// LockForUpdate acquires a row lock on the container for the duration of the
// current transaction. Used to serialize capacity checks against concurrent
// shipment assignments.
func (r *ContainerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	query := `
		SELECT id, number, capacity, status, created_at, updated_at
		FROM containers
		WHERE id = $1
		FOR UPDATE
	`

	var c container.Container
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Number,
		&c.Capacity,
		&c.Status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, container.ErrContainerNotFound{ContainerID: id}
		}
		r.logger.Error("Failed to lock container", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock container: %w", err)
	}

	return &c, nil
}

func (r *ContainerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status container.Status) error {
	query := `
		UPDATE containers
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update container status", "id", id.String(), "error", err)
		return fmt.Errorf("failed to update container status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return container.ErrContainerNotFound{ContainerID: id}
	}

	return nil
}

func (r *ContainerRepository) CountShipments(ctx context.Context, id uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM shipments WHERE container_id = $1`

	var count int
	if err := r.querier.QueryRow(ctx, query, id).Scan(&count); err != nil {
		r.logger.Error("Failed to count container shipments", "id", id.String(), "error", err)
		return 0, fmt.Errorf("failed to count container shipments: %w", err)
	}

	return count, nil
}

func (r *ContainerRepository) AddExpense(ctx context.Context, e *container.Expense) error {
	query := `
		INSERT INTO container_expenses (id, container_id, type, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query,
		e.ID,
		e.ContainerID,
		e.Type,
		e.Amount,
		e.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to add container expense", "container_id", e.ContainerID.String(), "error", err)
		return fmt.Errorf("failed to add container expense: %w", err)
	}

	return nil
}

func (r *ContainerRepository) ListExpenses(ctx context.Context, containerID uuid.UUID) ([]*container.Expense, error) {
	query := `
		SELECT id, container_id, type, amount, created_at
		FROM container_expenses
		WHERE container_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, containerID)
	if err != nil {
		r.logger.Error("Failed to list container expenses", "container_id", containerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list container expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*container.Expense
	for rows.Next() {
		var e container.Expense
		if err := rows.Scan(&e.ID, &e.ContainerID, &e.Type, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan container expense: %w", err)
		}
		expenses = append(expenses, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate container expenses: %w", err)
	}

	return expenses, nil
}
