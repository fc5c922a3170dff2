// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the billing ledger.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
)

// CustomerRepository implements the customer.Repository interface for PostgreSQL
type CustomerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewCustomerRepository(logger *slog.Logger, db *persistence.PostgresDB) customer.Repository {
	return &CustomerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *CustomerRepository) WithTx(tx pgx.Tx) customer.Repository {
	return &CustomerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Email,
		c.Phone,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create customer", "error", err)
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM customers
		WHERE id = $1
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to get customer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}

	return &c, nil
}

// LockForUpdate obtains a pessimistic lock on the customer row and returns its
// current state. Ledger writes take this lock inside their transaction so
// balance reads and appends for the same customer cannot interleave.
func (r *CustomerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	query := `
		SELECT id, name, email, phone, created_at, updated_at
		FROM customers
		WHERE id = $1
		FOR UPDATE
	`

	var c customer.Customer
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrCustomerNotFound{CustomerID: id}
		}
		r.logger.Error("Failed to lock customer for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock customer for update: %w", err)
	}

	return &c, nil
}
