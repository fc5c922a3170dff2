package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
)

// uniqueViolation is the PostgreSQL error code for unique constraint breaches.
const uniqueViolation = "23505"

// InvoiceRepository implements the invoice.Repository interface for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// NextInvoiceNumber allocates the next value of the global invoice counter.
// Sequence values survive rollbacks, so gaps are possible; ordering is not.
func (r *InvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n int64
	err := r.querier.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n)
	if err != nil {
		r.logger.Error("Failed to allocate invoice number", "error", err)
		return "", fmt.Errorf("failed to allocate invoice number: %w", err)
	}

	return fmt.Sprintf("INV-%08d", n), nil
}

// Create persists the invoice and its line items. The partial unique indexes
// on (customer_id, container_id) and on AUTO-per-container surface as
// ErrDuplicateInvoice, which callers treat as the idempotent outcome.
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	invoiceQuery := `
		INSERT INTO invoices (id, invoice_number, customer_id, container_id, status, origin, subtotal, discount, tax, total, due_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.querier.Exec(ctx, invoiceQuery,
		inv.ID,
		inv.InvoiceNumber,
		inv.CustomerID,
		inv.ContainerID,
		inv.Status,
		inv.Origin,
		inv.Subtotal,
		inv.Discount,
		inv.Tax,
		inv.Total,
		inv.DueDate,
		inv.Notes,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return invoice.ErrDuplicateInvoice{ContainerID: inv.ContainerID}
		}
		r.logger.Error("Failed to create invoice", "container_id", inv.ContainerID.String(), "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	lineQuery := `
		INSERT INTO invoice_line_items (id, invoice_id, type, description, quantity, unit_price, amount, shipment_id, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for _, line := range inv.Lines {
		line.InvoiceID = inv.ID
		_, err := r.querier.Exec(ctx, lineQuery,
			line.ID,
			line.InvoiceID,
			line.Type,
			line.Description,
			line.Quantity,
			line.UnitPrice,
			line.Amount,
			line.ShipmentID,
			line.Position,
		)
		if err != nil {
			r.logger.Error("Failed to create invoice line item", "invoice_id", inv.ID.String(), "error", err)
			return fmt.Errorf("failed to create invoice line item: %w", err)
		}
	}

	return nil
}

const invoiceColumns = `id, invoice_number, customer_id, container_id, status, origin, subtotal, discount, tax, total, due_date, notes, created_at, updated_at`

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.CustomerID,
		&inv.ContainerID,
		&inv.Status,
		&inv.Origin,
		&inv.Subtotal,
		&inv.Discount,
		&inv.Tax,
		&inv.Total,
		&inv.DueDate,
		&inv.Notes,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to get invoice", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// GetActiveForCustomerContainer returns the non-CANCELLED invoice occupying
// the (customer, container) slot, or nil when the slot is free.
func (r *InvoiceRepository) GetActiveForCustomerContainer(ctx context.Context, customerID, containerID uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE customer_id = $1 AND container_id = $2 AND status <> 'CANCELLED'
	`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, customerID, containerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Slot is free
		}
		r.logger.Error("Failed to get active invoice for customer and container", "customer_id", customerID.String(), "container_id", containerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active invoice for customer and container: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// GetActiveAutoForContainer returns the container's non-CANCELLED AUTO
// invoice, or nil when none exists.
func (r *InvoiceRepository) GetActiveAutoForContainer(ctx context.Context, containerID uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE container_id = $1 AND origin = 'AUTO' AND status <> 'CANCELLED'
	`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, containerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get active auto invoice for container", "container_id", containerID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active auto invoice for container: %w", err)
	}

	if err := r.loadLines(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

func (r *InvoiceRepository) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE container_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, containerID)
	if err != nil {
		r.logger.Error("Failed to list invoices by container", "container_id", containerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list invoices by container: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}

	for _, inv := range invoices {
		if err := r.loadLines(ctx, inv); err != nil {
			return nil, err
		}
	}

	return invoices, nil
}

func (r *InvoiceRepository) loadLines(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		SELECT id, invoice_id, type, description, quantity, unit_price, amount, shipment_id, position
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY position ASC
	`

	rows, err := r.querier.Query(ctx, query, inv.ID)
	if err != nil {
		r.logger.Error("Failed to load invoice line items", "invoice_id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to load invoice line items: %w", err)
	}
	defer rows.Close()

	var lines []*invoice.LineItem
	for rows.Next() {
		var line invoice.LineItem
		err := rows.Scan(
			&line.ID,
			&line.InvoiceID,
			&line.Type,
			&line.Description,
			&line.Quantity,
			&line.UnitPrice,
			&line.Amount,
			&line.ShipmentID,
			&line.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to scan invoice line item: %w", err)
		}
		lines = append(lines, &line)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate invoice line items: %w", err)
	}

	inv.Lines = lines
	return nil
}
