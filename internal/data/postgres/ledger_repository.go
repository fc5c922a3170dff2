package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
	"github.com/shopspring/decimal"
)

// LedgerRepository implements the ledger.Repository interface for
// PostgreSQL. Callers are expected to hold the customer's row lock (via
// customer.Repository.LockForUpdate) for any append or recompute sequence.
type LedgerRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls.
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const entryColumns = `id, customer_id, shipment_id, payment_id, description, kind, origin, amount, balance_after, transaction_date, seq, created_by, notes, created_at`

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.CustomerID,
		&e.ShipmentID,
		&e.PaymentID,
		&e.Description,
		&e.Kind,
		&e.Origin,
		&e.Amount,
		&e.BalanceAfter,
		&e.TransactionDate,
		&e.Seq,
		&e.CreatedBy,
		&e.Notes,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Append stores the entry and assigns its Seq from the insert. For origins
// that count toward the balance the stored balance_after is derived from the
// customer's latest entry; payment applications keep the caller-set value.
func (r *LedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	if entry.Origin.CountsTowardBalance() {
		latest, err := r.LatestBalance(ctx, entry.CustomerID)
		if err != nil {
			return err
		}
		entry.BalanceAfter = entry.Apply(latest)
	}

	query := `
		INSERT INTO ledger_entries (id, customer_id, shipment_id, payment_id, description, kind, origin, amount, balance_after, transaction_date, created_by, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING seq
	`

	err := r.querier.QueryRow(ctx, query,
		entry.ID,
		entry.CustomerID,
		entry.ShipmentID,
		entry.PaymentID,
		entry.Description,
		entry.Kind,
		entry.Origin,
		entry.Amount,
		entry.BalanceAfter,
		entry.TransactionDate,
		entry.CreatedBy,
		entry.Notes,
		entry.CreatedAt,
	).Scan(&entry.Seq)
	if err != nil {
		r.logger.Error("Failed to append ledger entry", "customer_id", entry.CustomerID.String(), "error", err)
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}

	return nil
}

// GetByID retrieves a ledger entry by its ID
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE id = $1
	`

	e, err := scanEntry(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{EntryID: id}
		}
		r.logger.Error("Failed to get ledger entry", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return e, nil
}

// ListByCustomer returns the customer's entries ordered by
// (transaction_date, seq) ascending, optionally restricted to
// transaction_date >= from.
func (r *LedgerRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE customer_id = $1
	`
	args := []interface{}{customerID}
	if from != nil {
		query += ` AND transaction_date >= $2`
		args = append(args, *from)
	}
	query += ` ORDER BY transaction_date ASC, seq ASC`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries by customer", "customer_id", customerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries by customer: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// ListByShipment returns all entries tagged to the shipment in ledger order.
func (r *LedgerRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE shipment_id = $1
		ORDER BY transaction_date ASC, seq ASC
	`

	rows, err := r.querier.Query(ctx, query, shipmentID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries by shipment", "shipment_id", shipmentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list ledger entries by shipment: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*ledger.Entry, error) {
	var entries []*ledger.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}
	return entries, nil
}

// LatestBalance returns the balance_after of the customer's latest entry in
// ledger order, or zero when the customer has no entries.
func (r *LedgerRepository) LatestBalance(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT balance_after
		FROM ledger_entries
		WHERE customer_id = $1
		ORDER BY transaction_date DESC, seq DESC
		LIMIT 1
	`

	var balance decimal.Decimal
	err := r.querier.QueryRow(ctx, query, customerID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		r.logger.Error("Failed to get latest balance", "customer_id", customerID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to get latest balance: %w", err)
	}

	return balance, nil
}

// OutstandingForShipment derives the shipment's remaining due amount as
// sum(DEBIT) - sum(CREDIT) over the entries tagged to it. Payment
// applications are CREDIT entries here, so allocated payment slices reduce
// the due.
func (r *LedgerRepository) OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(CASE WHEN kind = 'DEBIT' THEN amount ELSE -amount END), 0)
		FROM ledger_entries
		WHERE shipment_id = $1
	`

	var due decimal.Decimal
	err := r.querier.QueryRow(ctx, query, shipmentID).Scan(&due)
	if err != nil {
		r.logger.Error("Failed to compute outstanding for shipment", "shipment_id", shipmentID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to compute outstanding for shipment: %w", err)
	}

	return due, nil
}

// Delete removes a single entry. Later balances are not fixed up here; the
// caller runs recomputation in the same transaction.
func (r *LedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM ledger_entries WHERE id = $1`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete ledger entry", "id", id.String(), "error", err)
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound{EntryID: id}
	}

	return nil
}

// DeleteByPayment removes the application entries linked to a top-level
// payment, returning them so the caller can restore the shipments they had
// settled.
func (r *LedgerRepository) DeleteByPayment(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	query := `
		DELETE FROM ledger_entries
		WHERE payment_id = $1
		RETURNING ` + entryColumns

	rows, err := r.querier.Query(ctx, query, paymentID)
	if err != nil {
		r.logger.Error("Failed to delete payment applications", "payment_id", paymentID.String(), "error", err)
		return nil, fmt.Errorf("failed to delete payment applications: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

// UpdateBalances persists recomputed balance_after values. Only the balance
// column is touched.
func (r *LedgerRepository) UpdateBalances(ctx context.Context, entries []*ledger.Entry) error {
	query := `UPDATE ledger_entries SET balance_after = $1 WHERE id = $2`

	for _, e := range entries {
		result, err := r.querier.Exec(ctx, query, e.BalanceAfter, e.ID)
		if err != nil {
			r.logger.Error("Failed to update entry balance", "id", e.ID.String(), "error", err)
			return fmt.Errorf("failed to update entry balance: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ledger.ErrEntryNotFound{EntryID: e.ID}
		}
	}

	return nil
}
