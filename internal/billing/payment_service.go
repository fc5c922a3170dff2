package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	db           TxRunner
	customerRepo customer.Repository
	shipmentRepo shipment.Repository
	ledgerRepo   ledger.Repository
	auditRepo    audit.Repository // optional, best-effort trail
	logger       *slog.Logger
}

func NewPaymentService(
	db TxRunner,
	customerRepo customer.Repository,
	shipmentRepo shipment.Repository,
	ledgerRepo ledger.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) PaymentService {
	return &PaymentServiceImpl{
		db:           db,
		customerRepo: customerRepo,
		shipmentRepo: shipmentRepo,
		ledgerRepo:   ledgerRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

// RecordPayment applies one lump payment against the customer's shipments in
// the caller-supplied order. The allocator is order-preserving: it does not
// re-sort, so callers control the settlement policy (typically oldest-due
// first). Any unapplied remainder is returned, never dropped.
func (s *PaymentServiceImpl) RecordPayment(ctx context.Context, input *PaymentInput) (*PaymentResult, error) {
	description := "Payment received"
	topEntry, err := ledger.NewEntry(input.CustomerID, nil, description, ledger.EntryKindCredit, ledger.OriginPayment, input.Amount, input.TransactionDate, input.CreatedBy)
	if err != nil {
		return nil, err
	}
	topEntry.Notes = input.Notes

	result := &PaymentResult{TopEntry: topEntry}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		customerRepoTx := s.customerRepo.WithTx(tx)
		shipmentRepoTx := s.shipmentRepo.WithTx(tx)
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		if _, err := customerRepoTx.LockForUpdate(ctx, input.CustomerID); err != nil {
			return err
		}

		targets, err := shipmentRepoTx.GetManyByIDs(ctx, input.ShipmentIDs)
		if err != nil {
			return err
		}
		for _, sh := range targets {
			if sh.CustomerID != input.CustomerID {
				return shipment.ErrShipmentNotOwned{ShipmentID: sh.ID, CustomerID: input.CustomerID}
			}
		}

		// Detect out-of-order insertion before appending, so the refold can
		// run once all entries are in place.
		later, err := ledgerRepoTx.ListByCustomer(ctx, input.CustomerID, &topEntry.TransactionDate)
		if err != nil {
			return err
		}

		// The single top-level entry carries the full balance change.
		if err := ledgerRepoTx.Append(ctx, topEntry); err != nil {
			return err
		}

		remaining := input.Amount
		for _, sh := range targets {
			if remaining.IsZero() {
				break // Later shipments in the list stay untouched.
			}

			due, err := ledgerRepoTx.OutstandingForShipment(ctx, sh.ID)
			if err != nil {
				return err
			}
			if !due.IsPositive() {
				continue // Nothing owed on this shipment.
			}

			applied := decimal.Min(remaining, due)

			application, err := ledger.NewEntry(input.CustomerID, &sh.ID, "Payment applied to "+sh.Description, ledger.EntryKindCredit, ledger.OriginPaymentApplication, applied, topEntry.TransactionDate, input.CreatedBy)
			if err != nil {
				return err
			}
			// Applications are bookkeeping tags, not balance steps: they
			// mirror the top-level entry's post-payment balance and link
			// back to it so that deleting the payment removes them too.
			application.BalanceAfter = topEntry.BalanceAfter
			application.PaymentID = &topEntry.ID

			if err := ledgerRepoTx.Append(ctx, application); err != nil {
				return err
			}

			remaining = remaining.Sub(applied)
			newDue := due.Sub(applied)

			completed := !newDue.IsPositive()
			if completed {
				if err := shipmentRepoTx.UpdatePaymentStatus(ctx, sh.ID, shipment.PaymentStatusCompleted); err != nil {
					return err
				}
			}

			result.Settlements = append(result.Settlements, Settlement{
				ShipmentID:   sh.ID,
				Applied:      applied,
				RemainingDue: newDue,
				Completed:    completed,
			})
		}
		result.Unapplied = remaining

		if len(later) > 0 {
			if err := recomputeFrom(ctx, ledgerRepoTx, input.CustomerID, topEntry.TransactionDate); err != nil {
				return err
			}
			// Re-read the top entry so the caller sees the refolded balance.
			refetched, err := ledgerRepoTx.GetByID(ctx, topEntry.ID)
			if err != nil {
				return err
			}
			result.TopEntry = refetched
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.auditRepo != nil {
		rec := &audit.Record{
			Operation:    audit.OperationPaymentAllocated,
			CustomerID:   &input.CustomerID,
			EntryID:      &result.TopEntry.ID,
			Amount:       input.Amount.String(),
			BalanceAfter: result.TopEntry.BalanceAfter.String(),
			Actor:        input.CreatedBy,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.auditRepo.Record(ctx, rec); err != nil {
			s.logger.Error("Failed to write audit record", "operation", string(rec.Operation), "error", err)
		}
	}

	return result, nil
}
