package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// LedgerServiceImpl implements the LedgerService interface
type LedgerServiceImpl struct {
	db           TxRunner
	customerRepo customer.Repository
	shipmentRepo shipment.Repository
	ledgerRepo   ledger.Repository
	auditRepo    audit.Repository // optional, best-effort trail
	logger       *slog.Logger
}

func NewLedgerService(
	db TxRunner,
	customerRepo customer.Repository,
	shipmentRepo shipment.Repository,
	ledgerRepo ledger.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) LedgerService {
	return &LedgerServiceImpl{
		db:           db,
		customerRepo: customerRepo,
		shipmentRepo: shipmentRepo,
		ledgerRepo:   ledgerRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

// RecordCharge appends a DEBIT entry under the customer's lock. Entries dated
// earlier than existing ones trigger a forward recomputation before commit,
// so the running-balance invariant holds at all times outside the
// transaction.
func (s *LedgerServiceImpl) RecordCharge(ctx context.Context, input *ChargeInput) (*ledger.Entry, error) {
	origin := input.Origin
	if origin == "" {
		origin = ledger.OriginCharge
	}

	entry, err := ledger.NewEntry(input.CustomerID, input.ShipmentID, input.Description, ledger.EntryKindDebit, origin, input.Amount, input.TransactionDate, input.CreatedBy)
	if err != nil {
		return nil, err
	}
	entry.Notes = input.Notes

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		customerRepoTx := s.customerRepo.WithTx(tx)
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		if _, err := customerRepoTx.LockForUpdate(ctx, input.CustomerID); err != nil {
			return err
		}

		if input.ShipmentID != nil {
			sh, err := s.shipmentRepo.WithTx(tx).GetByID(ctx, *input.ShipmentID)
			if err != nil {
				return err
			}
			if sh.CustomerID != input.CustomerID {
				return shipment.ErrShipmentNotOwned{ShipmentID: sh.ID, CustomerID: input.CustomerID}
			}
		}

		// A non-empty range at the entry's date means it lands before (or
		// among) existing entries, so later balances must be refolded.
		later, err := ledgerRepoTx.ListByCustomer(ctx, input.CustomerID, &entry.TransactionDate)
		if err != nil {
			return err
		}

		if err := ledgerRepoTx.Append(ctx, entry); err != nil {
			return err
		}

		if len(later) > 0 {
			if err := recomputeFrom(ctx, ledgerRepoTx, input.CustomerID, entry.TransactionDate); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, &audit.Record{
		Operation:    audit.OperationEntryRecorded,
		CustomerID:   &entry.CustomerID,
		EntryID:      &entry.ID,
		Amount:       entry.Amount.String(),
		BalanceAfter: entry.BalanceAfter.String(),
		Actor:        input.CreatedBy,
		Detail:       entry.Description,
		CreatedAt:    time.Now().UTC(),
	})

	return entry, nil
}

// DeleteEntry removes an entry and refolds every later balance for the
// customer in one transaction. The shipment-due check runs before the delete:
// removing a charge out from under applied payments would drive the
// shipment's outstanding negative, which is surfaced, never clamped.
// Deleting a top-level PAYMENT also removes its application entries, so the
// shipments it settled show their dues again.
func (s *LedgerServiceImpl) DeleteEntry(ctx context.Context, entryID uuid.UUID, actor string) error {
	var deleted *ledger.Entry

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		entry, err := ledgerRepoTx.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		deleted = entry

		if _, err := s.customerRepo.WithTx(tx).LockForUpdate(ctx, entry.CustomerID); err != nil {
			return err
		}

		if entry.ShipmentID != nil && entry.Kind == ledger.EntryKindDebit {
			due, err := ledgerRepoTx.OutstandingForShipment(ctx, *entry.ShipmentID)
			if err != nil {
				return err
			}
			if newDue := due.Sub(entry.Amount); newDue.IsNegative() {
				return ErrInvariantViolation{ShipmentID: *entry.ShipmentID, Due: newDue}
			}
		}

		if entry.Origin == ledger.OriginPayment {
			if err := s.cascadePaymentDelete(ctx, tx, ledgerRepoTx, entry); err != nil {
				return err
			}
		}

		if err := ledgerRepoTx.Delete(ctx, entryID); err != nil {
			return err
		}

		return recomputeFrom(ctx, ledgerRepoTx, entry.CustomerID, entry.TransactionDate)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, &audit.Record{
		Operation:  audit.OperationEntryDeleted,
		CustomerID: &deleted.CustomerID,
		EntryID:    &deleted.ID,
		Amount:     deleted.Amount.String(),
		Actor:      actor,
		Detail:     deleted.Description,
		CreatedAt:  time.Now().UTC(),
	})

	return nil
}

// cascadePaymentDelete removes the application entries tagged to a payment
// before the payment itself goes. Shipments whose due becomes positive again
// are reopened to PENDING, since their settlement just evaporated.
func (s *LedgerServiceImpl) cascadePaymentDelete(ctx context.Context, tx pgx.Tx, ledgerRepoTx ledger.Repository, payment *ledger.Entry) error {
	applications, err := ledgerRepoTx.DeleteByPayment(ctx, payment.ID)
	if err != nil {
		return err
	}
	if len(applications) == 0 {
		return nil
	}

	shipmentRepoTx := s.shipmentRepo.WithTx(tx)
	seen := make(map[uuid.UUID]bool)
	for _, app := range applications {
		if app.ShipmentID == nil || seen[*app.ShipmentID] {
			continue
		}
		seen[*app.ShipmentID] = true

		due, err := ledgerRepoTx.OutstandingForShipment(ctx, *app.ShipmentID)
		if err != nil {
			return err
		}
		if due.IsPositive() {
			if err := shipmentRepoTx.UpdatePaymentStatus(ctx, *app.ShipmentID, shipment.PaymentStatusPending); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *LedgerServiceImpl) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	return s.ledgerRepo.GetByID(ctx, id)
}

func (s *LedgerServiceImpl) ListLedger(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*ledger.Entry, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.ledgerRepo.ListByCustomer(ctx, customerID, from)
}

func (s *LedgerServiceImpl) OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	if _, err := s.shipmentRepo.GetByID(ctx, shipmentID); err != nil {
		return decimal.Zero, err
	}
	return s.ledgerRepo.OutstandingForShipment(ctx, shipmentID)
}

// recomputeFrom refolds balances for all entries dated >= from, seeding the
// fold with the balance of the latest entry before that point. Must run under
// the customer's lock inside the surrounding transaction.
func recomputeFrom(ctx context.Context, repo ledger.Repository, customerID uuid.UUID, from time.Time) error {
	entries, err := repo.ListByCustomer(ctx, customerID, nil)
	if err != nil {
		return err
	}

	prior := decimal.Zero
	var tail []*ledger.Entry
	for _, e := range entries {
		if e.TransactionDate.Before(from) {
			prior = e.BalanceAfter
		} else {
			tail = append(tail, e)
		}
	}

	if len(tail) == 0 {
		return nil
	}

	RecomputeBalances(prior, tail)

	if err := repo.UpdateBalances(ctx, tail); err != nil {
		return fmt.Errorf("failed to persist recomputed balances: %w", err)
	}

	return nil
}

// recordAudit writes one trail document after the transaction committed.
// Trail failures are logged, never propagated into the billing path.
func (s *LedgerServiceImpl) recordAudit(ctx context.Context, rec *audit.Record) {
	if s.auditRepo == nil {
		return
	}
	if err := s.auditRepo.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to write audit record", "operation", string(rec.Operation), "error", err)
	}
}
