package billing

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// ShipmentServiceImpl implements the ShipmentService interface
type ShipmentServiceImpl struct {
	db           TxRunner
	customerRepo customer.Repository
	shipmentRepo shipment.Repository
	ledgerRepo   ledger.Repository
	auditRepo    audit.Repository
	logger       *slog.Logger
}

func NewShipmentService(
	db TxRunner,
	customerRepo customer.Repository,
	shipmentRepo shipment.Repository,
	ledgerRepo ledger.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) ShipmentService {
	return &ShipmentServiceImpl{
		db:           db,
		customerRepo: customerRepo,
		shipmentRepo: shipmentRepo,
		ledgerRepo:   ledgerRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

// CreateShipment registers a vehicle and books its intake charges on the
// customer's ledger in one transaction: a DEBIT for the price and, when
// insured, a DEBIT for the insurance value. A CASH shipment with CollectNow
// also books the matching payment immediately, leaving the shipment settled
// and the ledger balanced in a single commit.
func (s *ShipmentServiceImpl) CreateShipment(ctx context.Context, input *ShipmentInput) (*shipment.Shipment, error) {
	sh, err := shipment.NewShipment(input.CustomerID, input.Description, input.VIN, input.Price, input.InsuranceValue, input.PaymentMode)
	if err != nil {
		return nil, err
	}

	var entries []*ledger.Entry

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		customerRepoTx := s.customerRepo.WithTx(tx)
		shipmentRepoTx := s.shipmentRepo.WithTx(tx)
		ledgerRepoTx := s.ledgerRepo.WithTx(tx)

		if _, err := customerRepoTx.LockForUpdate(ctx, input.CustomerID); err != nil {
			return err
		}

		if err := shipmentRepoTx.Create(ctx, sh); err != nil {
			return err
		}

		shID := sh.ID
		now := time.Now().UTC()

		charge, err := ledger.NewEntry(input.CustomerID, &shID, "Vehicle price - "+sh.Description, ledger.EntryKindDebit, ledger.OriginCharge, sh.Price, now, input.CreatedBy)
		if err != nil {
			return err
		}
		if err := ledgerRepoTx.Append(ctx, charge); err != nil {
			return err
		}
		entries = append(entries, charge)

		if sh.InsuranceValue.IsPositive() {
			insurance, err := ledger.NewEntry(input.CustomerID, &shID, "Insurance - "+sh.Description, ledger.EntryKindDebit, ledger.OriginCharge, sh.InsuranceValue, now, input.CreatedBy)
			if err != nil {
				return err
			}
			if err := ledgerRepoTx.Append(ctx, insurance); err != nil {
				return err
			}
			entries = append(entries, insurance)
		}

		if sh.PaymentMode == shipment.PaymentModeCash && input.CollectNow {
			payment, err := ledger.NewEntry(input.CustomerID, nil, "Cash collected at intake", ledger.EntryKindCredit, ledger.OriginPayment, sh.ChargeTotal(), now, input.CreatedBy)
			if err != nil {
				return err
			}
			if err := ledgerRepoTx.Append(ctx, payment); err != nil {
				return err
			}
			entries = append(entries, payment)

			application, err := ledger.NewEntry(input.CustomerID, &shID, "Payment applied - "+sh.Description, ledger.EntryKindCredit, ledger.OriginPaymentApplication, sh.ChargeTotal(), now, input.CreatedBy)
			if err != nil {
				return err
			}
			application.BalanceAfter = payment.BalanceAfter
			application.PaymentID = &payment.ID
			if err := ledgerRepoTx.Append(ctx, application); err != nil {
				return err
			}
			entries = append(entries, application)

			if err := shipmentRepoTx.UpdatePaymentStatus(ctx, sh.ID, shipment.PaymentStatusCompleted); err != nil {
				return err
			}
			sh.PaymentStatus = shipment.PaymentStatusCompleted
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		s.recordEntryAudit(ctx, entry, input.CreatedBy)
	}

	return sh, nil
}

func (s *ShipmentServiceImpl) GetShipment(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	return s.shipmentRepo.GetByID(ctx, id)
}

func (s *ShipmentServiceImpl) recordEntryAudit(ctx context.Context, entry *ledger.Entry, actor string) {
	if s.auditRepo == nil {
		return
	}
	rec := &audit.Record{
		Operation:    audit.OperationEntryRecorded,
		CustomerID:   &entry.CustomerID,
		EntryID:      &entry.ID,
		Amount:       entry.Amount.String(),
		BalanceAfter: entry.BalanceAfter.String(),
		Actor:        actor,
		Detail:       entry.Description,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.auditRepo.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to write audit record", "operation", string(rec.Operation), "error", err)
	}
}
