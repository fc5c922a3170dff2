package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/outbox"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// AutoInvoiceServiceImpl implements the AutoInvoiceService interface
type AutoInvoiceServiceImpl struct {
	db            TxRunner
	containerRepo container.Repository
	shipmentRepo  shipment.Repository
	invoiceRepo   invoice.Repository
	outboxRepo    outbox.Repository
	auditRepo     audit.Repository
	logger        *slog.Logger
}

func NewAutoInvoiceService(
	db TxRunner,
	containerRepo container.Repository,
	shipmentRepo shipment.Repository,
	invoiceRepo invoice.Repository,
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) AutoInvoiceService {
	return &AutoInvoiceServiceImpl{
		db:            db,
		containerRepo: containerRepo,
		shipmentRepo:  shipmentRepo,
		invoiceRepo:   invoiceRepo,
		outboxRepo:    outboxRepo,
		auditRepo:     auditRepo,
		logger:        logger,
	}
}

// TryAutoInvoice generates the container-level PAID invoice that records the
// container's settled cash revenue. It is deliberately quiet about reasons not
// to generate: a container that is not terminal yet, has no settled cash
// shipments, or was already auto-invoiced yields Generated=false with the
// reason, never an error. Duplicate triggers (event redelivery, status
// re-transitions) collapse onto the existing invoice through the one-AUTO-per-
// container constraint.
func (s *AutoInvoiceServiceImpl) TryAutoInvoice(ctx context.Context, containerID uuid.UUID, correlationID string) (*AutoInvoiceResult, error) {
	result := &AutoInvoiceResult{}

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		containerRepoTx := s.containerRepo.WithTx(tx)
		shipmentRepoTx := s.shipmentRepo.WithTx(tx)
		invoiceRepoTx := s.invoiceRepo.WithTx(tx)
		outboxRepoTx := s.outboxRepo.WithTx(tx)

		cont, err := containerRepoTx.GetByID(ctx, containerID)
		if err != nil {
			return err
		}
		if !cont.Status.Completed() {
			result.Reason = "container not in a completed status"
			return nil
		}

		existing, err := invoiceRepoTx.GetActiveAutoForContainer(ctx, containerID)
		if err != nil {
			return err
		}
		if existing != nil {
			result.Reason = "auto invoice already generated"
			result.Invoice = existing
			return nil
		}

		shipments, err := shipmentRepoTx.ListByContainer(ctx, containerID)
		if err != nil {
			return err
		}
		var settled []*shipment.Shipment
		for _, sh := range shipments {
			if sh.CashSettled() {
				settled = append(settled, sh)
			}
		}
		if len(settled) == 0 {
			result.Reason = "no settled cash shipments in container"
			return nil
		}

		total := decimal.Zero
		for _, sh := range settled {
			total = total.Add(sh.ChargeTotal())
		}
		if !total.IsPositive() {
			result.Reason = "settled cash total is not positive"
			return nil
		}

		inv, err := s.buildAutoInvoice(ctx, invoiceRepoTx, cont, settled)
		if err != nil {
			return err
		}

		if err := createInvoiceInSavepoint(ctx, tx, s.invoiceRepo, inv); err != nil {
			if errors.Is(err, invoice.ErrDuplicateInvoice{}) {
				winner, getErr := invoiceRepoTx.GetActiveAutoForContainer(ctx, containerID)
				if getErr != nil {
					return getErr
				}
				result.Reason = "auto invoice already generated"
				result.Invoice = winner
				return nil
			}
			return err
		}

		message, err := outbox.NewMessage(invoiceEvent(inv, correlationID))
		if err != nil {
			return err
		}
		if err := outboxRepoTx.Create(ctx, message); err != nil {
			return err
		}

		result.Generated = true
		result.Invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Generated {
		s.recordAudit(ctx, result.Invoice, correlationID)
	} else {
		s.logger.Info("Auto invoice skipped",
			"container_id", containerID.String(),
			"reason", result.Reason,
			"correlation_id", correlationID)
	}

	return result, nil
}

// buildAutoInvoice assembles the PAID container-level invoice: one
// VEHICLE_PRICE line per settled cash shipment, plus an INSURANCE line where
// insurance was charged. CustomerID stays nil; the document spans customers.
func (s *AutoInvoiceServiceImpl) buildAutoInvoice(ctx context.Context, repo invoice.Repository, cont *container.Container, settled []*shipment.Shipment) (*invoice.Invoice, error) {
	number, err := repo.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		ContainerID:   cont.ID,
		Status:        invoice.StatusPaid,
		Origin:        invoice.OriginAuto,
		Tax:           decimal.Zero,
		Notes:         "Auto-generated for settled cash shipments in container " + cont.Number,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	position := 0
	for _, sh := range settled {
		shID := sh.ID
		if sh.Price.IsPositive() {
			inv.Lines = append(inv.Lines, invoice.NewLineItem(invoice.LineVehiclePrice, "Vehicle price - "+sh.Description, sh.Price, &shID, position))
			position++
		}
		if sh.InsuranceValue.IsPositive() {
			inv.Lines = append(inv.Lines, invoice.NewLineItem(invoice.LineInsurance, "Insurance - "+sh.Description, sh.InsuranceValue, &shID, position))
			position++
		}
	}

	inv.Totalize(decimal.Zero)

	return inv, nil
}

func (s *AutoInvoiceServiceImpl) recordAudit(ctx context.Context, inv *invoice.Invoice, correlationID string) {
	if s.auditRepo == nil {
		return
	}
	rec := &audit.Record{
		Operation:     audit.OperationAutoInvoice,
		ContainerID:   &inv.ContainerID,
		Amount:        inv.Total.String(),
		Detail:        inv.InvoiceNumber,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.auditRepo.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to write audit record", "operation", string(audit.OperationAutoInvoice), "error", err)
	}
}
