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
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/outbox"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// ErrEmptyContainer rejects invoicing a container with no shipments.
type ErrEmptyContainer struct {
	ContainerID uuid.UUID
}

func (e ErrEmptyContainer) Error() string {
	return "container has no shipments to invoice: " + e.ContainerID.String()
}

func (e ErrEmptyContainer) Is(target error) bool {
	t, ok := target.(ErrEmptyContainer)
	if !ok {
		return false
	}
	if t.ContainerID == uuid.Nil {
		return true
	}
	return e.ContainerID == t.ContainerID
}

// InvoiceServiceImpl implements the InvoiceService interface
type InvoiceServiceImpl struct {
	db            TxRunner
	containerRepo container.Repository
	shipmentRepo  shipment.Repository
	invoiceRepo   invoice.Repository
	outboxRepo    outbox.Repository
	auditRepo     audit.Repository // optional, best-effort trail
	logger        *slog.Logger
}

func NewInvoiceService(
	db TxRunner,
	containerRepo container.Repository,
	shipmentRepo shipment.Repository,
	invoiceRepo invoice.Repository,
	outboxRepo outbox.Repository,
	auditRepo audit.Repository,
	logger *slog.Logger,
) InvoiceService {
	return &InvoiceServiceImpl{
		db:            db,
		containerRepo: containerRepo,
		shipmentRepo:  shipmentRepo,
		invoiceRepo:   invoiceRepo,
		outboxRepo:    outboxRepo,
		auditRepo:     auditRepo,
		logger:        logger,
	}
}

// expenseShare is one shipment's slice of one container expense.
type expenseShare struct {
	expenseType string
	amount      decimal.Decimal
}

// GenerateInvoices produces one DRAFT invoice per customer with shipments in
// the container. Container expenses are divided evenly across all of the
// container's shipments, so one customer's invoice carries only their
// vehicles' shares. Occupied (customer, container) slots come back in
// AlreadyExisting; creation races resolve through the store's uniqueness
// constraint the same way.
func (s *InvoiceServiceImpl) GenerateInvoices(ctx context.Context, req *InvoiceRequest) (*InvoiceBatchResult, error) {
	result := &InvoiceBatchResult{}
	var created []*invoice.Invoice

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		containerRepoTx := s.containerRepo.WithTx(tx)
		shipmentRepoTx := s.shipmentRepo.WithTx(tx)
		invoiceRepoTx := s.invoiceRepo.WithTx(tx)
		outboxRepoTx := s.outboxRepo.WithTx(tx)

		if _, err := containerRepoTx.GetByID(ctx, req.ContainerID); err != nil {
			return err
		}

		shipments, err := shipmentRepoTx.ListByContainer(ctx, req.ContainerID)
		if err != nil {
			return err
		}
		if len(shipments) == 0 {
			return ErrEmptyContainer{ContainerID: req.ContainerID}
		}

		expenses, err := containerRepoTx.ListExpenses(ctx, req.ContainerID)
		if err != nil {
			return err
		}

		// Each expense splits across ALL shipments in the container; the
		// split is exact, with any remainder folded into the last share.
		sharesByShipment := make(map[uuid.UUID][]expenseShare, len(shipments))
		for _, exp := range expenses {
			shares := money.SplitEvenly(exp.Amount, len(shipments))
			for i, sh := range shipments {
				sharesByShipment[sh.ID] = append(sharesByShipment[sh.ID], expenseShare{
					expenseType: exp.Type,
					amount:      shares[i],
				})
			}
		}

		// Group by customer, preserving container assignment order.
		var customerOrder []uuid.UUID
		byCustomer := make(map[uuid.UUID][]*shipment.Shipment)
		for _, sh := range shipments {
			if _, seen := byCustomer[sh.CustomerID]; !seen {
				customerOrder = append(customerOrder, sh.CustomerID)
			}
			byCustomer[sh.CustomerID] = append(byCustomer[sh.CustomerID], sh)
		}

		now := time.Now().UTC()
		for _, customerID := range customerOrder {
			existing, err := invoiceRepoTx.GetActiveForCustomerContainer(ctx, customerID, req.ContainerID)
			if err != nil {
				return err
			}
			if existing != nil {
				result.AlreadyExisting = append(result.AlreadyExisting, existing)
				continue
			}

			inv, err := s.buildInvoice(ctx, invoiceRepoTx, customerID, req, byCustomer[customerID], sharesByShipment, now)
			if err != nil {
				return err
			}

			if err := createInvoiceInSavepoint(ctx, tx, s.invoiceRepo, inv); err != nil {
				if errors.Is(err, invoice.ErrDuplicateInvoice{}) {
					// Lost a creation race; the winner's invoice is the result.
					winner, getErr := invoiceRepoTx.GetActiveForCustomerContainer(ctx, customerID, req.ContainerID)
					if getErr != nil {
						return getErr
					}
					if winner != nil {
						result.AlreadyExisting = append(result.AlreadyExisting, winner)
						continue
					}
				}
				return err
			}

			message, err := outbox.NewMessage(invoiceEvent(inv, ""))
			if err != nil {
				return err
			}
			if err := outboxRepoTx.Create(ctx, message); err != nil {
				return err
			}

			created = append(created, inv)
		}

		result.Created = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, inv := range created {
		s.recordAudit(ctx, inv, audit.OperationInvoiceGenerated)
	}

	return result, nil
}

// createInvoiceInSavepoint inserts the invoice inside a nested transaction
// (a savepoint). After a unique-index violation Postgres refuses further
// statements on the transaction (SQLSTATE 25P02), so the insert is scoped to a
// savepoint that rolls back on failure, keeping the surrounding transaction
// usable for the winner lookup.
func createInvoiceInSavepoint(ctx context.Context, tx pgx.Tx, repo invoice.Repository, inv *invoice.Invoice) error {
	nested, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := repo.WithTx(nested).Create(ctx, inv); err != nil {
		_ = nested.Rollback(ctx)
		return err
	}
	return nested.Commit(ctx)
}

// buildInvoice assembles one customer's DRAFT invoice: a VEHICLE_PRICE and
// INSURANCE line per shipment, then this customer's shares of each container
// expense.
func (s *InvoiceServiceImpl) buildInvoice(ctx context.Context, repo invoice.Repository, customerID uuid.UUID, req *InvoiceRequest, shipments []*shipment.Shipment, sharesByShipment map[uuid.UUID][]expenseShare, now time.Time) (*invoice.Invoice, error) {
	number, err := repo.NextInvoiceNumber(ctx)
	if err != nil {
		return nil, err
	}

	inv := &invoice.Invoice{
		ID:            uuid.New(),
		InvoiceNumber: number,
		CustomerID:    &customerID,
		ContainerID:   req.ContainerID,
		Status:        invoice.StatusDraft,
		Origin:        invoice.OriginManual,
		Tax:           decimal.Zero,
		DueDate:       req.DueDate,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	position := 0
	for _, sh := range shipments {
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
	for _, sh := range shipments {
		shID := sh.ID
		for _, share := range sharesByShipment[sh.ID] {
			inv.Lines = append(inv.Lines, invoice.NewLineItem(invoice.LineSharedExpense, share.expenseType+" share - "+sh.Description, share.amount, &shID, position))
			position++
		}
	}

	inv.Totalize(req.DiscountPercent)

	return inv, nil
}

func (s *InvoiceServiceImpl) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	return s.invoiceRepo.GetByID(ctx, id)
}

func (s *InvoiceServiceImpl) ListContainerInvoices(ctx context.Context, containerID uuid.UUID) ([]*invoice.Invoice, error) {
	if _, err := s.containerRepo.GetByID(ctx, containerID); err != nil {
		return nil, err
	}
	return s.invoiceRepo.ListByContainer(ctx, containerID)
}

func (s *InvoiceServiceImpl) recordAudit(ctx context.Context, inv *invoice.Invoice, op audit.Operation) {
	if s.auditRepo == nil {
		return
	}
	rec := &audit.Record{
		Operation:   op,
		CustomerID:  inv.CustomerID,
		ContainerID: &inv.ContainerID,
		Amount:      inv.Total.String(),
		Detail:      inv.InvoiceNumber,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.auditRepo.Record(ctx, rec); err != nil {
		s.logger.Error("Failed to write audit record", "operation", string(op), "error", err)
	}
}

// invoiceEvent builds the outbox payload for a freshly created invoice.
func invoiceEvent(inv *invoice.Invoice, correlationID string) *outbox.InvoiceGeneratedEvent {
	return &outbox.InvoiceGeneratedEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID,
		ContainerID:   inv.ContainerID,
		Origin:        string(inv.Origin),
		Status:        string(inv.Status),
		Total:         inv.Total.String(),
		GeneratedAt:   inv.CreatedAt,
		CorrelationID: correlationID,
	}
}
