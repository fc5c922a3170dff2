// Package billing holds the core ledger, payment, and invoicing services.
// Every mutating operation runs inside one database transaction and takes the
// customer's (or container's) serialization lock before reading balances.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// TxRunner runs a function inside a database transaction, rolling back on
// error or panic. *persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// CustomerService defines customer registration and lookup.
type CustomerService interface {
	CreateCustomer(ctx context.Context, name, email, phone string) (*customer.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error)

	// ListAuditTrail pages through the customer's operation trail, newest
	// first.
	ListAuditTrail(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*audit.Record, error)
}

// ChargeInput describes a manual charge or expense-share entry.
type ChargeInput struct {
	CustomerID      uuid.UUID
	ShipmentID      *uuid.UUID
	Amount          decimal.Decimal
	Description     string
	Origin          ledger.EntryOrigin // OriginCharge when zero
	TransactionDate time.Time          // defaults to now
	Notes           string
	CreatedBy       string
}

// LedgerService defines the ledger entry operations.
type LedgerService interface {
	// RecordCharge appends a DEBIT entry for the customer. A backdated
	// transaction date (earlier than the customer's latest entry) triggers a
	// forward recomputation in the same transaction.
	RecordCharge(ctx context.Context, input *ChargeInput) (*ledger.Entry, error)

	// DeleteEntry removes an entry and recomputes every later balance for the
	// customer atomically. Returns ErrInvariantViolation when the deletion
	// would leave a shipment with negative outstanding due.
	DeleteEntry(ctx context.Context, entryID uuid.UUID, actor string) error

	GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error)
	ListLedger(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*ledger.Entry, error)

	// OutstandingForShipment derives the shipment's due amount from its
	// tagged entries.
	OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error)
}

// PaymentInput describes a lump payment to allocate across shipments.
type PaymentInput struct {
	CustomerID      uuid.UUID
	ShipmentIDs     []uuid.UUID // allocation order, preserved as given
	Amount          decimal.Decimal
	TransactionDate time.Time
	Notes           string
	CreatedBy       string
}

// Settlement records how much of a payment landed on one shipment.
type Settlement struct {
	ShipmentID   uuid.UUID       `json:"shipment_id"`
	Applied      decimal.Decimal `json:"applied"`
	RemainingDue decimal.Decimal `json:"remaining_due"`
	Completed    bool            `json:"completed"`
}

// PaymentResult is the full outcome of a payment allocation. Unapplied is
// reported to the caller, never silently dropped.
type PaymentResult struct {
	TopEntry    *ledger.Entry   `json:"top_entry"`
	Settlements []Settlement    `json:"settlements"`
	Unapplied   decimal.Decimal `json:"unapplied_amount"`
}

// PaymentService allocates lump payments across shipment debts.
type PaymentService interface {
	RecordPayment(ctx context.Context, input *PaymentInput) (*PaymentResult, error)
}

// InvoiceRequest parametrizes manual invoice generation for a container.
type InvoiceRequest struct {
	ContainerID     uuid.UUID
	DiscountPercent decimal.Decimal
	DueDate         *time.Time
	Notes           string
}

// InvoiceBatchResult separates freshly created invoices from pre-existing
// ones; the latter is the idempotent "already generated" outcome, not an
// error.
type InvoiceBatchResult struct {
	Created         []*invoice.Invoice `json:"created"`
	AlreadyExisting []*invoice.Invoice `json:"already_existing"`
}

// InvoiceService generates and serves invoices.
type InvoiceService interface {
	// GenerateInvoices produces one invoice per customer with shipments in
	// the container, sharing container expenses evenly across all of its
	// shipments.
	GenerateInvoices(ctx context.Context, req *InvoiceRequest) (*InvoiceBatchResult, error)

	GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error)
	ListContainerInvoices(ctx context.Context, containerID uuid.UUID) ([]*invoice.Invoice, error)
}

// AutoInvoiceResult reports the trigger outcome. Generated=false with a
// Reason is a routine "not yet", not a failure.
type AutoInvoiceResult struct {
	Generated bool             `json:"generated"`
	Reason    string           `json:"reason,omitempty"`
	Invoice   *invoice.Invoice `json:"invoice,omitempty"`
}

// AutoInvoiceService is the policy layer that invoices a container's settled
// cash revenue when its lifecycle completes.
type AutoInvoiceService interface {
	TryAutoInvoice(ctx context.Context, containerID uuid.UUID, correlationID string) (*AutoInvoiceResult, error)
}

// ShipmentInput describes a vehicle intake.
type ShipmentInput struct {
	CustomerID     uuid.UUID
	Description    string
	VIN            string
	Price          decimal.Decimal
	InsuranceValue decimal.Decimal
	PaymentMode    shipment.PaymentMode
	CollectNow     bool // CASH only: record the settlement credit immediately
	CreatedBy      string
}

// ShipmentService handles vehicle intake and lookup. Intake records the
// shipment's charge entries as a side effect.
type ShipmentService interface {
	CreateShipment(ctx context.Context, input *ShipmentInput) (*shipment.Shipment, error)
	GetShipment(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error)
}

// ContainerService handles container lifecycle and expense management.
type ContainerService interface {
	CreateContainer(ctx context.Context, number string, capacity int) (*container.Container, error)
	GetContainer(ctx context.Context, id uuid.UUID) (*container.Container, error)

	// AssignShipment places a shipment into the container, enforcing capacity
	// and single-container membership.
	AssignShipment(ctx context.Context, containerID, shipmentID uuid.UUID) error

	AddExpense(ctx context.Context, containerID uuid.UUID, expenseType string, amount decimal.Decimal) (*container.Expense, error)

	// ChangeStatus updates the container status and, on a transition into a
	// completed status, runs the auto-invoice trigger.
	ChangeStatus(ctx context.Context, containerID uuid.UUID, status container.Status, correlationID string) (*AutoInvoiceResult, error)
}

// ErrInvariantViolation signals that an operation would break the ledger's
// derived invariants, e.g. deleting a charge whose shipment already has
// payments applied against it. Nothing is written when it is returned.
type ErrInvariantViolation struct {
	ShipmentID uuid.UUID
	Due        decimal.Decimal
}

func (e ErrInvariantViolation) Error() string {
	return "operation would leave shipment " + e.ShipmentID.String() + " with negative outstanding due " + e.Due.String()
}

func (e ErrInvariantViolation) Is(target error) bool {
	t, ok := target.(ErrInvariantViolation)
	if !ok {
		return false
	}
	if t.ShipmentID == uuid.Nil {
		return true
	}
	return e.ShipmentID == t.ShipmentID
}
