package billing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/outbox"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// Mock implementations of the dependencies

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeTxRunner invokes the transactional function with a fakeTx; repository
// mocks return themselves from WithTx, so the tx carries no real connection.
// Tests that inspect savepoint activity pass their own tx and read its
// counters afterwards.
type fakeTxRunner struct {
	tx *fakeTx
}

func (f fakeTxRunner) ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx := f.tx
	if tx == nil {
		tx = &fakeTx{}
	}
	return fn(tx)
}

// fakeTx satisfies pgx.Tx without a database. Begin returns the same tx and
// counts savepoint begins, commits, and rollbacks.
type fakeTx struct {
	begins    int
	commits   int
	rollbacks int
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	t.begins++
	return t, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.commits++
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rollbacks++
	return nil
}

func (t *fakeTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *fakeTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *fakeTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *fakeTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }

func (t *fakeTx) Conn() *pgx.Conn { return nil }

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*customer.Customer), args.Error(1)
}

func (m *MockCustomerRepository) WithTx(tx pgx.Tx) customer.Repository {
	return m
}

type MockShipmentRepository struct {
	mock.Mock
}

func (m *MockShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockShipmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*shipment.Shipment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) GetManyByIDs(ctx context.Context, ids []uuid.UUID) ([]*shipment.Shipment, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*shipment.Shipment, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*shipment.Shipment), args.Error(1)
}

func (m *MockShipmentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status shipment.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockShipmentRepository) AssignToContainer(ctx context.Context, id uuid.UUID, containerID uuid.UUID) error {
	args := m.Called(ctx, id, containerID)
	return args.Error(0)
}

func (m *MockShipmentRepository) WithTx(tx pgx.Tx) shipment.Repository {
	return m
}

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *ledger.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, customerID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, shipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) LatestBalance(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLedgerRepository) DeleteByPayment(ctx context.Context, paymentID uuid.UUID) ([]*ledger.Entry, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerRepository) UpdateBalances(ctx context.Context, entries []*ledger.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return m
}

type MockContainerRepository struct {
	mock.Mock
}

func (m *MockContainerRepository) Create(ctx context.Context, c *container.Container) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockContainerRepository) GetByID(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Container), args.Error(1)
}

func (m *MockContainerRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Container), args.Error(1)
}

func (m *MockContainerRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status container.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockContainerRepository) CountShipments(ctx context.Context, id uuid.UUID) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockContainerRepository) AddExpense(ctx context.Context, e *container.Expense) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockContainerRepository) ListExpenses(ctx context.Context, containerID uuid.UUID) ([]*container.Expense, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*container.Expense), args.Error(1)
}

func (m *MockContainerRepository) WithTx(tx pgx.Tx) container.Repository {
	return m
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetActiveForCustomerContainer(ctx context.Context, customerID, containerID uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, customerID, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) GetActiveAutoForContainer(ctx context.Context, containerID uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListByContainer(ctx context.Context, containerID uuid.UUID) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, rec *audit.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	args := m.Called(ctx, customerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*audit.Record), args.Error(1)
}

type MockAutoInvoiceService struct {
	mock.Mock
}

func (m *MockAutoInvoiceService) TryAutoInvoice(ctx context.Context, containerID uuid.UUID, correlationID string) (*AutoInvoiceResult, error) {
	args := m.Called(ctx, containerID, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AutoInvoiceResult), args.Error(1)
}
