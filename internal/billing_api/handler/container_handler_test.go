package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
)

type MockContainerService struct {
	mock.Mock
}

func (m *MockContainerService) CreateContainer(ctx context.Context, number string, capacity int) (*container.Container, error) {
	args := m.Called(ctx, number, capacity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Container), args.Error(1)
}

func (m *MockContainerService) GetContainer(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Container), args.Error(1)
}

func (m *MockContainerService) AssignShipment(ctx context.Context, containerID, shipmentID uuid.UUID) error {
	args := m.Called(ctx, containerID, shipmentID)
	return args.Error(0)
}

func (m *MockContainerService) AddExpense(ctx context.Context, containerID uuid.UUID, expenseType string, amount decimal.Decimal) (*container.Expense, error) {
	args := m.Called(ctx, containerID, expenseType, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*container.Expense), args.Error(1)
}

func (m *MockContainerService) ChangeStatus(ctx context.Context, containerID uuid.UUID, status container.Status, correlationID string) (*billing.AutoInvoiceResult, error) {
	args := m.Called(ctx, containerID, status, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.AutoInvoiceResult), args.Error(1)
}

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) GenerateInvoices(ctx context.Context, req *billing.InvoiceRequest) (*billing.InvoiceBatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.InvoiceBatchResult), args.Error(1)
}

func (m *MockInvoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceService) ListContainerInvoices(ctx context.Context, containerID uuid.UUID) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, containerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func TestContainerHandler_ChangeStatus(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("TerminalStatusReportsAutoInvoice", func(t *testing.T) {
		containerService := new(MockContainerService)
		h := NewContainerHandler(logger, containerService, new(MockInvoiceService))

		containerID := uuid.New()
		generated := &invoice.Invoice{
			ID:            uuid.New(),
			InvoiceNumber: "INV-00000042",
			ContainerID:   containerID,
			Status:        invoice.StatusPaid,
			Origin:        invoice.OriginAuto,
			Total:         decimal.NewFromInt(12200),
		}
		containerService.On("ChangeStatus", mock.Anything, containerID, container.StatusReleased, mock.AnythingOfType("string")).
			Return(&billing.AutoInvoiceResult{Generated: true, Invoice: generated}, nil)

		router := setupTestRouter()
		router.PUT("/containers/:id/status", h.ChangeStatus)

		body, _ := json.Marshal(ChangeStatusRequest{Status: "RELEASED"})
		req, _ := http.NewRequest(http.MethodPut, "/containers/"+containerID.String()+"/status", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data, _ := json.Marshal(resp.Data)
		var got AutoInvoiceResponse
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, got.Generated)
		require.NotNil(t, got.Invoice)
		assert.Equal(t, "INV-00000042", got.Invoice.InvoiceNumber)
		assert.Equal(t, "PAID", got.Invoice.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		containerService := new(MockContainerService)
		h := NewContainerHandler(logger, containerService, new(MockInvoiceService))

		containerID := uuid.New()
		containerService.On("ChangeStatus", mock.Anything, containerID, container.Status("SUNK"), mock.AnythingOfType("string")).
			Return(nil, container.ErrInvalidStatus)

		router := setupTestRouter()
		router.PUT("/containers/:id/status", h.ChangeStatus)

		body, _ := json.Marshal(ChangeStatusRequest{Status: "SUNK"})
		req, _ := http.NewRequest(http.MethodPut, "/containers/"+containerID.String()+"/status", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestContainerHandler_GenerateInvoices(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("EmptyContainer", func(t *testing.T) {
		invoiceService := new(MockInvoiceService)
		h := NewContainerHandler(logger, new(MockContainerService), invoiceService)

		containerID := uuid.New()
		invoiceService.On("GenerateInvoices", mock.Anything, mock.Anything).
			Return(nil, billing.ErrEmptyContainer{ContainerID: containerID})

		router := setupTestRouter()
		router.POST("/containers/:id/invoices", h.GenerateInvoices)

		body, _ := json.Marshal(GenerateInvoicesRequest{})
		req, _ := http.NewRequest(http.MethodPost, "/containers/"+containerID.String()+"/invoices", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("CreatedAndExistingSeparated", func(t *testing.T) {
		invoiceService := new(MockInvoiceService)
		h := NewContainerHandler(logger, new(MockContainerService), invoiceService)

		containerID := uuid.New()
		customerID := uuid.New()
		created := &invoice.Invoice{ID: uuid.New(), InvoiceNumber: "INV-00000001", CustomerID: &customerID, ContainerID: containerID, Status: invoice.StatusDraft, Origin: invoice.OriginManual}
		existing := &invoice.Invoice{ID: uuid.New(), InvoiceNumber: "INV-00000002", ContainerID: containerID, Status: invoice.StatusSent, Origin: invoice.OriginManual}

		invoiceService.On("GenerateInvoices", mock.Anything, mock.MatchedBy(func(r *billing.InvoiceRequest) bool {
			return r.ContainerID == containerID && r.DiscountPercent.Equal(decimal.NewFromInt(5))
		})).Return(&billing.InvoiceBatchResult{
			Created:         []*invoice.Invoice{created},
			AlreadyExisting: []*invoice.Invoice{existing},
		}, nil)

		router := setupTestRouter()
		router.POST("/containers/:id/invoices", h.GenerateInvoices)

		body, _ := json.Marshal(GenerateInvoicesRequest{DiscountPercent: "5"})
		req, _ := http.NewRequest(http.MethodPost, "/containers/"+containerID.String()+"/invoices", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data, _ := json.Marshal(resp.Data)
		var got InvoiceBatchResponse
		require.NoError(t, json.Unmarshal(data, &got))
		require.Len(t, got.Created, 1)
		require.Len(t, got.AlreadyExisting, 1)
		assert.Equal(t, "INV-00000001", got.Created[0].InvoiceNumber)
		assert.Equal(t, "INV-00000002", got.AlreadyExisting[0].InvoiceNumber)
	})
}
