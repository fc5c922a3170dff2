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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
)

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) RecordCharge(ctx context.Context, input *billing.ChargeInput) (*ledger.Entry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) DeleteEntry(ctx context.Context, entryID uuid.UUID, actor string) error {
	args := m.Called(ctx, entryID, actor)
	return args.Error(0)
}

func (m *MockLedgerService) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) ListLedger(ctx context.Context, customerID uuid.UUID, from *time.Time) ([]*ledger.Entry, error) {
	args := m.Called(ctx, customerID, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Entry), args.Error(1)
}

func (m *MockLedgerService) OutstandingForShipment(ctx context.Context, shipmentID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, shipmentID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, input *billing.PaymentInput) (*billing.PaymentResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentResult), args.Error(1)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func TestLedgerHandler_RecordCharge(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		ledgerService := new(MockLedgerService)
		h := NewLedgerHandler(logger, ledgerService, new(MockPaymentService))

		customerID := uuid.New()
		entry := &ledger.Entry{
			ID:              uuid.New(),
			CustomerID:      customerID,
			Description:     "Storage fee",
			Kind:            ledger.EntryKindDebit,
			Origin:          ledger.OriginCharge,
			Amount:          decimal.NewFromInt(250),
			BalanceAfter:    decimal.NewFromInt(250),
			TransactionDate: time.Now().UTC(),
			Seq:             1,
			CreatedBy:       "clerk",
			CreatedAt:       time.Now().UTC(),
		}
		ledgerService.On("RecordCharge", mock.Anything, mock.MatchedBy(func(in *billing.ChargeInput) bool {
			return in.CustomerID == customerID && in.Amount.Equal(decimal.NewFromInt(250))
		})).Return(entry, nil)

		router := setupTestRouter()
		router.POST("/ledger/entries", h.RecordCharge)

		body, _ := json.Marshal(RecordChargeRequest{
			CustomerID:  customerID.String(),
			Amount:      "250",
			Description: "Storage fee",
			CreatedBy:   "clerk",
		})
		req, _ := http.NewRequest(http.MethodPost, "/ledger/entries", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data, _ := json.Marshal(resp.Data)
		var got EntryResponse
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "DEBIT", got.Kind)
		assert.Equal(t, "250.00", got.Amount)
		assert.Equal(t, "250.00", got.BalanceAfter)
	})

	t.Run("UnknownCustomer", func(t *testing.T) {
		ledgerService := new(MockLedgerService)
		h := NewLedgerHandler(logger, ledgerService, new(MockPaymentService))

		ledgerService.On("RecordCharge", mock.Anything, mock.Anything).Return(nil, customer.ErrCustomerNotFound{CustomerID: uuid.New()})

		router := setupTestRouter()
		router.POST("/ledger/entries", h.RecordCharge)

		body, _ := json.Marshal(RecordChargeRequest{
			CustomerID:  uuid.New().String(),
			Amount:      "100",
			Description: "fee",
			CreatedBy:   "clerk",
		})
		req, _ := http.NewRequest(http.MethodPost, "/ledger/entries", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("MalformedAmount", func(t *testing.T) {
		h := NewLedgerHandler(logger, new(MockLedgerService), new(MockPaymentService))

		router := setupTestRouter()
		router.POST("/ledger/entries", h.RecordCharge)

		body, _ := json.Marshal(RecordChargeRequest{
			CustomerID:  uuid.New().String(),
			Amount:      "not-a-number",
			Description: "fee",
			CreatedBy:   "clerk",
		})
		req, _ := http.NewRequest(http.MethodPost, "/ledger/entries", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLedgerHandler_RecordPayment(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		paymentService := new(MockPaymentService)
		h := NewLedgerHandler(logger, new(MockLedgerService), paymentService)

		customerID := uuid.New()
		shipmentID := uuid.New()
		result := &billing.PaymentResult{
			TopEntry: &ledger.Entry{
				ID:              uuid.New(),
				CustomerID:      customerID,
				Description:     "Payment received",
				Kind:            ledger.EntryKindCredit,
				Origin:          ledger.OriginPayment,
				Amount:          decimal.NewFromInt(500),
				BalanceAfter:    decimal.NewFromInt(100),
				TransactionDate: time.Now().UTC(),
			},
			Settlements: []billing.Settlement{
				{ShipmentID: shipmentID, Applied: decimal.NewFromInt(500), RemainingDue: decimal.Zero, Completed: true},
			},
			Unapplied: decimal.Zero,
		}
		paymentService.On("RecordPayment", mock.Anything, mock.MatchedBy(func(in *billing.PaymentInput) bool {
			return in.CustomerID == customerID && len(in.ShipmentIDs) == 1 && in.ShipmentIDs[0] == shipmentID
		})).Return(result, nil)

		router := setupTestRouter()
		router.POST("/payments", h.RecordPayment)

		body, _ := json.Marshal(RecordPaymentRequest{
			CustomerID:  customerID.String(),
			ShipmentIDs: []string{shipmentID.String()},
			Amount:      "500",
			CreatedBy:   "cashier",
		})
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		var resp Response
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		data, _ := json.Marshal(resp.Data)
		var got PaymentResponse
		require.NoError(t, json.Unmarshal(data, &got))
		require.Len(t, got.Settlements, 1)
		assert.Equal(t, "500.00", got.Settlements[0].Applied)
		assert.True(t, got.Settlements[0].Completed)
		assert.Equal(t, "0.00", got.Unapplied)
	})

	t.Run("MissingShipments", func(t *testing.T) {
		h := NewLedgerHandler(logger, new(MockLedgerService), new(MockPaymentService))

		router := setupTestRouter()
		router.POST("/payments", h.RecordPayment)

		body, _ := json.Marshal(RecordPaymentRequest{
			CustomerID: uuid.New().String(),
			Amount:     "500",
			CreatedBy:  "cashier",
		})
		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLedgerHandler_DeleteEntry(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		ledgerService := new(MockLedgerService)
		h := NewLedgerHandler(logger, ledgerService, new(MockPaymentService))

		entryID := uuid.New()
		ledgerService.On("DeleteEntry", mock.Anything, entryID, "supervisor").Return(nil)

		router := setupTestRouter()
		router.DELETE("/ledger/entries/:id", h.DeleteEntry)

		req, _ := http.NewRequest(http.MethodDelete, "/ledger/entries/"+entryID.String(), nil)
		req.Header.Set("X-Actor", "supervisor")
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("WouldOverpayShipment", func(t *testing.T) {
		ledgerService := new(MockLedgerService)
		h := NewLedgerHandler(logger, ledgerService, new(MockPaymentService))

		entryID := uuid.New()
		ledgerService.On("DeleteEntry", mock.Anything, entryID, "api").Return(billing.ErrInvariantViolation{ShipmentID: uuid.New(), Due: decimal.NewFromInt(-300)})

		router := setupTestRouter()
		router.DELETE("/ledger/entries/:id", h.DeleteEntry)

		req, _ := http.NewRequest(http.MethodDelete, "/ledger/entries/"+entryID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})

	t.Run("NotFound", func(t *testing.T) {
		ledgerService := new(MockLedgerService)
		h := NewLedgerHandler(logger, ledgerService, new(MockPaymentService))

		entryID := uuid.New()
		ledgerService.On("DeleteEntry", mock.Anything, entryID, "api").Return(ledger.ErrEntryNotFound{EntryID: entryID})

		router := setupTestRouter()
		router.DELETE("/ledger/entries/:id", h.DeleteEntry)

		req, _ := http.NewRequest(http.MethodDelete, "/ledger/entries/"+entryID.String(), nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
