package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// LedgerHandler handles HTTP requests for ledger entry and payment operations
type LedgerHandler struct {
	ledgerService  billing.LedgerService
	paymentService billing.PaymentService
	logger         *slog.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(logger *slog.Logger, ledgerService billing.LedgerService, paymentService billing.PaymentService) *LedgerHandler {
	return &LedgerHandler{
		ledgerService:  ledgerService,
		paymentService: paymentService,
		logger:         logger,
	}
}

// RecordCharge appends a manual DEBIT entry to a customer's ledger
func (h *LedgerHandler) RecordCharge(c *gin.Context) {
	var req RecordChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	input := &billing.ChargeInput{
		CustomerID:  customerID,
		Amount:      amount,
		Description: req.Description,
		Notes:       req.Notes,
		CreatedBy:   req.CreatedBy,
	}
	if req.ShipmentID != "" {
		shipmentID, err := uuid.Parse(req.ShipmentID)
		if err != nil {
			RespondBadRequest(c, "Invalid shipment ID")
			return
		}
		input.ShipmentID = &shipmentID
	}
	if req.TransactionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.TransactionDate)
		if err != nil {
			RespondBadRequest(c, "Invalid transaction date, expected RFC 3339")
			return
		}
		input.TransactionDate = parsed
	}

	entry, err := h.ledgerService.RecordCharge(c.Request.Context(), input)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapEntryToResponse(entry))
}

// RecordPayment allocates a lump payment across the customer's shipments
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}
	shipmentIDs := make([]uuid.UUID, 0, len(req.ShipmentIDs))
	for _, raw := range req.ShipmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondBadRequest(c, "Invalid shipment ID: "+raw)
			return
		}
		shipmentIDs = append(shipmentIDs, id)
	}

	input := &billing.PaymentInput{
		CustomerID:  customerID,
		ShipmentIDs: shipmentIDs,
		Amount:      amount,
		Notes:       req.Notes,
		CreatedBy:   req.CreatedBy,
	}
	if req.TransactionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.TransactionDate)
		if err != nil {
			RespondBadRequest(c, "Invalid transaction date, expected RFC 3339")
			return
		}
		input.TransactionDate = parsed
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), input)
	if err != nil {
		h.respondLedgerError(c, err)
		return
	}

	RespondCreated(c, mapPaymentToResponse(result))
}

// GetEntry retrieves a single ledger entry
func (h *LedgerHandler) GetEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	entry, err := h.ledgerService.GetEntry(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrEntryNotFound{}) {
			RespondNotFound(c, "Ledger entry not found")
			return
		}
		h.logger.Error("Failed to get entry", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapEntryToResponse(entry))
}

// DeleteEntry removes a ledger entry, recomputing later balances. Deletions
// that would drive a shipment's outstanding due negative are rejected.
func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid entry ID")
		return
	}

	actor := c.GetHeader("X-Actor")
	if actor == "" {
		actor = "api"
	}

	if err := h.ledgerService.DeleteEntry(c.Request.Context(), id, actor); err != nil {
		switch {
		case errors.Is(err, ledger.ErrEntryNotFound{}):
			RespondNotFound(c, "Ledger entry not found")
		case errors.Is(err, billing.ErrInvariantViolation{}):
			RespondUnprocessable(c, "Deleting this entry would leave a shipment overpaid")
		default:
			h.logger.Error("Failed to delete entry", "id", id.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

// respondLedgerError maps the write-path error taxonomy shared by charges
// and payments.
func (h *LedgerHandler) respondLedgerError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, customer.ErrCustomerNotFound{}):
		RespondNotFound(c, "Customer not found")
	case errors.Is(err, shipment.ErrShipmentNotFound{}):
		RespondNotFound(c, "Shipment not found")
	case errors.As(err, &shipment.ErrShipmentNotOwned{}):
		RespondUnprocessable(c, "Shipment belongs to a different customer")
	case errors.Is(err, money.ErrNonPositiveAmount), errors.Is(err, ledger.ErrEmptyDescription):
		RespondBadRequest(c, err.Error())
	default:
		h.logger.Error("Ledger operation failed", "error", err)
		RespondInternalError(c)
	}
}
