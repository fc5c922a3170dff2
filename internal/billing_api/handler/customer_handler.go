package handler

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
)

// CustomerHandler handles HTTP requests for customer operations
type CustomerHandler struct {
	customerService billing.CustomerService
	ledgerService   billing.LedgerService
	logger          *slog.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(logger *slog.Logger, customerService billing.CustomerService, ledgerService billing.LedgerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		ledgerService:   ledgerService,
		logger:          logger,
	}
}

// Create handles registration of a new customer
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CreateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cust, err := h.customerService.CreateCustomer(c.Request.Context(), req.Name, req.Email, req.Phone)
	if err != nil {
		h.logger.Error("Failed to create customer", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapCustomerToResponse(cust))
}

// GetByID retrieves a customer by ID, returning 404 if not found
func (h *CustomerHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	cust, err := h.customerService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{}) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to get customer", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapCustomerToResponse(cust))
}

// GetLedger lists a customer's ledger entries in chronological order. An
// optional from query parameter (RFC 3339) restricts the range.
func (h *CustomerHandler) GetLedger(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	var from *time.Time
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			RespondBadRequest(c, "Invalid from date, expected RFC 3339")
			return
		}
		from = &parsed
	}

	entries, err := h.ledgerService.ListLedger(c.Request.Context(), id, from)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{}) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to list ledger", "customer_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := LedgerResponse{Entries: []EntryResponse{}}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, mapEntryToResponse(e))
	}
	RespondOK(c, resp)
}

// GetAuditTrail pages through a customer's operation trail (limit and
// offset query parameters, newest first).
func (h *CustomerHandler) GetAuditTrail(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid customer ID")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	records, err := h.customerService.ListAuditTrail(c.Request.Context(), id, limit, offset)
	if err != nil {
		if errors.Is(err, customer.ErrCustomerNotFound{}) {
			RespondNotFound(c, "Customer not found")
			return
		}
		h.logger.Error("Failed to list audit trail", "customer_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := AuditTrailResponse{Records: []AuditRecordResponse{}}
	for _, rec := range records {
		resp.Records = append(resp.Records, mapAuditRecordToResponse(rec))
	}
	RespondOK(c, resp)
}

// parseAmount converts a decimal string from a request body, rejecting
// malformed values up front so services only ever see valid decimals.
func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}

// parseOptionalAmount treats an empty string as zero.
func parseOptionalAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}
