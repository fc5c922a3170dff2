package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
)

// InvoiceHandler handles HTTP requests for invoice reads
type InvoiceHandler struct {
	invoiceService billing.InvoiceService
	logger         *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(logger *slog.Logger, invoiceService billing.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// GetByID retrieves an invoice with its line items
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid invoice ID")
		return
	}

	inv, err := h.invoiceService.GetInvoice(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, invoice.ErrInvoiceNotFound{}) {
			RespondNotFound(c, "Invoice not found")
			return
		}
		h.logger.Error("Failed to get invoice", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapInvoiceToResponse(inv))
}
