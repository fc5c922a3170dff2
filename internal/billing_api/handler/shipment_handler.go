package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// ShipmentHandler handles HTTP requests for shipment operations
type ShipmentHandler struct {
	shipmentService billing.ShipmentService
	ledgerService   billing.LedgerService
	logger          *slog.Logger
}

// NewShipmentHandler creates a new shipment handler
func NewShipmentHandler(logger *slog.Logger, shipmentService billing.ShipmentService, ledgerService billing.LedgerService) *ShipmentHandler {
	return &ShipmentHandler{
		shipmentService: shipmentService,
		ledgerService:   ledgerService,
		logger:          logger,
	}
}

// Create handles vehicle intake: the shipment row plus its ledger charges,
// and for collect-now cash intakes the settling payment as well
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req CreateShipmentRequest
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
	price, err := parseAmount(req.Price)
	if err != nil {
		RespondBadRequest(c, "Invalid price")
		return
	}
	insurance, err := parseOptionalAmount(req.InsuranceValue)
	if err != nil {
		RespondBadRequest(c, "Invalid insurance value")
		return
	}

	sh, err := h.shipmentService.CreateShipment(c.Request.Context(), &billing.ShipmentInput{
		CustomerID:     customerID,
		Description:    req.Description,
		VIN:            req.VIN,
		Price:          price,
		InsuranceValue: insurance,
		PaymentMode:    shipment.PaymentMode(req.PaymentMode),
		CollectNow:     req.CollectNow,
		CreatedBy:      req.CreatedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, customer.ErrCustomerNotFound{}):
			RespondNotFound(c, "Customer not found")
		case errors.Is(err, money.ErrNonPositiveAmount), errors.Is(err, money.ErrNegativeAmount),
			errors.Is(err, shipment.ErrInvalidPaymentMode), errors.Is(err, shipment.ErrEmptyDescription):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to create shipment", "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapShipmentToResponse(sh))
}

// GetByID retrieves a shipment by its ID, returning 404 if not found
func (h *ShipmentHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid shipment ID")
		return
	}

	sh, err := h.shipmentService.GetShipment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shipment.ErrShipmentNotFound{}) {
			RespondNotFound(c, "Shipment not found")
			return
		}
		h.logger.Error("Failed to get shipment", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapShipmentToResponse(sh))
}

// GetOutstanding derives the shipment's outstanding due from its ledger
// entries
func (h *ShipmentHandler) GetOutstanding(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid shipment ID")
		return
	}

	due, err := h.ledgerService.OutstandingForShipment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shipment.ErrShipmentNotFound{}) {
			RespondNotFound(c, "Shipment not found")
			return
		}
		h.logger.Error("Failed to compute outstanding", "shipment_id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, gin.H{
		"shipment_id": id.String(),
		"outstanding": money.Display(due),
	})
}
