package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/billing_api/middleware"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// ContainerHandler handles HTTP requests for container operations
type ContainerHandler struct {
	containerService billing.ContainerService
	invoiceService   billing.InvoiceService
	logger           *slog.Logger
}

// NewContainerHandler creates a new container handler
func NewContainerHandler(logger *slog.Logger, containerService billing.ContainerService, invoiceService billing.InvoiceService) *ContainerHandler {
	return &ContainerHandler{
		containerService: containerService,
		invoiceService:   invoiceService,
		logger:           logger,
	}
}

// Create handles opening a new container
func (h *ContainerHandler) Create(c *gin.Context) {
	var req CreateContainerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	cont, err := h.containerService.CreateContainer(c.Request.Context(), req.Number, req.Capacity)
	if err != nil {
		if errors.Is(err, container.ErrEmptyNumber) || errors.Is(err, container.ErrInvalidCapacity) {
			RespondBadRequest(c, err.Error())
			return
		}
		h.logger.Error("Failed to create container", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapContainerToResponse(cont))
}

// GetByID retrieves a container by its ID, returning 404 if not found
func (h *ContainerHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	cont, err := h.containerService.GetContainer(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, container.ErrContainerNotFound{}) {
			RespondNotFound(c, "Container not found")
			return
		}
		h.logger.Error("Failed to get container", "id", id.String(), "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, mapContainerToResponse(cont))
}

// AssignShipment places a shipment into the container, rejecting overfills
// and double assignments
func (h *ContainerHandler) AssignShipment(c *gin.Context) {
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	var req AssignShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	shipmentID, err := uuid.Parse(req.ShipmentID)
	if err != nil {
		RespondBadRequest(c, "Invalid shipment ID")
		return
	}

	if err := h.containerService.AssignShipment(c.Request.Context(), containerID, shipmentID); err != nil {
		switch {
		case errors.Is(err, container.ErrContainerNotFound{}):
			RespondNotFound(c, "Container not found")
		case errors.Is(err, shipment.ErrShipmentNotFound{}):
			RespondNotFound(c, "Shipment not found")
		case errors.As(err, &container.ErrCapacityExceeded{}):
			RespondConflict(c, "Container is at capacity")
		case errors.As(err, &shipment.ErrAlreadyAssigned{}):
			RespondConflict(c, "Shipment is already assigned to a container")
		default:
			h.logger.Error("Failed to assign shipment", "container_id", containerID.String(), "shipment_id", shipmentID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondNoContent(c)
}

// AddExpense records a shared container expense
func (h *ContainerHandler) AddExpense(c *gin.Context) {
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	var req AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		RespondBadRequest(c, "Invalid amount")
		return
	}

	exp, err := h.containerService.AddExpense(c.Request.Context(), containerID, req.Type, amount)
	if err != nil {
		switch {
		case errors.Is(err, container.ErrContainerNotFound{}):
			RespondNotFound(c, "Container not found")
		case errors.Is(err, container.ErrEmptyExpenseType), errors.Is(err, money.ErrNonPositiveAmount):
			RespondBadRequest(c, err.Error())
		default:
			h.logger.Error("Failed to add expense", "container_id", containerID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapExpenseToResponse(exp))
}

// ChangeStatus transitions the container's lifecycle status. A transition
// into a terminal status reports the auto-invoice outcome alongside.
func (h *ContainerHandler) ChangeStatus(c *gin.Context) {
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.containerService.ChangeStatus(c.Request.Context(), containerID, container.Status(req.Status), middleware.GetCorrelationID(c))
	if err != nil {
		switch {
		case errors.Is(err, container.ErrContainerNotFound{}):
			RespondNotFound(c, "Container not found")
		case errors.Is(err, container.ErrInvalidStatus):
			RespondBadRequest(c, "Invalid container status: "+req.Status)
		default:
			h.logger.Error("Failed to change container status", "container_id", containerID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	resp := AutoInvoiceResponse{
		Status:    req.Status,
		Generated: result.Generated,
		Reason:    result.Reason,
	}
	if result.Invoice != nil {
		inv := mapInvoiceToResponse(result.Invoice)
		resp.Invoice = &inv
	}
	RespondOK(c, resp)
}

// GenerateInvoices triggers manual invoicing for the container
func (h *ContainerHandler) GenerateInvoices(c *gin.Context) {
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	var req GenerateInvoicesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	discount, err := parseOptionalAmount(req.DiscountPercent)
	if err != nil {
		RespondBadRequest(c, "Invalid discount percent")
		return
	}
	var dueDate *time.Time
	if req.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			RespondBadRequest(c, "Invalid due date, expected RFC 3339")
			return
		}
		dueDate = &parsed
	}

	result, err := h.invoiceService.GenerateInvoices(c.Request.Context(), &billing.InvoiceRequest{
		ContainerID:     containerID,
		DiscountPercent: discount,
		DueDate:         dueDate,
		Notes:           req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, container.ErrContainerNotFound{}):
			RespondNotFound(c, "Container not found")
		case errors.Is(err, billing.ErrEmptyContainer{}):
			RespondUnprocessable(c, "Container has no shipments to invoice")
		default:
			h.logger.Error("Failed to generate invoices", "container_id", containerID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondCreated(c, mapInvoiceBatchToResponse(result))
}

// ListInvoices returns all invoices generated against the container
func (h *ContainerHandler) ListInvoices(c *gin.Context) {
	containerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid container ID")
		return
	}

	invoices, err := h.invoiceService.ListContainerInvoices(c.Request.Context(), containerID)
	if err != nil {
		if errors.Is(err, container.ErrContainerNotFound{}) {
			RespondNotFound(c, "Container not found")
			return
		}
		h.logger.Error("Failed to list invoices", "container_id", containerID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		resp = append(resp, mapInvoiceToResponse(inv))
	}
	RespondOK(c, resp)
}
