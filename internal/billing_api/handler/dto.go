package handler

import (
	"time"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/invoice"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/ledger"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// Monetary amounts cross the API as decimal strings ("1234.56"); binding them
// as floats would reintroduce the precision loss the ledger exists to avoid.

// CreateCustomerRequest represents a request to register a customer
type CreateCustomerRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone"`
}

// CustomerResponse represents a customer in API responses
type CustomerResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateShipmentRequest represents a vehicle intake request
type CreateShipmentRequest struct {
	CustomerID     string `json:"customer_id" binding:"required,uuid"`
	Description    string `json:"description" binding:"required"`
	VIN            string `json:"vin"`
	Price          string `json:"price" binding:"required"`
	InsuranceValue string `json:"insurance_value"`
	PaymentMode    string `json:"payment_mode" binding:"required,oneof=CASH DUE"`
	CollectNow     bool   `json:"collect_now"`
	CreatedBy      string `json:"created_by" binding:"required"`
}

// ShipmentResponse represents a shipment in API responses
type ShipmentResponse struct {
	ID             string `json:"id"`
	CustomerID     string `json:"customer_id"`
	ContainerID    string `json:"container_id,omitempty"`
	Description    string `json:"description"`
	VIN            string `json:"vin,omitempty"`
	Price          string `json:"price"`
	InsuranceValue string `json:"insurance_value"`
	PaymentMode    string `json:"payment_mode"`
	PaymentStatus  string `json:"payment_status"`
	CreatedAt      string `json:"created_at"`
}

// CreateContainerRequest represents a request to open a container
type CreateContainerRequest struct {
	Number   string `json:"number" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
}

// ContainerResponse represents a container in API responses
type ContainerResponse struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	Capacity  int    `json:"capacity"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AssignShipmentRequest places a shipment into a container
type AssignShipmentRequest struct {
	ShipmentID string `json:"shipment_id" binding:"required,uuid"`
}

// AddExpenseRequest records a shared container expense
type AddExpenseRequest struct {
	Type   string `json:"type" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// ExpenseResponse represents a container expense in API responses
type ExpenseResponse struct {
	ID          string `json:"id"`
	ContainerID string `json:"container_id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	CreatedAt   string `json:"created_at"`
}

// ChangeStatusRequest transitions a container's lifecycle status
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// RecordChargeRequest appends a manual charge to a customer's ledger
type RecordChargeRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid"`
	ShipmentID      string `json:"shipment_id" binding:"omitempty,uuid"`
	Amount          string `json:"amount" binding:"required"`
	Description     string `json:"description" binding:"required"`
	TransactionDate string `json:"transaction_date"` // RFC 3339; empty means now
	Notes           string `json:"notes"`
	CreatedBy       string `json:"created_by" binding:"required"`
}

// EntryResponse represents a ledger entry in API responses
type EntryResponse struct {
	ID              string `json:"id"`
	CustomerID      string `json:"customer_id"`
	ShipmentID      string `json:"shipment_id,omitempty"`
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	Origin          string `json:"origin"`
	Amount          string `json:"amount"`
	BalanceAfter    string `json:"balance_after"`
	TransactionDate string `json:"transaction_date"`
	Seq             int64  `json:"seq"`
	CreatedBy       string `json:"created_by"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at"`
}

// LedgerResponse represents a customer's ledger listing
type LedgerResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// RecordPaymentRequest allocates a lump payment across shipments
type RecordPaymentRequest struct {
	CustomerID      string   `json:"customer_id" binding:"required,uuid"`
	ShipmentIDs     []string `json:"shipment_ids" binding:"required,min=1,dive,uuid"`
	Amount          string   `json:"amount" binding:"required"`
	TransactionDate string   `json:"transaction_date"`
	Notes           string   `json:"notes"`
	CreatedBy       string   `json:"created_by" binding:"required"`
}

// SettlementResponse reports one shipment's slice of a payment
type SettlementResponse struct {
	ShipmentID   string `json:"shipment_id"`
	Applied      string `json:"applied"`
	RemainingDue string `json:"remaining_due"`
	Completed    bool   `json:"completed"`
}

// PaymentResponse reports the full allocation outcome
type PaymentResponse struct {
	Entry       EntryResponse        `json:"entry"`
	Settlements []SettlementResponse `json:"settlements"`
	Unapplied   string               `json:"unapplied_amount"`
}

// GenerateInvoicesRequest parametrizes manual invoicing of a container
type GenerateInvoicesRequest struct {
	DiscountPercent string `json:"discount_percent"`
	DueDate         string `json:"due_date"` // RFC 3339
	Notes           string `json:"notes"`
}

// LineItemResponse represents an invoice line in API responses
type LineItemResponse struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
	ShipmentID  string `json:"shipment_id,omitempty"`
	Position    int    `json:"position"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID            string             `json:"id"`
	InvoiceNumber string             `json:"invoice_number"`
	CustomerID    string             `json:"customer_id,omitempty"`
	ContainerID   string             `json:"container_id"`
	Status        string             `json:"status"`
	Origin        string             `json:"origin"`
	Subtotal      string             `json:"subtotal"`
	Discount      string             `json:"discount"`
	Tax           string             `json:"tax"`
	Total         string             `json:"total"`
	DueDate       string             `json:"due_date,omitempty"`
	Notes         string             `json:"notes,omitempty"`
	Lines         []LineItemResponse `json:"lines"`
	CreatedAt     string             `json:"created_at"`
}

// InvoiceBatchResponse separates created invoices from pre-existing ones
type InvoiceBatchResponse struct {
	Created         []InvoiceResponse `json:"created"`
	AlreadyExisting []InvoiceResponse `json:"already_existing"`
}

// AutoInvoiceResponse reports a container status transition's invoicing outcome
type AutoInvoiceResponse struct {
	Status    string           `json:"status"`
	Generated bool             `json:"auto_invoice_generated"`
	Reason    string           `json:"reason,omitempty"`
	Invoice   *InvoiceResponse `json:"invoice,omitempty"`
}

// AuditRecordResponse represents one audited operation
type AuditRecordResponse struct {
	ID            string `json:"id"`
	Operation     string `json:"operation"`
	CustomerID    string `json:"customer_id,omitempty"`
	ContainerID   string `json:"container_id,omitempty"`
	EntryID       string `json:"entry_id,omitempty"`
	Amount        string `json:"amount,omitempty"`
	BalanceBefore string `json:"balance_before,omitempty"`
	BalanceAfter  string `json:"balance_after,omitempty"`
	Actor         string `json:"actor,omitempty"`
	Detail        string `json:"detail,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// AuditTrailResponse wraps a page of audit records
type AuditTrailResponse struct {
	Records []AuditRecordResponse `json:"records"`
}

func mapCustomerToResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func mapAuditRecordToResponse(rec *audit.Record) AuditRecordResponse {
	resp := AuditRecordResponse{
		ID:            rec.ID.String(),
		Operation:     string(rec.Operation),
		Amount:        rec.Amount,
		BalanceBefore: rec.BalanceBefore,
		BalanceAfter:  rec.BalanceAfter,
		Actor:         rec.Actor,
		Detail:        rec.Detail,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.CustomerID != nil {
		resp.CustomerID = rec.CustomerID.String()
	}
	if rec.ContainerID != nil {
		resp.ContainerID = rec.ContainerID.String()
	}
	if rec.EntryID != nil {
		resp.EntryID = rec.EntryID.String()
	}
	return resp
}

func mapShipmentToResponse(s *shipment.Shipment) ShipmentResponse {
	resp := ShipmentResponse{
		ID:             s.ID.String(),
		CustomerID:     s.CustomerID.String(),
		Description:    s.Description,
		VIN:            s.VIN,
		Price:          money.Display(s.Price),
		InsuranceValue: money.Display(s.InsuranceValue),
		PaymentMode:    string(s.PaymentMode),
		PaymentStatus:  string(s.PaymentStatus),
		CreatedAt:      s.CreatedAt.Format(time.RFC3339),
	}
	if s.ContainerID != nil {
		resp.ContainerID = s.ContainerID.String()
	}
	return resp
}

func mapContainerToResponse(c *container.Container) ContainerResponse {
	return ContainerResponse{
		ID:        c.ID.String(),
		Number:    c.Number,
		Capacity:  c.Capacity,
		Status:    string(c.Status),
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
		UpdatedAt: c.UpdatedAt.Format(time.RFC3339),
	}
}

func mapExpenseToResponse(e *container.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID.String(),
		ContainerID: e.ContainerID.String(),
		Type:        e.Type,
		Amount:      money.Display(e.Amount),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}

func mapEntryToResponse(e *ledger.Entry) EntryResponse {
	resp := EntryResponse{
		ID:              e.ID.String(),
		CustomerID:      e.CustomerID.String(),
		Description:     e.Description,
		Kind:            string(e.Kind),
		Origin:          string(e.Origin),
		Amount:          money.Display(e.Amount),
		BalanceAfter:    money.Display(e.BalanceAfter),
		TransactionDate: e.TransactionDate.Format(time.RFC3339),
		Seq:             e.Seq,
		CreatedBy:       e.CreatedBy,
		Notes:           e.Notes,
		CreatedAt:       e.CreatedAt.Format(time.RFC3339),
	}
	if e.ShipmentID != nil {
		resp.ShipmentID = e.ShipmentID.String()
	}
	return resp
}

func mapPaymentToResponse(r *billing.PaymentResult) PaymentResponse {
	resp := PaymentResponse{
		Entry:     mapEntryToResponse(r.TopEntry),
		Unapplied: money.Display(r.Unapplied),
	}
	for _, s := range r.Settlements {
		resp.Settlements = append(resp.Settlements, SettlementResponse{
			ShipmentID:   s.ShipmentID.String(),
			Applied:      money.Display(s.Applied),
			RemainingDue: money.Display(s.RemainingDue),
			Completed:    s.Completed,
		})
	}
	return resp
}

func mapInvoiceToResponse(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		ContainerID:   inv.ContainerID.String(),
		Status:        string(inv.Status),
		Origin:        string(inv.Origin),
		Subtotal:      money.Display(inv.Subtotal),
		Discount:      money.Display(inv.Discount),
		Tax:           money.Display(inv.Tax),
		Total:         money.Display(inv.Total),
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.CustomerID != nil {
		resp.CustomerID = inv.CustomerID.String()
	}
	if inv.DueDate != nil {
		resp.DueDate = inv.DueDate.Format(time.RFC3339)
	}
	for _, line := range inv.Lines {
		lineResp := LineItemResponse{
			Type:        string(line.Type),
			Description: line.Description,
			Quantity:    line.Quantity,
			UnitPrice:   money.Display(line.UnitPrice),
			Amount:      money.Display(line.Amount),
			Position:    line.Position,
		}
		if line.ShipmentID != nil {
			lineResp.ShipmentID = line.ShipmentID.String()
		}
		resp.Lines = append(resp.Lines, lineResp)
	}
	return resp
}

func mapInvoiceBatchToResponse(r *billing.InvoiceBatchResult) InvoiceBatchResponse {
	resp := InvoiceBatchResponse{
		Created:         []InvoiceResponse{},
		AlreadyExisting: []InvoiceResponse{},
	}
	for _, inv := range r.Created {
		resp.Created = append(resp.Created, mapInvoiceToResponse(inv))
	}
	for _, inv := range r.AlreadyExisting {
		resp.AlreadyExisting = append(resp.AlreadyExisting, mapInvoiceToResponse(inv))
	}
	return resp
}
