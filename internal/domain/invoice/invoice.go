package invoice

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the invoice lifecycle. At most one non-CANCELLED invoice may
// exist per (customer, container) pair; CANCELLED invoices free the slot.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusSent, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// Origin records whether the system or an operator produced the invoice.
// Auto-invoice idempotency keys off this field, not off note text.
type Origin string

const (
	OriginManual Origin = "MANUAL"
	OriginAuto   Origin = "AUTO"
)

// LineType classifies a line item.
type LineType string

const (
	LineVehiclePrice  LineType = "VEHICLE_PRICE"
	LineInsurance     LineType = "INSURANCE"
	LineSharedExpense LineType = "SHARED_EXPENSE"
)

// Invoice is a generated, mostly-immutable billing document against one
// container. CustomerID is nil for container-level auto invoices, which
// cover settled cash revenue across all customers in the container.
type Invoice struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    *uuid.UUID      `json:"customer_id,omitempty"`
	ContainerID   uuid.UUID       `json:"container_id"`
	Status        Status          `json:"status"`
	Origin        Origin          `json:"origin"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Lines         []*LineItem     `json:"lines"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// LineItem is one priced row on an invoice, optionally tied to a shipment.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Type        LineType        `json:"type"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	ShipmentID  *uuid.UUID      `json:"shipment_id,omitempty"`
	Position    int             `json:"position"`
}

// NewLineItem builds a single-quantity line; Amount mirrors UnitPrice.
func NewLineItem(lineType LineType, description string, unitPrice decimal.Decimal, shipmentID *uuid.UUID, position int) *LineItem {
	return &LineItem{
		ID:          uuid.New(),
		Type:        lineType,
		Description: description,
		Quantity:    1,
		UnitPrice:   unitPrice,
		Amount:      unitPrice,
		ShipmentID:  shipmentID,
		Position:    position,
	}
}

// Totalize computes subtotal from the lines, applies the discount percent,
// and sets total = subtotal - discount + tax. Full decimal precision is
// carried; rounding happens only at display time.
func (inv *Invoice) Totalize(discountPercent decimal.Decimal) {
	subtotal := decimal.Zero
	for _, line := range inv.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	inv.Subtotal = subtotal
	inv.Discount = subtotal.Mul(discountPercent).Div(decimal.NewFromInt(100))
	inv.Total = subtotal.Sub(inv.Discount).Add(inv.Tax)
}
