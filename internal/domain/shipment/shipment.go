package shipment

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
)

var (
	ErrInvalidPaymentMode = errors.New("invalid payment mode")
	ErrEmptyDescription   = errors.New("shipment description cannot be empty")
)

// PaymentMode distinguishes cash-on-intake revenue from billed receivables.
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "CASH"
	PaymentModeDue  PaymentMode = "DUE"
)

func (m PaymentMode) IsValid() bool {
	return m == PaymentModeCash || m == PaymentModeDue
}

// PaymentStatus tracks whether the shipment's charges are fully settled.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
)

// Shipment is one vehicle unit. Its outstanding due amount is never stored;
// it is derived from the ledger entries tagged to it.
type Shipment struct {
	ID             uuid.UUID       `json:"id"`
	CustomerID     uuid.UUID       `json:"customer_id"`
	ContainerID    *uuid.UUID      `json:"container_id,omitempty"`
	Description    string          `json:"description"`
	VIN            string          `json:"vin,omitempty"`
	Price          decimal.Decimal `json:"price"`
	InsuranceValue decimal.Decimal `json:"insurance_value"`
	PaymentMode    PaymentMode     `json:"payment_mode"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func NewShipment(customerID uuid.UUID, description, vin string, price, insuranceValue decimal.Decimal, mode PaymentMode) (*Shipment, error) {
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if !mode.IsValid() {
		return nil, ErrInvalidPaymentMode
	}
	if err := money.RequirePositive(price); err != nil {
		return nil, err
	}
	if err := money.RequireNonNegative(insuranceValue); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Shipment{
		ID:             uuid.New(),
		CustomerID:     customerID,
		Description:    description,
		VIN:            vin,
		Price:          price,
		InsuranceValue: insuranceValue,
		PaymentMode:    mode,
		PaymentStatus:  PaymentStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ChargeTotal is the amount billed at intake: price plus insurance if set.
func (s *Shipment) ChargeTotal() decimal.Decimal {
	return s.Price.Add(s.InsuranceValue)
}

// CashSettled reports whether the shipment qualifies for auto-invoicing:
// cash revenue that has already been collected.
func (s *Shipment) CashSettled() bool {
	return s.PaymentMode == PaymentModeCash && s.PaymentStatus == PaymentStatusCompleted
}
