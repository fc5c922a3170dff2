package container

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/money"
)

var (
	ErrInvalidStatus    = errors.New("invalid container status")
	ErrInvalidCapacity  = errors.New("container capacity must be positive")
	ErrEmptyNumber      = errors.New("container number cannot be empty")
	ErrEmptyExpenseType = errors.New("expense type cannot be empty")
)

// Status is the container lifecycle. RELEASED and CLOSED are the completed
// states that make a container eligible for auto-invoicing.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusLoaded    Status = "LOADED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusArrived   Status = "ARRIVED"
	StatusReleased  Status = "RELEASED"
	StatusClosed    Status = "CLOSED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusLoaded, StatusInTransit, StatusArrived, StatusReleased, StatusClosed:
		return true
	}
	return false
}

// Completed reports whether the container has reached a terminal status.
func (s Status) Completed() bool {
	return s == StatusReleased || s == StatusClosed
}

// Container is a capacity-bounded batch of shipments sharing transport costs.
type Container struct {
	ID        uuid.UUID `json:"id"`
	Number    string    `json:"number"`
	Capacity  int       `json:"capacity"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewContainer(number string, capacity int) (*Container, error) {
	if number == "" {
		return nil, ErrEmptyNumber
	}
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	now := time.Now().UTC()
	return &Container{
		ID:        uuid.New(),
		Number:    number,
		Capacity:  capacity,
		Status:    StatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Expense is a container-level shared cost (customs, freight, storage)
// divided evenly across all shipments in the container at invoicing time.
type Expense struct {
	ID          uuid.UUID       `json:"id"`
	ContainerID uuid.UUID       `json:"container_id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewExpense(containerID uuid.UUID, expenseType string, amount decimal.Decimal) (*Expense, error) {
	if expenseType == "" {
		return nil, ErrEmptyExpenseType
	}
	if err := money.RequirePositive(amount); err != nil {
		return nil, err
	}
	return &Expense{
		ID:          uuid.New(),
		ContainerID: containerID,
		Type:        expenseType,
		Amount:      amount,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
