package customer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrEmptyName = errors.New("customer name cannot be empty")

// Customer owns ledger entries, shipments, and invoices. The row doubles as
// the per-customer serialization point: ledger writes lock it FOR UPDATE so
// "read latest balance, then append" cannot interleave.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCustomer(name, email, phone string) (*Customer, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	now := time.Now().UTC()
	return &Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
