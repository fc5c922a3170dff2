package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
)

// CustomerServiceImpl implements the CustomerService interface
type CustomerServiceImpl struct {
	customerRepo customer.Repository
	auditRepo    audit.Repository
	logger       *slog.Logger
}

func NewCustomerService(customerRepo customer.Repository, auditRepo audit.Repository, logger *slog.Logger) CustomerService {
	return &CustomerServiceImpl{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		logger:       logger,
	}
}

func (s *CustomerServiceImpl) CreateCustomer(ctx context.Context, name, email, phone string) (*customer.Customer, error) {
	c, err := customer.NewCustomer(name, email, phone)
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CustomerServiceImpl) GetCustomer(ctx context.Context, id uuid.UUID) (*customer.Customer, error) {
	return s.customerRepo.GetByID(ctx, id)
}

// ListAuditTrail serves the customer's operation history from the Mongo
// trail. The customer lookup keeps unknown IDs a 404 instead of an empty
// page.
func (s *CustomerServiceImpl) ListAuditTrail(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	if _, err := s.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.auditRepo.ListByCustomer(ctx, customerID, limit, offset)
}
