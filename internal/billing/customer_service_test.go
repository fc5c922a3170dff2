package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/customer"
)

func TestCreateCustomer_PersistsNewCustomer(t *testing.T) {
	customerRepo := &MockCustomerRepository{}
	customerRepo.On("Create", mock.Anything, mock.MatchedBy(func(c *customer.Customer) bool {
		return c.Name == "Amal Traders" && c.Email == "amal@example.com"
	})).Return(nil).Once()

	svc := NewCustomerService(customerRepo, &MockAuditRepository{}, newTestLogger())
	c, err := svc.CreateCustomer(context.Background(), "Amal Traders", "amal@example.com", "")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, c.ID)
	customerRepo.AssertExpectations(t)
}

func TestCreateCustomer_RejectsEmptyName(t *testing.T) {
	customerRepo := &MockCustomerRepository{}

	svc := NewCustomerService(customerRepo, &MockAuditRepository{}, newTestLogger())
	_, err := svc.CreateCustomer(context.Background(), "", "", "")

	assert.ErrorIs(t, err, customer.ErrEmptyName)
	customerRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestListAuditTrail_ClampsPageSize(t *testing.T) {
	customerID := uuid.New()
	customerRepo := &MockCustomerRepository{}
	auditRepo := &MockAuditRepository{}

	customerRepo.On("GetByID", mock.Anything, customerID).
		Return(&customer.Customer{ID: customerID, Name: "Amal Traders"}, nil).Once()
	auditRepo.On("ListByCustomer", mock.Anything, customerID, 50, 0).
		Return([]*audit.Record{
			{ID: uuid.New(), Operation: audit.OperationEntryRecorded, CreatedAt: time.Now().UTC()},
		}, nil).Once()

	svc := NewCustomerService(customerRepo, auditRepo, newTestLogger())
	records, err := svc.ListAuditTrail(context.Background(), customerID, 0, -3)

	require.NoError(t, err)
	assert.Len(t, records, 1)
	auditRepo.AssertExpectations(t)
}

func TestListAuditTrail_UnknownCustomer(t *testing.T) {
	customerID := uuid.New()
	customerRepo := &MockCustomerRepository{}
	auditRepo := &MockAuditRepository{}

	customerRepo.On("GetByID", mock.Anything, customerID).
		Return(nil, customer.ErrCustomerNotFound{CustomerID: customerID}).Once()

	svc := NewCustomerService(customerRepo, auditRepo, newTestLogger())
	_, err := svc.ListAuditTrail(context.Background(), customerID, 20, 0)

	assert.ErrorIs(t, err, customer.ErrCustomerNotFound{})
	auditRepo.AssertNotCalled(t, "ListByCustomer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
