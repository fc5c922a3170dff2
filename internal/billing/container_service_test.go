package billing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
)

func newContainerFixture() (*MockContainerRepository, *MockShipmentRepository, *MockAutoInvoiceService, ContainerService) {
	containerRepo := new(MockContainerRepository)
	shipmentRepo := new(MockShipmentRepository)
	autoInvoicer := new(MockAutoInvoiceService)
	svc := NewContainerService(fakeTxRunner{}, containerRepo, shipmentRepo, autoInvoicer, newTestLogger())
	return containerRepo, shipmentRepo, autoInvoicer, svc
}

func TestAssignShipment_EnforcesCapacity(t *testing.T) {
	containerRepo, shipmentRepo, _, svc := newContainerFixture()

	containerID := uuid.New()
	shipmentID := uuid.New()

	containerRepo.On("LockForUpdate", mock.Anything, containerID).Return(&container.Container{ID: containerID, Number: "CNT-1", Capacity: 4}, nil)
	containerRepo.On("CountShipments", mock.Anything, containerID).Return(4, nil)

	err := svc.AssignShipment(context.Background(), containerID, shipmentID)

	require.Error(t, err)
	assert.ErrorAs(t, err, &container.ErrCapacityExceeded{})
	shipmentRepo.AssertNotCalled(t, "AssignToContainer", mock.Anything, mock.Anything, mock.Anything)
}

// The shipment count must happen under the container row lock; otherwise two
// concurrent assignments can both see a free slot and overfill the container.
func TestAssignShipment_CountsUnderContainerLock(t *testing.T) {
	containerRepo, shipmentRepo, _, svc := newContainerFixture()

	containerID := uuid.New()
	shipmentID := uuid.New()

	locked := false
	containerRepo.On("LockForUpdate", mock.Anything, containerID).Run(func(mock.Arguments) {
		locked = true
	}).Return(&container.Container{ID: containerID, Number: "CNT-1", Capacity: 2}, nil)
	containerRepo.On("CountShipments", mock.Anything, containerID).Run(func(mock.Arguments) {
		assert.True(t, locked, "shipments counted before the container lock was taken")
	}).Return(1, nil)
	shipmentRepo.On("AssignToContainer", mock.Anything, shipmentID, containerID).Return(nil)

	err := svc.AssignShipment(context.Background(), containerID, shipmentID)

	require.NoError(t, err)
	containerRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	shipmentRepo.AssertExpectations(t)
}

func TestAssignShipment_AssignsWhenRoomRemains(t *testing.T) {
	containerRepo, shipmentRepo, _, svc := newContainerFixture()

	containerID := uuid.New()
	shipmentID := uuid.New()

	containerRepo.On("LockForUpdate", mock.Anything, containerID).Return(&container.Container{ID: containerID, Number: "CNT-1", Capacity: 4}, nil)
	containerRepo.On("CountShipments", mock.Anything, containerID).Return(3, nil)
	shipmentRepo.On("AssignToContainer", mock.Anything, shipmentID, containerID).Return(nil)

	err := svc.AssignShipment(context.Background(), containerID, shipmentID)

	require.NoError(t, err)
	shipmentRepo.AssertExpectations(t)
}

func TestAddExpense_ValidatesAndPersists(t *testing.T) {
	containerRepo, _, _, svc := newContainerFixture()

	containerID := uuid.New()
	containerRepo.On("GetByID", mock.Anything, containerID).Return(&container.Container{ID: containerID, Number: "CNT-2", Capacity: 4}, nil)
	containerRepo.On("AddExpense", mock.Anything, mock.AnythingOfType("*container.Expense")).Return(nil)

	exp, err := svc.AddExpense(context.Background(), containerID, "CUSTOMS", decimal.NewFromInt(450))

	require.NoError(t, err)
	assert.Equal(t, "CUSTOMS", exp.Type)
	assert.True(t, exp.Amount.Equal(decimal.NewFromInt(450)))

	_, err = svc.AddExpense(context.Background(), containerID, "", decimal.NewFromInt(10))
	assert.Error(t, err)

	_, err = svc.AddExpense(context.Background(), containerID, "FREIGHT", decimal.Zero)
	assert.Error(t, err)
}

func TestChangeStatus_TerminalTriggersAutoInvoice(t *testing.T) {
	containerRepo, _, autoInvoicer, svc := newContainerFixture()

	containerID := uuid.New()
	containerRepo.On("GetByID", mock.Anything, containerID).Return(&container.Container{ID: containerID, Number: "CNT-3", Capacity: 4, Status: container.StatusArrived}, nil)
	containerRepo.On("UpdateStatus", mock.Anything, containerID, container.StatusReleased).Return(nil)
	autoInvoicer.On("TryAutoInvoice", mock.Anything, containerID, "corr-9").Return(&AutoInvoiceResult{Generated: true}, nil)

	result, err := svc.ChangeStatus(context.Background(), containerID, container.StatusReleased, "corr-9")

	require.NoError(t, err)
	assert.True(t, result.Generated)
	autoInvoicer.AssertExpectations(t)
}

func TestChangeStatus_NonTerminalSkipsAutoInvoice(t *testing.T) {
	containerRepo, _, autoInvoicer, svc := newContainerFixture()

	containerID := uuid.New()
	containerRepo.On("GetByID", mock.Anything, containerID).Return(&container.Container{ID: containerID, Number: "CNT-4", Capacity: 4, Status: container.StatusLoaded}, nil)
	containerRepo.On("UpdateStatus", mock.Anything, containerID, container.StatusInTransit).Return(nil)

	result, err := svc.ChangeStatus(context.Background(), containerID, container.StatusInTransit, "corr-10")

	require.NoError(t, err)
	assert.False(t, result.Generated)
	autoInvoicer.AssertNotCalled(t, "TryAutoInvoice", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeStatus_RejectsUnknownStatus(t *testing.T) {
	_, _, _, svc := newContainerFixture()

	_, err := svc.ChangeStatus(context.Background(), uuid.New(), "SUNK", "corr-11")

	require.Error(t, err)
	assert.ErrorIs(t, err, container.ErrInvalidStatus)
}
