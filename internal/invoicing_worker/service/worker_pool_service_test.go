package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shared"
)

// MockTriggerService mocks the TriggerService interface
type MockTriggerService struct {
	mock.Mock
}

func (m *MockTriggerService) HandleStatusEvent(ctx context.Context, event *shared.ContainerStatusEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func TestWorkerPoolTriggerService_HandleStatusEvent(t *testing.T) {
	mockBaseService := &MockTriggerService{}
	logger := newTestLogger()

	event := &shared.ContainerStatusEvent{
		ContainerID:   uuid.New(),
		Status:        string(container.StatusReleased),
		OccurredAt:    time.Now().UTC(),
		CorrelationID: "corr-1",
	}

	workerPoolService, err := NewWorkerPoolTriggerService(
		mockBaseService,
		WorkerPoolConfig{Size: 2},
		logger,
	)
	assert.NoError(t, err)
	defer workerPoolService.Shutdown()

	tests := []struct {
		name          string
		setupMocks    func()
		expectedError error
	}{
		{
			name: "successful handling",
			setupMocks: func() {
				mockBaseService.On("HandleStatusEvent", mock.Anything, mock.AnythingOfType("*shared.ContainerStatusEvent")).Return(nil).Once()
			},
			expectedError: nil,
		},
		{
			name: "handling error",
			setupMocks: func() {
				mockBaseService.On("HandleStatusEvent", mock.Anything, mock.AnythingOfType("*shared.ContainerStatusEvent")).Return(errors.New("handling error")).Once()
			},
			expectedError: errors.New("handling error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMocks()

			err := workerPoolService.HandleStatusEvent(context.Background(), event)

			if tt.expectedError != nil {
				assert.EqualError(t, err, tt.expectedError.Error())
			} else {
				assert.NoError(t, err)
			}
			mockBaseService.AssertExpectations(t)
		})
	}
}

func TestWorkerPoolTriggerService_ConcurrentEvents(t *testing.T) {
	mockBaseService := &MockTriggerService{}

	workerPoolService, err := NewWorkerPoolTriggerService(
		mockBaseService,
		WorkerPoolConfig{Size: 4},
		newTestLogger(),
	)
	assert.NoError(t, err)
	defer workerPoolService.Shutdown()

	const eventCount = 8
	mockBaseService.On("HandleStatusEvent", mock.Anything, mock.AnythingOfType("*shared.ContainerStatusEvent")).Return(nil).Times(eventCount)

	var wg sync.WaitGroup
	for i := 0; i < eventCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := workerPoolService.HandleStatusEvent(context.Background(), &shared.ContainerStatusEvent{
				ContainerID: uuid.New(),
				Status:      string(container.StatusClosed),
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mockBaseService.AssertExpectations(t)
	assert.Equal(t, 4, workerPoolService.Capacity())
}
