package outbox_poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/outbox"
)

// MockOutboxRepo for testing
type MockOutboxRepo struct {
	mock.Mock
}

func (m *MockOutboxRepo) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepo) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepo) UpdateStatus(ctx context.Context, id int64, status outbox.Status) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepo) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepo) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

// MockMessagePublisher for testing
type MockMessagePublisher struct {
	mock.Mock
}

func (m *MockMessagePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockMessagePublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingMessage(t *testing.T, id int64) *outbox.Message {
	t.Helper()
	customerID := uuid.New()
	msg, err := outbox.NewMessage(&outbox.InvoiceGeneratedEvent{
		InvoiceID:     uuid.New(),
		InvoiceNumber: "INV-00000042",
		CustomerID:    &customerID,
		ContainerID:   uuid.New(),
		Origin:        "MANUAL",
		Status:        "DRAFT",
		Total:         "9000",
		GeneratedAt:   time.Now().UTC(),
		CorrelationID: "corr-1",
	})
	require.NoError(t, err)
	msg.ID = id
	return msg
}

func TestInvoicePublisher_PublishInvoiceEvent(t *testing.T) {
	t.Run("publishes keyed by container and marks processed", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		msg := pendingMessage(t, 1)

		mockProducer.On("Publish", mock.Anything, msg.ContainerID.String(), mock.MatchedBy(func(v interface{}) bool {
			event, ok := v.(*outbox.InvoiceGeneratedEvent)
			return ok && event.InvoiceNumber == "INV-00000042" && event.CorrelationID == "corr-1"
		})).Return(nil).Once()
		mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(1), outbox.StatusProcessed).Return(nil).Once()

		publisher := NewInvoicePublisher(mockOutboxRepo, mockProducer, testLogger())
		err := publisher.PublishInvoiceEvent(context.Background(), msg)

		assert.NoError(t, err)
		mockOutboxRepo.AssertExpectations(t)
		mockProducer.AssertExpectations(t)
	})

	t.Run("publish failure leaves message pending", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		msg := pendingMessage(t, 2)

		mockProducer.On("Publish", mock.Anything, msg.ContainerID.String(), mock.Anything).Return(errors.New("kafka down")).Once()

		publisher := NewInvoicePublisher(mockOutboxRepo, mockProducer, testLogger())
		err := publisher.PublishInvoiceEvent(context.Background(), msg)

		assert.Error(t, err)
		mockOutboxRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("undecodable payload is parked immediately", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		msg := &outbox.Message{ID: 3, Payload: []byte("not-json"), Status: outbox.StatusPending}

		mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(3), outbox.StatusFailedToPublish).Return(nil).Once()

		publisher := NewInvoicePublisher(mockOutboxRepo, mockProducer, testLogger())
		err := publisher.PublishInvoiceEvent(context.Background(), msg)

		assert.Error(t, err)
		mockOutboxRepo.AssertExpectations(t)
		mockProducer.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("processed mark failure surfaces after successful publish", func(t *testing.T) {
		mockOutboxRepo := &MockOutboxRepo{}
		mockProducer := &MockMessagePublisher{}
		msg := pendingMessage(t, 4)

		mockProducer.On("Publish", mock.Anything, msg.ContainerID.String(), mock.Anything).Return(nil).Once()
		mockOutboxRepo.On("UpdateStatus", mock.Anything, int64(4), outbox.StatusProcessed).Return(errors.New("db error")).Once()

		publisher := NewInvoicePublisher(mockOutboxRepo, mockProducer, testLogger())
		err := publisher.PublishInvoiceEvent(context.Background(), msg)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "PROCESSED")
	})
}
