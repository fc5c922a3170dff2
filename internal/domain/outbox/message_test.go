package outbox

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	customerID := uuid.New()
	event := &InvoiceGeneratedEvent{
		InvoiceID:     uuid.New(),
		InvoiceNumber: "INV-00000007",
		CustomerID:    &customerID,
		ContainerID:   uuid.New(),
		Origin:        "MANUAL",
		Status:        "DRAFT",
		Total:         "1234.56",
		GeneratedAt:   time.Now().UTC(),
	}

	msg, err := NewMessage(event)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, msg.Status)
	assert.Equal(t, event.InvoiceID, msg.InvoiceID)
	assert.Equal(t, event.ContainerID, msg.ContainerID)
	assert.Zero(t, msg.Attempts)

	decoded, err := msg.Event()
	require.NoError(t, err)
	assert.Equal(t, event.InvoiceNumber, decoded.InvoiceNumber)
	assert.Equal(t, event.Total, decoded.Total)
	require.NotNil(t, decoded.CustomerID)
	assert.Equal(t, customerID, *decoded.CustomerID)
}

func TestMessageEventRejectsGarbage(t *testing.T) {
	msg := &Message{Payload: []byte("not-json")}
	_, err := msg.Event()
	assert.Error(t, err)
}
