package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status defines message publishing states.
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusProcessed       Status = "PROCESSED"
	StatusFailedToPublish Status = "FAILED_TO_PUBLISH"
)

// InvoiceGeneratedEvent is the payload published to Kafka when an invoice is
// created. Downstream document and notification services consume it.
type InvoiceGeneratedEvent struct {
	InvoiceID     uuid.UUID  `json:"invoice_id"`
	InvoiceNumber string     `json:"invoice_number"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	ContainerID   uuid.UUID  `json:"container_id"`
	Origin        string     `json:"origin"`
	Status        string     `json:"status"`
	Total         string     `json:"total"`
	GeneratedAt   time.Time  `json:"generated_at"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// Message stores an invoice event for reliable publishing. Rows are written
// in the same transaction that creates the invoice and drained by the poller.
type Message struct {
	ID            int64           `json:"id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	ContainerID   uuid.UUID       `json:"container_id"`
	Payload       json.RawMessage `json:"payload"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *InvoiceGeneratedEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		InvoiceID:   event.InvoiceID,
		ContainerID: event.ContainerID,
		Payload:     payload,
		Status:      StatusPending,
		Attempts:    0,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// Event decodes the stored payload.
func (m *Message) Event() (*InvoiceGeneratedEvent, error) {
	var event InvoiceGeneratedEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
