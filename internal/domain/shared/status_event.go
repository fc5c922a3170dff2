package shared

import (
	"time"

	"github.com/google/uuid"
)

// ContainerStatusEvent is the notification the tracking collaborator
// publishes when a container's carrier status changes. The billing core does
// not parse carrier payloads; the aggregator has already normalized them to
// this shape. The worker uses it only to decide when to attempt
// auto-invoicing.
type ContainerStatusEvent struct {
	ContainerID   uuid.UUID `json:"container_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}
