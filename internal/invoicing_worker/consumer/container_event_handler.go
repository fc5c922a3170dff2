package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shared"
	"github.com/shipledger/vehicle-billing-ledger/internal/invoicing_worker/service"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/messaging/producers"
)

// ContainerEventHandler handles incoming container status messages from Kafka
type ContainerEventHandler struct {
	triggerService service.TriggerService
	producer       producers.DeadLetterPublisher
	logger         *slog.Logger
}

// NewContainerEventHandler creates a new handler
func NewContainerEventHandler(
	logger *slog.Logger,
	triggerService service.TriggerService,
	producer producers.DeadLetterPublisher,
) *ContainerEventHandler {
	return &ContainerEventHandler{
		triggerService: triggerService,
		producer:       producer,
		logger:         logger,
	}
}

// HandleMessage processes Kafka messages
func (h *ContainerEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var event shared.ContainerStatusEvent
	if err := json.Unmarshal(value, &event); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal container status event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)
		return h.sendToDLQ(ctx, key, value, fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error()),
			fmt.Errorf("failed to unmarshal message value: %w", err))
	}

	// Structurally valid JSON that can never be applied goes to the DLQ too;
	// retrying it would loop forever.
	if event.ContainerID == uuid.Nil {
		reason := "container status event has no container id"
		h.logger.Error(reason, "message_key", string(key))
		return h.sendToDLQ(ctx, key, value, reason, fmt.Errorf("%s", reason))
	}
	if !container.Status(event.Status).IsValid() {
		reason := fmt.Sprintf("unknown container status %q", event.Status)
		h.logger.Error("Container status event carries an unknown status",
			"status", event.Status,
			"container_id", event.ContainerID.String(),
			"message_key", string(key),
		)
		return h.sendToDLQ(ctx, key, value, reason, fmt.Errorf("%s", reason))
	}

	// Add correlation ID to logger
	logger := h.logger
	if event.CorrelationID != "" {
		logger = h.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Received container status event",
		"container_id", event.ContainerID.String(),
		"status", event.Status,
		"occurred_at", event.OccurredAt,
	)

	if err := h.triggerService.HandleStatusEvent(ctx, &event); err != nil {
		logger.Error("Failed to handle container status event",
			"container_id", event.ContainerID.String(),
			"status", event.Status,
			"error", err,
		)
		return fmt.Errorf("handling status event for container %s failed: %w", event.ContainerID.String(), err)
	}

	logger.Info("Successfully handled container status event", "container_id", event.ContainerID.String())
	return nil // Success, commit offset
}

// sendToDLQ parks an unprocessable message. A successful DLQ publish commits
// the offset; a failed one returns fallbackErr so Kafka redelivers.
func (h *ContainerEventHandler) sendToDLQ(ctx context.Context, key, value []byte, reason string, fallbackErr error) error {
	if h.producer == nil {
		return fallbackErr
	}

	if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", dlqErr,
			"reason", reason,
			"message_key", string(key),
		)
		return fallbackErr
	}

	h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
	return nil
}
