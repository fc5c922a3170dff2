package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shared"
)

// TriggerServiceImpl applies a status event to the container and lets the
// billing layer decide whether the transition produces an auto invoice.
type TriggerServiceImpl struct {
	containers billing.ContainerService
	logger     *slog.Logger
}

func NewTriggerService(containers billing.ContainerService, logger *slog.Logger) *TriggerServiceImpl {
	return &TriggerServiceImpl{
		containers: containers,
		logger:     logger,
	}
}

// HandleStatusEvent updates the container's status and reports the
// auto-invoice outcome. A "not yet" outcome (non-terminal status, no settled
// cash shipments, already invoiced) is logged and committed; only real
// failures propagate so the consumer can retry.
func (s *TriggerServiceImpl) HandleStatusEvent(ctx context.Context, event *shared.ContainerStatusEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	if event.ContainerID == uuid.Nil {
		return fmt.Errorf("container status event is missing a container id")
	}

	status := container.Status(event.Status)

	logger.Info("Applying container status event",
		"container_id", event.ContainerID.String(),
		"status", event.Status,
		"occurred_at", event.OccurredAt,
	)

	result, err := s.containers.ChangeStatus(ctx, event.ContainerID, status, event.CorrelationID)
	if err != nil {
		return fmt.Errorf("applying status %s to container %s failed: %w", event.Status, event.ContainerID.String(), err)
	}

	if result.Generated {
		logger.Info("Auto invoice generated for container",
			"container_id", event.ContainerID.String(),
			"invoice_id", result.Invoice.ID.String(),
			"invoice_number", result.Invoice.InvoiceNumber,
		)
	} else {
		logger.Info("Container status applied without auto invoice",
			"container_id", event.ContainerID.String(),
			"status", event.Status,
			"reason", result.Reason,
		)
	}
	return nil
}
