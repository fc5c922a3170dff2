package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/outbox"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/messaging/producers"
)

// InvoicePublisher publishes outbox messages to the invoice events topic
type InvoicePublisher interface {
	PublishInvoiceEvent(ctx context.Context, message *outbox.Message) error
}

// InvoicePublisherImpl implements InvoicePublisher
type InvoicePublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewInvoicePublisher creates a new publisher
func NewInvoicePublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) InvoicePublisher {
	return &InvoicePublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishInvoiceEvent decodes and publishes a message, then marks it
// PROCESSED. Messages are keyed by container so consumers see a container's
// invoices in order.
func (p *InvoicePublisherImpl) PublishInvoiceEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.Event()
	if err != nil {
		p.logger.Error("Failed to decode invoice event from outbox payload",
			"outbox_id", message.ID, "invoice_id", message.InvoiceID, "error", err,
		)
		// A payload that never unmarshals will never publish; park it now.
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after decode error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("decode payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Attempting to publish invoice event", "outbox_id", message.ID, "invoice_id", message.InvoiceID)

	if err := p.producer.Publish(ctx, message.ContainerID.String(), event); err != nil {
		logger.Error("Failed to publish invoice event", "outbox_id", message.ID, "invoice_id", message.InvoiceID, "error", err)
		return fmt.Errorf("failed to publish invoice event for outbox %d: %w", message.ID, err)
	}

	// Mark outbox message as processed
	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "invoice_id", message.InvoiceID, "error", err,
		)
		return fmt.Errorf("publish for invoice %s OK, but failed to mark outbox %d as PROCESSED: %w", message.InvoiceID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "invoice_id", message.InvoiceID)
	return nil
}
