package service

import (
	"context"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shared"
)

// TriggerService reacts to container status notifications from the tracking
// collaborator and drives the auto-invoice transition.
type TriggerService interface {
	HandleStatusEvent(ctx context.Context, event *shared.ContainerStatusEvent) error
}
