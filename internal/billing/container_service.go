package billing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/container"
	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shipment"
)

// ContainerServiceImpl implements the ContainerService interface
type ContainerServiceImpl struct {
	db            TxRunner
	containerRepo container.Repository
	shipmentRepo  shipment.Repository
	autoInvoicer  AutoInvoiceService
	logger        *slog.Logger
}

func NewContainerService(
	db TxRunner,
	containerRepo container.Repository,
	shipmentRepo shipment.Repository,
	autoInvoicer AutoInvoiceService,
	logger *slog.Logger,
) ContainerService {
	return &ContainerServiceImpl{
		db:            db,
		containerRepo: containerRepo,
		shipmentRepo:  shipmentRepo,
		autoInvoicer:  autoInvoicer,
		logger:        logger,
	}
}

func (s *ContainerServiceImpl) CreateContainer(ctx context.Context, number string, capacity int) (*container.Container, error) {
	cont, err := container.NewContainer(number, capacity)
	if err != nil {
		return nil, err
	}
	if err := s.containerRepo.Create(ctx, cont); err != nil {
		return nil, err
	}
	return cont, nil
}

func (s *ContainerServiceImpl) GetContainer(ctx context.Context, id uuid.UUID) (*container.Container, error) {
	return s.containerRepo.GetByID(ctx, id)
}

// AssignShipment places a shipment into a container, enforcing capacity
// inside the transaction. The container row lock serializes the count against
// concurrent assignments, and the AND container_id IS NULL guard on the
// update keeps a shipment from being claimed twice.
func (s *ContainerServiceImpl) AssignShipment(ctx context.Context, containerID, shipmentID uuid.UUID) error {
	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		containerRepoTx := s.containerRepo.WithTx(tx)
		shipmentRepoTx := s.shipmentRepo.WithTx(tx)

		cont, err := containerRepoTx.LockForUpdate(ctx, containerID)
		if err != nil {
			return err
		}

		count, err := containerRepoTx.CountShipments(ctx, containerID)
		if err != nil {
			return err
		}
		if count >= cont.Capacity {
			return container.ErrCapacityExceeded{ContainerID: containerID, Capacity: cont.Capacity}
		}

		return shipmentRepoTx.AssignToContainer(ctx, shipmentID, containerID)
	})
}

func (s *ContainerServiceImpl) AddExpense(ctx context.Context, containerID uuid.UUID, expenseType string, amount decimal.Decimal) (*container.Expense, error) {
	exp, err := container.NewExpense(containerID, expenseType, amount)
	if err != nil {
		return nil, err
	}

	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		containerRepoTx := s.containerRepo.WithTx(tx)
		if _, err := containerRepoTx.GetByID(ctx, containerID); err != nil {
			return err
		}
		return containerRepoTx.AddExpense(ctx, exp)
	})
	if err != nil {
		return nil, err
	}
	return exp, nil
}

// ChangeStatus transitions the container and, when the new status is a
// terminal one, attempts the auto invoice. The status update commits first;
// auto-invoicing failures surface to the caller but the Kafka-driven worker
// retries the same transition event, so the invoice is not lost.
func (s *ContainerServiceImpl) ChangeStatus(ctx context.Context, containerID uuid.UUID, status container.Status, correlationID string) (*AutoInvoiceResult, error) {
	if !status.IsValid() {
		return nil, container.ErrInvalidStatus
	}

	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		containerRepoTx := s.containerRepo.WithTx(tx)
		if _, err := containerRepoTx.GetByID(ctx, containerID); err != nil {
			return err
		}
		return containerRepoTx.UpdateStatus(ctx, containerID, status)
	})
	if err != nil {
		return nil, err
	}

	if !status.Completed() {
		return &AutoInvoiceResult{Reason: "container not in a completed status"}, nil
	}

	return s.autoInvoicer.TryAutoInvoice(ctx, containerID, correlationID)
}
