package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/shared"
)

// WorkerPoolTriggerService fans status events out to a bounded worker pool
// while keeping the per-event error visible to the Kafka consumer, so offsets
// are only committed for events that actually completed.
type WorkerPoolTriggerService struct {
	baseService TriggerService
	pool        *ants.Pool
	logger      *slog.Logger
	// Use a mutex to protect access to the results map
	mu      sync.Mutex
	results map[string]chan error
}

type WorkerPoolConfig struct {
	Size int
}

func NewWorkerPoolTriggerService(
	baseService TriggerService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolTriggerService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolTriggerService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
		results:     make(map[string]chan error),
	}, nil
}

// HandleStatusEvent submits a status event to the worker pool and waits for
// its result.
func (s *WorkerPoolTriggerService) HandleStatusEvent(ctx context.Context, event *shared.ContainerStatusEvent) error {
	logger := s.logger
	if event.CorrelationID != "" {
		logger = s.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Submitting container status event to worker pool",
		"container_id", event.ContainerID.String(),
		"status", event.Status,
	)

	// Create a channel to receive the result of the event handling
	resultChan := make(chan error, 1)

	containerID := event.ContainerID.String()
	s.mu.Lock()
	s.results[containerID] = resultChan
	s.mu.Unlock()

	// Create a copy of the event to avoid data races
	eventCopy := *event

	err := s.pool.Submit(func() {
		err := s.baseService.HandleStatusEvent(ctx, &eventCopy)

		resultChan <- err

		s.mu.Lock()
		delete(s.results, containerID)
		close(resultChan)
		s.mu.Unlock()
	})

	if err != nil {
		// If we couldn't submit the task to the pool, remove the result channel
		s.mu.Lock()
		delete(s.results, containerID)
		close(resultChan)
		s.mu.Unlock()

		logger.Error("Failed to submit container status event to worker pool",
			"container_id", event.ContainerID.String(),
			"error", err,
		)
		return err
	}

	// Wait for the result from the worker
	return <-resultChan
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolTriggerService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolTriggerService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolTriggerService) Capacity() int {
	return s.pool.Cap()
}
