package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/config"
	"github.com/shipledger/vehicle-billing-ledger/internal/data/mongo"
	"github.com/shipledger/vehicle-billing-ledger/internal/data/postgres"
	"github.com/shipledger/vehicle-billing-ledger/internal/invoicing_worker/consumer"
	"github.com/shipledger/vehicle-billing-ledger/internal/invoicing_worker/outbox_poller"
	"github.com/shipledger/vehicle-billing-ledger/internal/invoicing_worker/service"
	"github.com/shipledger/vehicle-billing-ledger/internal/logger"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/messaging/consumers"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/messaging/producers"
	"github.com/shipledger/vehicle-billing-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("invoicing_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Invoicing Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	containerRepo := postgres.NewContainerRepository(log, postgresDB)
	shipmentRepo := postgres.NewShipmentRepository(log, postgresDB)
	invoiceRepo := postgres.NewInvoiceRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler is nil-safe.

	// Initialize Kafka producer for outbox invoice events
	invoiceProducer, err := producers.NewInvoiceEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize invoice event Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize the auto-invoice trigger behind a bounded worker pool
	autoInvoiceService := billing.NewAutoInvoiceService(postgresDB, containerRepo, shipmentRepo, invoiceRepo, outboxRepo, auditRepo, log)
	containerService := billing.NewContainerService(postgresDB, containerRepo, shipmentRepo, autoInvoiceService, log)
	triggerService, err := service.NewWorkerPoolTriggerService(
		service.NewTriggerService(containerService, log),
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize container event handler
	containerEventHandler := consumer.NewContainerEventHandler(
		log,
		triggerService,
		dlqProducer,
	)

	// Initialize outbox poller
	invoicePublisher := outbox_poller.NewInvoicePublisher(
		outboxRepo,
		invoiceProducer,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		invoicePublisher,
		log,
	)

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.ContainerEventsTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.ContainerEventsTopic, cfg.Kafka.ConsumerGroup, containerEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting outbox poller",
			"poll_interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", triggerService.Running())
	triggerService.Shutdown()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	if err = invoiceProducer.Close(); err != nil {
		log.Error("Error closing invoice event Kafka producer", "error", err)
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Invoicing Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Invoicing Worker shutdown completed with errors")
	} else {
		log.Info("Invoicing Worker shutdown completed successfully")
	}
}
