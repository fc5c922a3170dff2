// Package billing_api wires the HTTP surface of the billing back office:
// customers, shipments, containers, ledger entries, payments, and invoices.
package billing_api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing"
	"github.com/shipledger/vehicle-billing-ledger/internal/billing_api/handler"
	"github.com/shipledger/vehicle-billing-ledger/internal/config"
)

// Services bundles everything the HTTP layer depends on.
type Services struct {
	Customers  billing.CustomerService
	Shipments  billing.ShipmentService
	Containers billing.ContainerService
	Ledger     billing.LedgerService
	Payments   billing.PaymentService
	Invoices   billing.InvoiceService
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, services Services) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	customerHandler := handler.NewCustomerHandler(log, services.Customers, services.Ledger)
	shipmentHandler := handler.NewShipmentHandler(log, services.Shipments, services.Ledger)
	containerHandler := handler.NewContainerHandler(log, services.Containers, services.Invoices)
	ledgerHandler := handler.NewLedgerHandler(log, services.Ledger, services.Payments)
	invoiceHandler := handler.NewInvoiceHandler(log, services.Invoices)

	setupRouter(log, httpRouter, customerHandler, shipmentHandler, containerHandler, ledgerHandler, invoiceHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server with a timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.httpServer.WriteTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
