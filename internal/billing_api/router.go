package billing_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shipledger/vehicle-billing-ledger/internal/billing_api/handler"
	"github.com/shipledger/vehicle-billing-ledger/internal/billing_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	customerHandler *handler.CustomerHandler,
	shipmentHandler *handler.ShipmentHandler,
	containerHandler *handler.ContainerHandler,
	ledgerHandler *handler.LedgerHandler,
	invoiceHandler *handler.InvoiceHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		customers := v1.Group("/customers")
		{
			customers.POST("", customerHandler.Create)
			customers.GET("/:id", customerHandler.GetByID)
			customers.GET("/:id/ledger", customerHandler.GetLedger)
			customers.GET("/:id/audit", customerHandler.GetAuditTrail)
		}

		shipments := v1.Group("/shipments")
		{
			shipments.POST("", shipmentHandler.Create)
			shipments.GET("/:id", shipmentHandler.GetByID)
			shipments.GET("/:id/outstanding", shipmentHandler.GetOutstanding)
		}

		containers := v1.Group("/containers")
		{
			containers.POST("", containerHandler.Create)
			containers.GET("/:id", containerHandler.GetByID)
			containers.POST("/:id/shipments", containerHandler.AssignShipment)
			containers.POST("/:id/expenses", containerHandler.AddExpense)
			containers.PUT("/:id/status", containerHandler.ChangeStatus)
			containers.POST("/:id/invoices", containerHandler.GenerateInvoices)
			containers.GET("/:id/invoices", containerHandler.ListInvoices)
		}

		entries := v1.Group("/ledger/entries")
		{
			entries.POST("", ledgerHandler.RecordCharge)
			entries.GET("/:id", ledgerHandler.GetEntry)
			entries.DELETE("/:id", ledgerHandler.DeleteEntry)
		}

		v1.POST("/payments", ledgerHandler.RecordPayment)

		v1.GET("/invoices/:id", invoiceHandler.GetByID)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
