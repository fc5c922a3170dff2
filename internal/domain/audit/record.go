// Package audit defines the billing operation trail kept in MongoDB.
// One document is written per core operation, after its Postgres transaction
// commits. The trail is the reporting/query side; the relational store stays
// the system of record.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Operation classifies an audit record.
type Operation string

const (
	OperationEntryRecorded    Operation = "ENTRY_RECORDED"
	OperationEntryDeleted     Operation = "ENTRY_DELETED"
	OperationPaymentAllocated Operation = "PAYMENT_ALLOCATED"
	OperationInvoiceGenerated Operation = "INVOICE_GENERATED"
	OperationAutoInvoice      Operation = "AUTO_INVOICE"
)

// Record is one audited billing operation.
type Record struct {
	ID            uuid.UUID  `json:"id" bson:"_id"`
	Operation     Operation  `json:"operation" bson:"operation"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty" bson:"customer_id,omitempty"`
	ContainerID   *uuid.UUID `json:"container_id,omitempty" bson:"container_id,omitempty"`
	EntryID       *uuid.UUID `json:"entry_id,omitempty" bson:"entry_id,omitempty"`
	Amount        string     `json:"amount,omitempty" bson:"amount,omitempty"`
	BalanceBefore string     `json:"balance_before,omitempty" bson:"balance_before,omitempty"`
	BalanceAfter  string     `json:"balance_after,omitempty" bson:"balance_after,omitempty"`
	Actor         string     `json:"actor,omitempty" bson:"actor,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	Detail        string     `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
}

// Repository manages the audit trail.
type Repository interface {
	Record(ctx context.Context, rec *Record) error
	ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*Record, error)
}
