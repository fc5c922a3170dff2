package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shipledger/vehicle-billing-ledger/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "billing_audit"
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Record stores one audit document. Writes happen after the relational
// transaction commits; a failure here is logged by the caller, never
// propagated into the billing path.
func (r *AuditRepository) Record(ctx context.Context, rec *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	_, err := collection.InsertOne(ctx, rec)
	if err != nil {
		r.logger.Error("Failed to record audit document",
			"operation", string(rec.Operation),
			"error", err)
		return fmt.Errorf("failed to record audit document: %w", err)
	}

	return nil
}

// ListByCustomer retrieves paginated audit records for a customer.
// Results are sorted by creation time in descending order (newest first).
func (r *AuditRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID, limit, offset int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	filter := bson.M{"customer_id": customerID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"customer_id", customerID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
