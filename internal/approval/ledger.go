package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

type insertCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
}

// CommissionEntry is one ledger row crediting the agent's commission for an
// approved request.
type CommissionEntry struct {
	ID         string                 `bson:"_id" json:"id"`
	RequestID  string                 `bson:"request_id" json:"request_id"`
	Kind       domain.TransactionKind `bson:"kind" json:"kind"`
	Amount     domain.Amount          `bson:"amount" json:"amount"`
	Rate       domain.Amount          `bson:"rate" json:"rate"`
	Commission domain.Amount          `bson:"commission" json:"commission"`
	CreatedAt  time.Time              `bson:"created_at" json:"created_at"`
}

// MongoLedger records commission entries in the ledger collection.
type MongoLedger struct {
	entries insertCollection
}

// NewMongoLedger constructs a MongoLedger over the given collection.
func NewMongoLedger(entries insertCollection) *MongoLedger {
	return &MongoLedger{entries: entries}
}

// ApplyCommission computes amount*rate and appends a ledger entry for the
// approved request.
func (l *MongoLedger) ApplyCommission(ctx context.Context, request domain.TransactionRequest, rate decimal.Decimal) error {
	if l == nil || l.entries == nil {
		return errors.New("ledger is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}

	entry := CommissionEntry{
		ID:         uuid.NewString(),
		RequestID:  request.ID,
		Kind:       request.Kind,
		Amount:     request.Amount,
		Rate:       domain.NewAmount(rate),
		Commission: domain.NewAmount(request.Amount.Mul(rate)),
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := l.entries.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert commission entry: %w", err)
	}

	return nil
}
