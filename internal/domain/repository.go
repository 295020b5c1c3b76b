package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type insertFindCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

type transactionCollection interface {
	insertFindCollection
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// UserRepository persists and retrieves users in MongoDB.
type UserRepository struct {
	collection insertFindCollection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(collection insertFindCollection) *UserRepository {
	return &UserRepository{collection: collection}
}

// Create inserts a user with populated timestamps, defaulting the role to
// RoleUser when omitted.
func (r *UserRepository) Create(ctx context.Context, user User) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, errors.New("context is required")
	}
	if user.UserID == 0 {
		return User{}, errors.New("user_id is required")
	}
	if user.Role == "" {
		user.Role = RoleUser
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	if user.LastSeenAt.IsZero() {
		user.LastSeenAt = now
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return user, nil
}

// GetByID fetches a user by Telegram user_id.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if ctx == nil {
		return User{}, errors.New("context is required")
	}
	if userID == 0 {
		return User{}, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": userID})
	if result == nil {
		return User{}, errors.New("find user returned no result")
	}
	if err := result.Err(); err != nil {
		return User{}, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// CanDecide reports whether the given user holds a role that may approve or
// reject requests. Unknown users may not.
func (r *UserRepository) CanDecide(ctx context.Context, userID int64) (bool, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	return CanDecide(user.Role), nil
}

// TransactionRepository persists and retrieves transaction requests in MongoDB.
type TransactionRepository struct {
	collection transactionCollection
}

// NewTransactionRepository constructs a TransactionRepository.
func NewTransactionRepository(collection transactionCollection) *TransactionRepository {
	return &TransactionRepository{collection: collection}
}

// InsertPending stores a request in pending status. It fails with
// ErrDuplicateTransactionID when a non-rejected request with the same
// transaction id and kind already exists; the partial unique index backstops
// the pre-check against concurrent inserts.
func (r *TransactionRepository) InsertPending(ctx context.Context, request TransactionRequest) (string, error) {
	if r == nil || r.collection == nil {
		return "", errors.New("transaction repository is not initialized")
	}
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if request.ID == "" {
		return "", errors.New("request id is required")
	}
	if request.TransactionID == "" {
		return "", errors.New("transaction_id is required")
	}

	request.Status = StatusPending
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{
		"transaction_id": request.TransactionID,
		"kind":           request.Kind,
		"status":         bson.M{"$in": bson.A{StatusPending, StatusApproved}},
	})
	if err != nil {
		return "", fmt.Errorf("check duplicate transaction: %w", err)
	}
	if count > 0 {
		return "", ErrDuplicateTransactionID
	}

	if _, err := r.collection.InsertOne(ctx, request); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateTransactionID
		}
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	return request.ID, nil
}

// FindByID fetches a stored request by its id, returning ErrRequestNotFound
// when no document matches.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (TransactionRequest, error) {
	if r == nil || r.collection == nil {
		return TransactionRequest{}, errors.New("transaction repository is not initialized")
	}
	if ctx == nil {
		return TransactionRequest{}, errors.New("context is required")
	}
	if id == "" {
		return TransactionRequest{}, errors.New("request id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"_id": id})
	if result == nil {
		return TransactionRequest{}, errors.New("find transaction returned no result")
	}
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return TransactionRequest{}, ErrRequestNotFound
		}
		return TransactionRequest{}, fmt.Errorf("find transaction: %w", err)
	}

	var request TransactionRequest
	if err := result.Decode(&request); err != nil {
		return TransactionRequest{}, fmt.Errorf("decode transaction: %w", err)
	}

	return request, nil
}

// Decide atomically moves a pending request to the given terminal status.
// The pending-only filter guarantees that of two concurrent decisions only one
// succeeds; the loser gets ErrAlreadyDecided.
func (r *TransactionRepository) Decide(ctx context.Context, id string, status TransactionStatus, adminID int64) error {
	if r == nil || r.collection == nil {
		return errors.New("transaction repository is not initialized")
	}
	if ctx == nil {
		return errors.New("context is required")
	}
	if id == "" {
		return errors.New("request id is required")
	}
	if status != StatusApproved && status != StatusRejected {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusPending},
		bson.M{"$set": bson.M{
			"status":     status,
			"decided_by": adminID,
			"decided_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}

	if result == nil || result.MatchedCount == 0 {
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return ErrAlreadyDecided
	}

	return nil
}
