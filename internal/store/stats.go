// Package store encapsulates MongoDB client management and collection helpers.
package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// Stats summarizes the stored transaction requests for diagnostics.
type Stats struct {
	Users       int64
	Pending     int64
	Approved    int64
	Rejected    int64
	Deposits    int64
	Withdrawals int64
}

// StatsProvider exposes helper methods to retrieve collection counts for basic
// diagnostics without leaking MongoDB internals to callers.
type StatsProvider struct {
	users        countCollection
	transactions countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided user and
// transaction collections.
func NewStatsProvider(users, transactions countCollection) *StatsProvider {
	return &StatsProvider{
		users:        users,
		transactions: transactions,
	}
}

// CountUsers returns the number of documents in the users collection.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountByStatus returns the number of transactions in the given status.
func (p *StatsProvider) CountByStatus(ctx context.Context, status domain.TransactionStatus) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.transactions == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.transactions.CountDocuments(ctx, bson.D{{Key: "status", Value: status}})
	if err != nil {
		return 0, fmt.Errorf("count transactions by status: %w", err)
	}

	return count, nil
}

// CountByKind returns the number of transactions of the given kind.
func (p *StatsProvider) CountByKind(ctx context.Context, kind domain.TransactionKind) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.transactions == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.transactions.CountDocuments(ctx, bson.D{{Key: "kind", Value: kind}})
	if err != nil {
		return 0, fmt.Errorf("count transactions by kind: %w", err)
	}

	return count, nil
}

// Collect gathers the full stats snapshot used by the owner stats command.
func (p *StatsProvider) Collect(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	if stats.Users, err = p.CountUsers(ctx); err != nil {
		return Stats{}, err
	}
	if stats.Pending, err = p.CountByStatus(ctx, domain.StatusPending); err != nil {
		return Stats{}, err
	}
	if stats.Approved, err = p.CountByStatus(ctx, domain.StatusApproved); err != nil {
		return Stats{}, err
	}
	if stats.Rejected, err = p.CountByStatus(ctx, domain.StatusRejected); err != nil {
		return Stats{}, err
	}
	if stats.Deposits, err = p.CountByKind(ctx, domain.KindDeposit); err != nil {
		return Stats{}, err
	}
	if stats.Withdrawals, err = p.CountByKind(ctx, domain.KindWithdrawal); err != nil {
		return Stats{}, err
	}

	return stats, nil
}
