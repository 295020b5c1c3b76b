package domain

import (
	"fmt"
	"strings"
	"time"
)

// TransactionKind distinguishes deposits from withdrawals.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// ParseKind converts user-facing text into a TransactionKind.
func ParseKind(value string) (TransactionKind, error) {
	switch TransactionKind(strings.ToLower(strings.TrimSpace(value))) {
	case KindDeposit:
		return KindDeposit, nil
	case KindWithdrawal:
		return KindWithdrawal, nil
	default:
		return "", fmt.Errorf("unknown transaction kind %q", value)
	}
}

// TransactionStatus is the lifecycle state of a stored request. Transitions
// are pending -> approved or pending -> rejected only; both are terminal.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusApproved TransactionStatus = "approved"
	StatusRejected TransactionStatus = "rejected"
)

// Decision is an admin's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ParseDecision converts callback text into a Decision.
func ParseDecision(value string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(value))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", fmt.Errorf("unknown decision %q", value)
	}
}

// Status returns the terminal status a decision leads to.
func (d Decision) Status() TransactionStatus {
	if d == DecisionApprove {
		return StatusApproved
	}
	return StatusRejected
}

// TransactionRequest is a deposit or withdrawal request awaiting or having
// received an admin decision. TransactionID must be unique among non-rejected
// requests of the same kind.
type TransactionRequest struct {
	ID            string            `bson:"_id" json:"id"`
	PlayerID      string            `bson:"player_id" json:"player_id"`
	Name          string            `bson:"name,omitempty" json:"name,omitempty"`
	Amount        Amount            `bson:"amount" json:"amount"`
	WalletNumber  string            `bson:"wallet_number" json:"wallet_number"`
	PaymentMethod string            `bson:"payment_method" json:"payment_method"`
	TransactionID string            `bson:"transaction_id" json:"transaction_id"`
	Kind          TransactionKind   `bson:"kind" json:"kind"`
	Status        TransactionStatus `bson:"status" json:"status"`
	RequesterID   int64             `bson:"requester_id" json:"requester_id"`
	DecidedBy     int64             `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"created_at"`
	DecidedAt     time.Time         `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
}
