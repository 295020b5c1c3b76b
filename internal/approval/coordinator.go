// Package approval routes finalized transaction requests through the admin
// approval workflow: persist as pending, post to the admin group, and apply
// the terminal decision with its side effects.
package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
)

// Storage persists transaction requests.
type Storage interface {
	InsertPending(ctx context.Context, request domain.TransactionRequest) (string, error)
	FindByID(ctx context.Context, id string) (domain.TransactionRequest, error)
	Decide(ctx context.Context, id string, status domain.TransactionStatus, adminID int64) error
}

// Messenger delivers outbound messages to users and groups.
type Messenger interface {
	Notify(ctx context.Context, userID int64, text string) error
	PostForApproval(ctx context.Context, chatID int64, summary, requestID string) error
	PostHistory(ctx context.Context, chatID int64, text string) error
}

// Ledger records the agent's commission for approved requests.
type Ledger interface {
	ApplyCommission(ctx context.Context, request domain.TransactionRequest, rate decimal.Decimal) error
}

// Authorizer decides whether a user may approve or reject requests.
type Authorizer interface {
	CanDecide(ctx context.Context, userID int64) (bool, error)
}

// Config carries the chat targets and commission rates for the workflow.
type Config struct {
	AdminChatID          int64
	HistoryChatID        int64 // 0 disables the history feed
	DepositCommission    decimal.Decimal
	WithdrawalCommission decimal.Decimal
}

// Coordinator owns a request from submission to its terminal status.
type Coordinator struct {
	storage   Storage
	messenger Messenger
	ledger    Ledger
	auth      Authorizer
	cfg       Config
	logger    *logrus.Entry
}

// NewCoordinator constructs a Coordinator.
func NewCoordinator(storage Storage, messenger Messenger, ledger Ledger, auth Authorizer, cfg Config, logger *logrus.Entry) *Coordinator {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Coordinator{
		storage:   storage,
		messenger: messenger,
		ledger:    ledger,
		auth:      auth,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit persists the request as pending and posts the approval card to the
// admin group. ErrDuplicateTransactionID passes through so the caller can tell
// the user the id was already submitted; other storage failures are wrapped
// and must surface as "try again later".
func (c *Coordinator) Submit(ctx context.Context, request domain.TransactionRequest) (string, error) {
	if c == nil || c.storage == nil {
		return "", errors.New("coordinator is not initialized")
	}
	if ctx == nil {
		return "", errors.New("context is required")
	}

	id, err := c.storage.InsertPending(ctx, request)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransactionID) {
			return "", err
		}
		return "", fmt.Errorf("persist request: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"event":      "request_submitted",
		"request_id": id,
		"kind":       request.Kind,
		"user_id":    request.RequesterID,
	}).Info("stored pending request")

	if err := c.messenger.PostForApproval(ctx, c.cfg.AdminChatID, Summary(request), id); err != nil {
		// The record is already pending; admins can still find it, so the
		// submission itself succeeds.
		c.logger.WithFields(logging.Fields{
			"event":      "approval_post_failed",
			"request_id": id,
		}).WithError(err).Error("failed to post approval card")
	}

	return id, nil
}

// Decide applies an admin decision to a pending request and runs the terminal
// side effects: requester notification, commission on approval, and the
// history feed entry. A second decision on the same request gets
// ErrAlreadyDecided and triggers no side effects.
func (c *Coordinator) Decide(ctx context.Context, id string, decision domain.Decision, adminID int64) (domain.TransactionRequest, error) {
	if c == nil || c.storage == nil {
		return domain.TransactionRequest{}, errors.New("coordinator is not initialized")
	}
	if ctx == nil {
		return domain.TransactionRequest{}, errors.New("context is required")
	}

	allowed, err := c.auth.CanDecide(ctx, adminID)
	if err != nil {
		return domain.TransactionRequest{}, fmt.Errorf("check decision rights: %w", err)
	}
	if !allowed {
		return domain.TransactionRequest{}, domain.ErrUnauthorized
	}

	status := decision.Status()
	if err := c.storage.Decide(ctx, id, status, adminID); err != nil {
		return domain.TransactionRequest{}, err
	}

	request, err := c.storage.FindByID(ctx, id)
	if err != nil {
		return domain.TransactionRequest{}, fmt.Errorf("load decided request: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"event":      "request_decided",
		"request_id": id,
		"status":     status,
		"admin_id":   adminID,
	}).Info("applied admin decision")

	c.notifyRequester(ctx, request)

	if status == domain.StatusApproved {
		rate := c.cfg.DepositCommission
		if request.Kind == domain.KindWithdrawal {
			rate = c.cfg.WithdrawalCommission
		}
		if err := c.ledger.ApplyCommission(ctx, request, rate); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":      "commission_failed",
				"request_id": id,
			}).WithError(err).Error("failed to record commission")
		}
	}

	if c.cfg.HistoryChatID != 0 {
		if err := c.messenger.PostHistory(ctx, c.cfg.HistoryChatID, historyLine(request)); err != nil {
			c.logger.WithFields(logging.Fields{
				"event":      "history_post_failed",
				"request_id": id,
			}).WithError(err).Warn("failed to post history entry")
		}
	}

	return request, nil
}

func (c *Coordinator) notifyRequester(ctx context.Context, request domain.TransactionRequest) {
	text := "✅ Your request has been approved!"
	if request.Status == domain.StatusRejected {
		text = "❌ Your request has been rejected."
	}

	if err := c.messenger.Notify(ctx, request.RequesterID, text); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":      "requester_notify_failed",
			"request_id": request.ID,
			"user_id":    request.RequesterID,
		}).WithError(err).Warn("failed to notify requester")
	}
}

// Summary renders the approval card text shown to admins.
func Summary(request domain.TransactionRequest) string {
	var b strings.Builder

	if request.Kind == domain.KindDeposit {
		b.WriteString("💰 Deposit request\n")
	} else {
		b.WriteString("📤 Withdrawal request\n")
	}

	fmt.Fprintf(&b, "Player ID: %s\n", request.PlayerID)
	if request.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", request.Name)
	}
	fmt.Fprintf(&b, "Amount: %s\n", request.Amount.StringFixed(2))
	fmt.Fprintf(&b, "Method: %s\n", request.PaymentMethod)
	fmt.Fprintf(&b, "Wallet: %s\n", request.WalletNumber)
	fmt.Fprintf(&b, "Transaction ID: %s", request.TransactionID)

	return b.String()
}

func historyLine(request domain.TransactionRequest) string {
	icon := "✅"
	if request.Status == domain.StatusRejected {
		icon = "❌"
	}
	return fmt.Sprintf("%s %s %s | %s (%s)",
		icon, request.Kind, request.Amount.StringFixed(2), request.TransactionID, request.Status)
}
