package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
)

type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Messenger delivers workflow messages through the Telegram API. It backs the
// approval coordinator's outbound side: requester notifications, admin
// approval cards, and the history feed.
type Messenger struct {
	api    sender
	logger *logrus.Entry
}

// NewMessenger constructs a Messenger over the given API surface.
func NewMessenger(api sender, logger *logrus.Entry) *Messenger {
	if logger == nil {
		logger = logging.Logger()
	}

	return &Messenger{
		api:    api,
		logger: logger,
	}
}

// Notify sends a plain text message to a user's private chat.
func (m *Messenger) Notify(ctx context.Context, userID int64, text string) error {
	if m == nil || m.api == nil {
		return errors.New("messenger is not initialized")
	}

	if _, err := m.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: userID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("notify user %d: %w", userID, err)
	}

	return nil
}

// PostForApproval posts the request card to the admin group with approve and
// reject buttons carrying the request id.
func (m *Messenger) PostForApproval(ctx context.Context, chatID int64, summary, requestID string) error {
	if m == nil || m.api == nil {
		return errors.New("messenger is not initialized")
	}

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Approve", CallbackData: EncodeDecision(domain.DecisionApprove, requestID)},
				{Text: "❌ Reject", CallbackData: EncodeDecision(domain.DecisionReject, requestID)},
			},
		},
	}

	if _, err := m.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        summary,
		ReplyMarkup: keyboard,
	}); err != nil {
		return fmt.Errorf("post approval card: %w", err)
	}

	m.logger.WithFields(logging.Fields{
		"event":      "approval_card_posted",
		"chat_id":    chatID,
		"request_id": requestID,
	}).Info("posted approval card")

	return nil
}

// PostHistory appends a line to the history feed chat.
func (m *Messenger) PostHistory(ctx context.Context, chatID int64, text string) error {
	if m == nil || m.api == nil {
		return errors.New("messenger is not initialized")
	}

	if _, err := m.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return fmt.Errorf("post history entry: %w", err)
	}

	return nil
}
