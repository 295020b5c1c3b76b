package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/form"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
)

const (
	msgWelcome          = "Welcome to the agent desk!\nUse the menu below to file a deposit or withdrawal request."
	msgCancelled        = "Request cancelled."
	msgNothingToCancel  = "You have no request in progress."
	msgNoSession        = "No request in progress. Use /start to begin."
	msgSubmitted        = "✅ Your request has been submitted for review."
	msgDuplicateTxnID   = "This transaction ID was already submitted. Please check it and start a new request."
	msgSubmitFailed     = "Something went wrong. Please try again later."
	msgUnknownCommand   = "Unknown command. Use /start to see the menu."
	msgHistoryMissing   = "The history feed is not available yet."
	msgContactMissing   = "Admin contact is not configured yet."
	msgStaleButton      = "This button is no longer active."
	msgDecideNotAllowed = "You are not allowed to decide requests."
	msgAlreadyDecided   = "This request was already decided."
	msgRequestNotFound  = "Request not found."
	msgDecideFailed     = "Could not apply the decision. Please try again."
)

var fieldLabels = map[string]string{
	form.FieldPaymentMethod:  "Method",
	form.FieldPlayerID:       "Player ID",
	form.FieldName:           "Name",
	form.FieldAmount:         "Amount",
	form.FieldWalletNumber:   "Wallet",
	form.FieldTransactionID:  "Transaction ID",
	form.FieldWithdrawalCode: "Withdrawal code",
}

func (c *Client) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	switch {
	case update.Message != nil:
		c.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery)
	case update.MyChatMember != nil:
		c.trackGroup(ctx, &update.MyChatMember.Chat)
	}
}

func (c *Client) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.Chat.Type != "private" {
		c.trackGroup(ctx, &msg.Chat)
		return
	}

	from := msg.From
	if from == nil {
		return
	}

	c.registerUser(ctx, from)

	text := strings.TrimSpace(msg.Text)
	switch {
	case text == "/start":
		c.sendMainMenu(ctx, msg.Chat.ID)
	case text == "/deposit":
		c.beginFlow(ctx, from.ID, msg.Chat.ID, domain.KindDeposit)
	case text == "/withdraw":
		c.beginFlow(ctx, from.ID, msg.Chat.ID, domain.KindWithdrawal)
	case text == "/cancel":
		c.cancelFlow(ctx, from.ID, msg.Chat.ID)
	case text == "/history":
		c.sendHistoryLink(ctx, msg.Chat.ID)
	case text == "/contact":
		c.sendAdminContact(ctx, msg.Chat.ID)
	case text == "/stats":
		c.sendStats(ctx, from.ID, msg.Chat.ID)
	case strings.HasPrefix(text, "/"):
		c.send(ctx, msg.Chat.ID, msgUnknownCommand, nil)
	default:
		c.recordAnswer(ctx, from.ID, msg.Chat.ID, text)
	}
}

func (c *Client) handleCallback(ctx context.Context, cq *models.CallbackQuery) {
	userID := cq.From.ID
	chatID := messageChatID(cq.Message)
	if chatID == 0 {
		chatID = userID
	}

	action, err := ParseAction(cq.Data)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "callback_unknown",
			"user_id": userID,
			"data":    cq.Data,
		}).Warn("ignoring unknown callback data")
		c.answerCallback(ctx, cq.ID, msgStaleButton)
		return
	}

	switch action.Type {
	case ActionMenu:
		c.registerUser(ctx, &cq.From)
		c.beginFlow(ctx, userID, chatID, action.Kind)
		c.answerCallback(ctx, cq.ID, "")
	case ActionMethod:
		c.selectMethod(ctx, userID, chatID, action.Method)
		c.answerCallback(ctx, cq.ID, "")
	case ActionSubmit:
		c.submitFlow(ctx, userID, chatID)
		c.answerCallback(ctx, cq.ID, "")
	case ActionCancel:
		c.cancelFlow(ctx, userID, chatID)
		c.answerCallback(ctx, cq.ID, "")
	case ActionDecide:
		c.answerCallback(ctx, cq.ID, c.decide(ctx, action, userID))
	}
}

func (c *Client) registerUser(ctx context.Context, from *models.User) {
	if c.users == nil || from == nil {
		return
	}

	if _, err := c.users.EnsureUser(ctx, from.ID, from.Username); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "user_register_failed",
			"user_id": from.ID,
		}).WithError(err).Warn("failed to upsert user")
	}
}

func (c *Client) trackGroup(ctx context.Context, chat *models.Chat) {
	if c.groups == nil || chat == nil || chat.ID == 0 {
		return
	}

	if _, err := c.groups.EnsureGroup(ctx, chat.ID, chat.Title); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "group_register_failed",
			"chat_id": chat.ID,
		}).WithError(err).Warn("failed to upsert group")
	}
}

func (c *Client) sendMainMenu(ctx context.Context, chatID int64) {
	rows := [][]models.InlineKeyboardButton{
		{
			{Text: "💰 Deposit", CallbackData: EncodeMenu(domain.KindDeposit)},
			{Text: "📤 Withdraw", CallbackData: EncodeMenu(domain.KindWithdrawal)},
		},
	}

	var extra []models.InlineKeyboardButton
	if c.cfg.HistoryGroupLink != "" {
		extra = append(extra, models.InlineKeyboardButton{Text: "📜 History", URL: c.cfg.HistoryGroupLink})
	}
	if link := contactLink(c.cfg.AdminContact); link != "" {
		extra = append(extra, models.InlineKeyboardButton{Text: "☎️ Contact admin", URL: link})
	}
	if len(extra) > 0 {
		rows = append(rows, extra)
	}

	c.send(ctx, chatID, msgWelcome, &models.InlineKeyboardMarkup{InlineKeyboard: rows})
}

func (c *Client) beginFlow(ctx context.Context, userID, chatID int64, kind domain.TransactionKind) {
	if c.sessions == nil {
		c.send(ctx, chatID, msgSubmitFailed, nil)
		return
	}

	first, err := c.sessions.Begin(userID, kind)
	if err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "flow_begin_failed",
			"user_id": userID,
			"kind":    kind,
		}).WithError(err).Error("failed to begin form session")
		c.send(ctx, chatID, msgSubmitFailed, nil)
		return
	}

	c.send(ctx, chatID, first.Prompt, c.methodKeyboard())
}

func (c *Client) methodKeyboard() *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, len(c.cfg.PaymentMethods))
	for _, method := range c.cfg.PaymentMethods {
		row = append(row, models.InlineKeyboardButton{Text: method, CallbackData: EncodeMethod(method)})
	}

	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{row}}
}

// selectMethod records the payment method button press as the first form
// answer and sends the payment instructions for the chosen method.
func (c *Client) selectMethod(ctx context.Context, userID, chatID int64, method string) {
	if c.sessions == nil {
		c.send(ctx, chatID, msgNoSession, nil)
		return
	}

	kind, _, ok := c.sessions.Progress(userID)
	if !ok {
		c.send(ctx, chatID, msgNoSession, nil)
		return
	}

	next, complete, err := c.sessions.RecordField(userID, method)
	if err != nil {
		c.replyToInvalidAnswer(ctx, userID, chatID, err)
		return
	}

	if instructions := c.paymentInstructions(kind, method); instructions != "" {
		c.send(ctx, chatID, instructions, nil)
	}

	if complete {
		c.sendConfirmation(ctx, userID, chatID)
		return
	}
	c.send(ctx, chatID, next.Prompt, nil)
}

func (c *Client) paymentInstructions(kind domain.TransactionKind, method string) string {
	if kind == domain.KindWithdrawal {
		if c.cfg.WithdrawalAddress == "" {
			return ""
		}
		return fmt.Sprintf("Withdraw from your betting account to:\n%s", c.cfg.WithdrawalAddress)
	}

	wallet, ok := c.cfg.WalletFor(method)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Send the money to our %s wallet:\n%s", method, wallet)
}

func (c *Client) recordAnswer(ctx context.Context, userID, chatID int64, raw string) {
	if c.sessions == nil || !c.sessions.Active(userID) {
		c.send(ctx, chatID, msgNoSession, nil)
		return
	}

	next, complete, err := c.sessions.RecordField(userID, raw)
	if err != nil {
		c.replyToInvalidAnswer(ctx, userID, chatID, err)
		return
	}

	if complete {
		c.sendConfirmation(ctx, userID, chatID)
		return
	}
	c.send(ctx, chatID, next.Prompt, nil)
}

// replyToInvalidAnswer tells the user why the answer was rejected and repeats
// the prompt for the same field. The form does not advance.
func (c *Client) replyToInvalidAnswer(ctx context.Context, userID, chatID int64, err error) {
	if errors.Is(err, domain.ErrSessionNotFound) {
		c.send(ctx, chatID, msgNoSession, nil)
		return
	}

	if ve, ok := domain.IsValidationError(err); ok {
		reply := fmt.Sprintf("⚠️ %s.", capitalizeReason(ve))
		if field, active := c.sessions.CurrentPrompt(userID); active {
			reply += "\n" + field.Prompt
			if field.Name == form.FieldPaymentMethod {
				c.send(ctx, chatID, reply, c.methodKeyboard())
				return
			}
		}
		c.send(ctx, chatID, reply, nil)
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":   "form_input_failed",
		"user_id": userID,
	}).WithError(err).Error("failed to record form answer")
	c.send(ctx, chatID, msgSubmitFailed, nil)
}

func capitalizeReason(ve *domain.ValidationError) string {
	label, ok := fieldLabels[ve.Field]
	if !ok {
		label = ve.Field
	}
	return fmt.Sprintf("%s %s", label, ve.Reason)
}

func (c *Client) sendConfirmation(ctx context.Context, userID, chatID int64) {
	kind, values, ok := c.sessions.Progress(userID)
	if !ok {
		c.send(ctx, chatID, msgNoSession, nil)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Please confirm your %s request:\n", kind)
	for _, v := range values {
		label, known := fieldLabels[v.Name]
		if !known {
			label = v.Name
		}
		fmt.Fprintf(&b, "%s: %s\n", label, v.Value)
	}
	b.WriteString("\nSubmit this request?")

	keyboard := &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "✅ Submit", CallbackData: string(ActionSubmit)},
				{Text: "❌ Cancel", CallbackData: string(ActionCancel)},
			},
		},
	}

	c.send(ctx, chatID, b.String(), keyboard)
}

func (c *Client) submitFlow(ctx context.Context, userID, chatID int64) {
	request, err := c.sessions.Finalize(userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.send(ctx, chatID, msgNoSession, nil)
		case errors.Is(err, domain.ErrIncompleteSession):
			if field, active := c.sessions.CurrentPrompt(userID); active {
				c.send(ctx, chatID, field.Prompt, nil)
			} else {
				c.send(ctx, chatID, msgNoSession, nil)
			}
		default:
			c.logger.WithFields(logging.Fields{
				"event":   "finalize_failed",
				"user_id": userID,
			}).WithError(err).Error("failed to finalize form")
			c.send(ctx, chatID, msgSubmitFailed, nil)
		}
		return
	}

	if c.workflow == nil {
		c.send(ctx, chatID, msgSubmitFailed, nil)
		return
	}

	id, err := c.workflow.Submit(ctx, request)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateTransactionID) {
			c.send(ctx, chatID, msgDuplicateTxnID, nil)
			return
		}
		c.logger.WithFields(logging.Fields{
			"event":   "submit_failed",
			"user_id": userID,
		}).WithError(err).Error("failed to submit request")
		c.send(ctx, chatID, msgSubmitFailed, nil)
		return
	}

	c.logger.WithFields(logging.Fields{
		"event":      "request_filed",
		"user_id":    userID,
		"request_id": id,
	}).Info("request filed for approval")

	c.send(ctx, chatID, msgSubmitted, nil)
}

func (c *Client) cancelFlow(ctx context.Context, userID, chatID int64) {
	if c.sessions == nil || !c.sessions.Active(userID) {
		c.send(ctx, chatID, msgNothingToCancel, nil)
		return
	}

	c.sessions.Cancel(userID)
	c.send(ctx, chatID, msgCancelled, nil)
}

// decide applies an admin decision and returns the callback answer text.
func (c *Client) decide(ctx context.Context, action Action, adminID int64) string {
	if c.workflow == nil {
		return msgDecideFailed
	}

	request, err := c.workflow.Decide(ctx, action.RequestID, action.Decision, adminID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			return msgDecideNotAllowed
		case errors.Is(err, domain.ErrAlreadyDecided):
			return msgAlreadyDecided
		case errors.Is(err, domain.ErrRequestNotFound):
			return msgRequestNotFound
		default:
			c.logger.WithFields(logging.Fields{
				"event":      "decision_failed",
				"request_id": action.RequestID,
				"admin_id":   adminID,
			}).WithError(err).Error("failed to apply decision")
			return msgDecideFailed
		}
	}

	if request.Status == domain.StatusApproved {
		return "✅ Approved"
	}
	return "❌ Rejected"
}

func (c *Client) sendHistoryLink(ctx context.Context, chatID int64) {
	if c.cfg.HistoryGroupLink == "" {
		c.send(ctx, chatID, msgHistoryMissing, nil)
		return
	}

	c.send(ctx, chatID, "Transaction history: "+c.cfg.HistoryGroupLink, nil)
}

func (c *Client) sendAdminContact(ctx context.Context, chatID int64) {
	if c.cfg.AdminContact == "" {
		c.send(ctx, chatID, msgContactMissing, nil)
		return
	}

	c.send(ctx, chatID, "Reach the admins at "+c.cfg.AdminContact, nil)
}

func (c *Client) sendStats(ctx context.Context, userID, chatID int64) {
	if userID != c.cfg.BotOwnerID || c.stats == nil {
		c.send(ctx, chatID, msgUnknownCommand, nil)
		return
	}

	stats, err := c.stats.Collect(ctx)
	if err != nil {
		c.logger.WithField("event", "stats_failed").WithError(err).Error("failed to collect stats")
		c.send(ctx, chatID, msgSubmitFailed, nil)
		return
	}

	uptime := time.Since(c.processStart).Round(time.Second)
	text := fmt.Sprintf(
		"📊 Bot stats\nUsers: %d\nPending: %d\nApproved: %d\nRejected: %d\nDeposits: %d\nWithdrawals: %d\nUptime: %s",
		stats.Users, stats.Pending, stats.Approved, stats.Rejected, stats.Deposits, stats.Withdrawals, uptime,
	)

	c.send(ctx, chatID, text, nil)
}

func (c *Client) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		c.logger.WithFields(logging.Fields{
			"event":   "send_failed",
			"chat_id": chatID,
		}).WithError(err).Error("failed to send message")
	}
}

func (c *Client) answerCallback(ctx context.Context, callbackID, text string) {
	params := &bot.AnswerCallbackQueryParams{CallbackQueryID: callbackID}
	if text != "" {
		params.Text = text
	}

	if _, err := c.bot.AnswerCallbackQuery(ctx, params); err != nil {
		c.logger.WithField("event", "callback_answer_failed").WithError(err).Warn("failed to answer callback query")
	}
}

func messageChatID(msg models.MaybeInaccessibleMessage) int64 {
	switch msg.Type {
	case models.MaybeInaccessibleMessageTypeMessage:
		if msg.Message == nil {
			return 0
		}
		return msg.Message.Chat.ID
	case models.MaybeInaccessibleMessageTypeInaccessibleMessage:
		if msg.InaccessibleMessage == nil {
			return 0
		}
		return msg.InaccessibleMessage.Chat.ID
	default:
		return 0
	}
}

func contactLink(handle string) string {
	handle = strings.TrimSpace(handle)
	if strings.HasPrefix(handle, "https://") {
		return handle
	}
	if strings.HasPrefix(handle, "@") && len(handle) > 1 {
		return "https://t.me/" + handle[1:]
	}
	return ""
}
