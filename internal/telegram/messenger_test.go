package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

type recordingSender struct {
	sent []*bot.SendMessageParams
	err  error
}

func (r *recordingSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	r.sent = append(r.sent, params)
	return &models.Message{}, r.err
}

func newMessengerLogger() *logrus.Entry {
	logger, _ := logtest.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestNotifySendsToUserChat(t *testing.T) {
	sender := &recordingSender{}
	messenger := NewMessenger(sender, newMessengerLogger())

	if err := messenger.Notify(context.Background(), 42, "hello"); err != nil {
		t.Fatalf("expected notify to succeed, got error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}
	if sender.sent[0].ChatID != int64(42) || sender.sent[0].Text != "hello" {
		t.Fatalf("unexpected message params: %+v", sender.sent[0])
	}
}

func TestPostForApprovalAttachesDecisionButtons(t *testing.T) {
	sender := &recordingSender{}
	messenger := NewMessenger(sender, newMessengerLogger())

	if err := messenger.PostForApproval(context.Background(), -100, "card text", "req-1"); err != nil {
		t.Fatalf("expected approval post to succeed, got error: %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(sender.sent))
	}

	params := sender.sent[0]
	if params.ChatID != int64(-100) || params.Text != "card text" {
		t.Fatalf("unexpected message params: %+v", params)
	}

	keyboard, ok := params.ReplyMarkup.(*models.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("expected inline keyboard, got %T", params.ReplyMarkup)
	}
	if len(keyboard.InlineKeyboard) != 1 || len(keyboard.InlineKeyboard[0]) != 2 {
		t.Fatalf("expected one row with two buttons, got %v", keyboard.InlineKeyboard)
	}

	approve := keyboard.InlineKeyboard[0][0]
	reject := keyboard.InlineKeyboard[0][1]
	if approve.CallbackData != "decide:approve:req-1" {
		t.Fatalf("unexpected approve callback data: %s", approve.CallbackData)
	}
	if reject.CallbackData != "decide:reject:req-1" {
		t.Fatalf("unexpected reject callback data: %s", reject.CallbackData)
	}
}

func TestPostHistorySendsText(t *testing.T) {
	sender := &recordingSender{}
	messenger := NewMessenger(sender, newMessengerLogger())

	if err := messenger.PostHistory(context.Background(), -200, "✅ deposit 500.00"); err != nil {
		t.Fatalf("expected history post to succeed, got error: %v", err)
	}

	if len(sender.sent) != 1 || sender.sent[0].ChatID != int64(-200) {
		t.Fatalf("unexpected history message: %+v", sender.sent)
	}
}

func TestMessengerPropagatesSendErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("telegram down")}
	messenger := NewMessenger(sender, newMessengerLogger())

	if err := messenger.Notify(context.Background(), 42, "hello"); err == nil {
		t.Fatalf("expected notify error")
	}
	if err := messenger.PostForApproval(context.Background(), -100, "card", "req-1"); err == nil {
		t.Fatalf("expected approval post error")
	}
	if err := messenger.PostHistory(context.Background(), -200, "line"); err == nil {
		t.Fatalf("expected history post error")
	}
}

func TestMessengerRequiresInitialization(t *testing.T) {
	var messenger *Messenger

	if err := messenger.Notify(context.Background(), 42, "hello"); err == nil {
		t.Fatalf("expected error for nil messenger")
	}
}
