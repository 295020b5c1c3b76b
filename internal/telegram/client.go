// Package telegram hosts the Telegram client, routing, and handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/shaown803/XbetMasterAgentBot/internal/config"
	"github.com/shaown803/XbetMasterAgentBot/internal/domain"
	"github.com/shaown803/XbetMasterAgentBot/internal/logging"
	"github.com/shaown803/XbetMasterAgentBot/internal/session"
	"github.com/shaown803/XbetMasterAgentBot/internal/store"
)

type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
}

// workflow is the approval coordinator surface the handlers need.
type workflow interface {
	Submit(ctx context.Context, request domain.TransactionRequest) (string, error)
	Decide(ctx context.Context, id string, decision domain.Decision, adminID int64) (domain.TransactionRequest, error)
}

type userRegistrar interface {
	EnsureUser(ctx context.Context, userID int64, username string) (bool, error)
}

type groupRegistrar interface {
	EnsureGroup(ctx context.Context, chatID int64, title string) (bool, error)
}

type statsCollector interface {
	Collect(ctx context.Context) (store.Stats, error)
}

var (
	defaultAllowedUpdates = bot.AllowedUpdates{
		"message",
		"edited_message",
		"callback_query",
		"my_chat_member",
		"chat_member",
	}

	createBot = func(token string, options ...bot.Option) (botAPI, error) {
		return bot.New(token, options...)
	}
)

// Client wraps the Telegram bot instance and the workflow dependencies the
// handlers route into.
type Client struct {
	bot          botAPI
	logger       *logrus.Entry
	cfg          config.Config
	sessions     *session.Store
	workflow     workflow
	users        userRegistrar
	groups       groupRegistrar
	stats        statsCollector
	processStart time.Time
}

// Option customizes the Client during construction.
type Option func(*Client)

// WithSessionStore wires the per-user form session store.
func WithSessionStore(sessions *session.Store) Option {
	return func(c *Client) { c.sessions = sessions }
}

// WithWorkflow wires the approval workflow coordinator.
func WithWorkflow(w workflow) Option {
	return func(c *Client) { c.workflow = w }
}

// WithUserRegistrar wires the registrar that upserts users on contact.
func WithUserRegistrar(r userRegistrar) Option {
	return func(c *Client) { c.users = r }
}

// WithGroupRegistrar wires the registrar that tracks group chats.
func WithGroupRegistrar(r groupRegistrar) Option {
	return func(c *Client) { c.groups = r }
}

// WithStatsProvider wires the stats source for the owner stats command.
func WithStatsProvider(s statsCollector) Option {
	return func(c *Client) { c.stats = s }
}

// WithProcessStart records the process start time for the stats command.
func WithProcessStart(start time.Time) Option {
	return func(c *Client) { c.processStart = start }
}

// NewClient initializes the Telegram bot with long polling and default handlers.
func NewClient(cfg config.Config, logger *logrus.Entry, options ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.TelegramToken) == "" {
		return nil, errors.New("telegram token is required")
	}
	if logger == nil {
		logger = logging.Logger()
	}

	client := &Client{
		logger:       logger,
		cfg:          cfg,
		processStart: time.Now(),
	}

	for _, opt := range options {
		opt(client)
	}

	tgBot, err := createBot(cfg.TelegramToken,
		bot.WithAllowedUpdates(defaultAllowedUpdates),
		bot.WithDefaultHandler(client.handleUpdate),
		bot.WithErrorsHandler(errorHandler(logger)),
	)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot client: %w", err)
	}

	client.bot = tgBot
	return client, nil
}

// Messenger returns a Messenger bound to this client's API connection.
func (c *Client) Messenger() *Messenger {
	return NewMessenger(c.bot, c.logger)
}

// SetWorkflow wires the approval coordinator after construction. The
// coordinator needs this client's messenger, so wiring happens in two steps.
func (c *Client) SetWorkflow(w workflow) {
	c.workflow = w
}

// Start registers the command menu and begins receiving updates via long
// polling until the context is canceled.
func (c *Client) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.registerCommands(ctx)

	c.logger.WithFields(logging.Fields{
		"event":           "telegram_listen",
		"allowed_updates": defaultAllowedUpdates,
	}).Info("starting telegram long polling")

	c.bot.Start(ctx)

	c.logger.WithField("event", "telegram_stopped").Info("telegram polling stopped")
}

func (c *Client) registerCommands(ctx context.Context) {
	commands := []models.BotCommand{
		{Command: "start", Description: "Show the main menu"},
		{Command: "deposit", Description: "File a deposit request"},
		{Command: "withdraw", Description: "File a withdrawal request"},
		{Command: "cancel", Description: "Cancel the current request"},
		{Command: "history", Description: "Open the transaction history"},
		{Command: "contact", Description: "Contact the admins"},
	}

	if _, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{Commands: commands}); err != nil {
		c.logger.WithField("event", "commands_setup_failed").WithError(err).Warn("failed to register bot commands")
	}
}

func errorHandler(logger *logrus.Entry) bot.ErrorsHandler {
	if logger == nil {
		logger = logging.Logger()
	}

	return func(err error) {
		if err == nil {
			return
		}

		logger.WithField("event", "telegram_error").WithError(err).Error("telegram polling error")
	}
}
