// Package config defines the configuration contract and handles loading and
// validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken        = "TELEGRAM_TOKEN"
	KeyBotOwner             = "BOT_OWNER"
	KeyMongoURI             = "MONGO_URI"
	KeyMongoDB              = "MONGO_DB"
	KeyAdminGroupID         = "ADMIN_GROUP_ID"
	KeyHistoryChatID        = "HISTORY_CHAT_ID"
	KeyHistoryGroupLink     = "HISTORY_GROUP_LINK"
	KeyAdminContact         = "ADMIN_CONTACT"
	KeyPaymentMethods       = "PAYMENT_METHODS"
	KeyWithdrawalAddress    = "WITHDRAWAL_ADDRESS"
	KeyDepositCommission    = "DEPOSIT_COMMISSION"
	KeyWithdrawalCommission = "WITHDRAWAL_COMMISSION"
	KeyAppEnv               = "APP_ENV"
	KeyLogLevel             = "LOG_LEVEL"
	KeyHTTPPort             = "HTTP_PORT"

	// WalletKeySuffix builds per-method wallet variable names, e.g. BKASH_WALLET.
	WalletKeySuffix = "_WALLET"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv               = EnvProduction
	DefaultLogLevel             = "info"
	DefaultHTTPPort             = 8080
	DefaultPaymentMethods       = "bKash,Nagad,Rocket,uPay"
	DefaultDepositCommission    = "0.05"
	DefaultWithdrawalCommission = "0.02"

	// Recommended database names by environment.
	DefaultMongoDBProd = "agent_bot"
	DefaultMongoDBDev  = "agent_bot_dev"
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyBotOwner,
		Example:     "123456789",
		Required:    true,
		Description: "Super admin Telegram user_id with owner privileges.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyAdminGroupID,
		Example:     "-1001234567890",
		Required:    true,
		Description: "Chat id of the admin group where request cards are posted.",
	},
	{
		Key:         KeyHistoryChatID,
		Example:     "-1009876543210",
		Description: "Chat id of the public history channel. History feed is disabled when unset.",
	},
	{
		Key:         KeyHistoryGroupLink,
		Example:     "https://t.me/+example",
		Description: "Invite link shared with users through the history button.",
	},
	{
		Key:         KeyAdminContact,
		Example:     "@support",
		Description: "Admin contact handle shared with users.",
	},
	{
		Key:         KeyPaymentMethods,
		Example:     DefaultPaymentMethods,
		Default:     DefaultPaymentMethods,
		Description: "Comma-separated payment methods offered to users.",
		Notes:       "Each method needs a matching <METHOD>_WALLET variable, e.g. BKASH_WALLET.",
	},
	{
		Key:         KeyWithdrawalAddress,
		Example:     "bkash-01700000000",
		Description: "Platform address users withdraw to before filing a withdrawal request.",
	},
	{
		Key:         KeyDepositCommission,
		Example:     DefaultDepositCommission,
		Default:     DefaultDepositCommission,
		Description: "Agent commission rate applied to approved deposits.",
	},
	{
		Key:         KeyWithdrawalCommission,
		Example:     DefaultWithdrawalCommission,
		Default:     DefaultWithdrawalCommission,
		Description: "Agent commission rate applied to approved withdrawals.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken        string
	BotOwnerID           int64
	MongoURI             string
	MongoDB              string
	AdminGroupID         int64
	HistoryChatID        int64
	HistoryGroupLink     string
	AdminContact         string
	PaymentMethods       []string
	Wallets              map[string]string
	WithdrawalAddress    string
	DepositCommission    decimal.Decimal
	WithdrawalCommission decimal.Decimal
	AppEnv               string
	LogLevel             string
	HTTPPort             int
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:            firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:     strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		MongoURI:          strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:           strings.TrimSpace(os.Getenv(KeyMongoDB)),
		HistoryGroupLink:  strings.TrimSpace(os.Getenv(KeyHistoryGroupLink)),
		AdminContact:      strings.TrimSpace(os.Getenv(KeyAdminContact)),
		WithdrawalAddress: strings.TrimSpace(os.Getenv(KeyWithdrawalAddress)),
		LogLevel:          firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:          DefaultHTTPPort,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}

	ownerRaw := strings.TrimSpace(os.Getenv(KeyBotOwner))
	if ownerRaw == "" {
		missing = append(missing, KeyBotOwner)
	} else {
		ownerID, parseErr := strconv.ParseInt(ownerRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyBotOwner, parseErr)
		}
		cfg.BotOwnerID = ownerID
	}

	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	} else if err := validateMongoURI(cfg.MongoURI); err != nil {
		return Config{}, err
	}

	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}

	adminGroupRaw := strings.TrimSpace(os.Getenv(KeyAdminGroupID))
	if adminGroupRaw == "" {
		missing = append(missing, KeyAdminGroupID)
	} else {
		groupID, parseErr := strconv.ParseInt(adminGroupRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyAdminGroupID, parseErr)
		}
		cfg.AdminGroupID = groupID
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if historyRaw := strings.TrimSpace(os.Getenv(KeyHistoryChatID)); historyRaw != "" {
		historyID, parseErr := strconv.ParseInt(historyRaw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHistoryChatID, parseErr)
		}
		cfg.HistoryChatID = historyID
	}

	methodsRaw := firstNonEmpty(strings.TrimSpace(os.Getenv(KeyPaymentMethods)), DefaultPaymentMethods)
	cfg.PaymentMethods, cfg.Wallets, err = resolvePaymentMethods(methodsRaw)
	if err != nil {
		return Config{}, err
	}

	if cfg.DepositCommission, err = resolveRate(KeyDepositCommission, DefaultDepositCommission); err != nil {
		return Config{}, err
	}
	if cfg.WithdrawalCommission, err = resolveRate(KeyWithdrawalCommission, DefaultWithdrawalCommission); err != nil {
		return Config{}, err
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// WalletFor returns the configured wallet for a payment method, if any.
func (c Config) WalletFor(method string) (string, bool) {
	wallet, ok := c.Wallets[method]
	return wallet, ok
}

// WalletKey derives the environment variable name holding a method's wallet,
// e.g. bKash -> BKASH_WALLET.
func WalletKey(method string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + WalletKeySuffix
}

// FormatRedacted renders a one-line configuration summary safe for startup
// logs: secrets are masked and Mongo credentials stripped.
func FormatRedacted(cfg Config) string {
	parts := []string{
		"app_env: " + cfg.AppEnv,
		"telegram_token: " + maskSecret(cfg.TelegramToken),
		"bot_owner: " + strconv.FormatInt(cfg.BotOwnerID, 10),
		"mongo_uri: " + redactMongoURI(cfg.MongoURI),
		"mongo_db: " + cfg.MongoDB,
		"admin_group_id: " + strconv.FormatInt(cfg.AdminGroupID, 10),
		"payment_methods: " + strings.Join(cfg.PaymentMethods, ","),
		"log_level: " + cfg.LogLevel,
		"http_port: " + strconv.Itoa(cfg.HTTPPort),
	}

	return strings.Join(parts, ", ")
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return "redacted"
	}
	return secret[:4] + "...redacted"
}

func redactMongoURI(uri string) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "redacted"
	}
	parsed.User = nil
	return parsed.String()
}

func validateMongoURI(uri string) error {
	if strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://") {
		return nil
	}
	return fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
}

func resolvePaymentMethods(raw string) ([]string, map[string]string, error) {
	methods := make([]string, 0, 4)
	wallets := make(map[string]string)

	for _, part := range strings.Split(raw, ",") {
		method := strings.TrimSpace(part)
		if method == "" {
			continue
		}

		methods = append(methods, method)
		if wallet := strings.TrimSpace(os.Getenv(WalletKey(method))); wallet != "" {
			wallets[method] = wallet
		}
	}

	if len(methods) == 0 {
		return nil, nil, fmt.Errorf("%s must list at least one payment method", KeyPaymentMethods)
	}

	return methods, wallets, nil
}

func resolveRate(key, fallback string) (decimal.Decimal, error) {
	raw := firstNonEmpty(strings.TrimSpace(os.Getenv(key)), fallback)

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid %s: %w", key, err)
	}

	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("%s must be in [0, 1)", key)
	}

	return rate, nil
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
