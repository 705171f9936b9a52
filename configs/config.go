package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Price    PriceConfig
	Slip     SlipConfig
	Telegram TelegramConfig
	SMTP     SMTPConfig
	Trading  TradingConfig
	Admin    AdminConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port     string
	OpsPort  string
	Env      string
	LogLevel string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	Channel  string
	QuoteTTL time.Duration
}

// AuthConfig holds JWT settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PriceConfig holds the gold price board settings
type PriceConfig struct {
	URL          string
	RefreshCron  string
	HTTPTimeout  time.Duration
	HTTPRetryMax int
}

// SlipConfig holds the slip verification API and the shop's receiving account
type SlipConfig struct {
	APIURL          string
	APIKey          string
	MaxBytes        int
	ReceiverBankID  string
	ReceiverAccount string
	ReceiverNameTH  string
	ReceiverNameEN  string
}

// TelegramConfig holds the operator chat settings
type TelegramConfig struct {
	BotToken string
	ChatID   int64
	APIURL   string
}

// SMTPConfig holds the mail settings
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	Operators []string
}

// TradingConfig holds trading-hours and ledger policy
type TradingConfig struct {
	Open                 string // HH:MM Bangkok time
	Close                string
	AllowNegativeBalance bool
	EnforceStock         bool
}

// AdminConfig seeds the first admin account
type AdminConfig struct {
	Email    string
	Password string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var errs []string
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			OpsPort:  getEnv("OPS_PORT", "9090"),
			Env:      getEnv("GO_ENV", "development"),
			LogLevel: getEnv("LOG_LEVEL", ""),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),
			Channel: getEnv("REDIS_EVENTS_CHANNEL", "gold-events"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Price: PriceConfig{
			URL:         getEnv("PRICE_API_URL", "https://api.chnwt.dev/thai-gold-api/latest"),
			RefreshCron: getEnv("PRICE_REFRESH_CRON", "* * * * *"),
		},
		Slip: SlipConfig{
			APIURL:          getEnv("SLIP_API_URL", "https://developer.easyslip.com/api/v1"),
			APIKey:          getEnv("SLIP_API_KEY", ""),
			ReceiverBankID:  getEnv("RECEIVER_BANK_ID", ""),
			ReceiverAccount: getEnv("RECEIVER_ACCOUNT", ""),
			ReceiverNameTH:  getEnv("RECEIVER_NAME_TH", ""),
			ReceiverNameEN:  getEnv("RECEIVER_NAME_EN", ""),
		},
		Telegram: TelegramConfig{
			BotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIURL:   getEnv("TELEGRAM_API_URL", ""),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Username:  getEnv("SMTP_USER", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			From:      getEnv("SMTP_FROM", ""),
			Operators: getEnvList("NOTIFY_EMAILS"),
		},
		Trading: TradingConfig{
			Open:  getEnv("TRADING_OPEN", ""),
			Close: getEnv("TRADING_CLOSE", ""),
		},
		Admin: AdminConfig{
			Email:    getEnv("ADMIN_EMAIL", ""),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
	}

	var err error
	cfg.Redis.QuoteTTL, err = getEnvDuration("QUOTE_TTL", 2*time.Minute)
	fail(err)
	cfg.Auth.TokenTTL, err = getEnvDuration("JWT_TTL", 24*time.Hour)
	fail(err)
	cfg.Price.HTTPTimeout, err = getEnvDuration("HTTP_TIMEOUT", 15*time.Second)
	fail(err)
	cfg.Price.HTTPRetryMax, err = getEnvInt("HTTP_RETRY_MAX", 2)
	fail(err)
	cfg.Slip.MaxBytes, err = getEnvInt("SLIP_MAX_BYTES", 5<<20)
	fail(err)
	cfg.SMTP.Port, err = getEnvInt("SMTP_PORT", 587)
	fail(err)
	cfg.Trading.AllowNegativeBalance, err = getEnvBool("LEDGER_ALLOW_NEGATIVE_BALANCE", false)
	fail(err)
	cfg.Trading.EnforceStock, err = getEnvBool("LEDGER_ENFORCE_STOCK", false)
	fail(err)

	chatID, err := getEnvInt("TELEGRAM_CHAT_ID", 0)
	fail(err)
	cfg.Telegram.ChatID = int64(chatID)

	if cfg.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, "JWT_SECRET is required")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs locally
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, raw)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return v, nil
}

// getEnvList splits a comma-separated variable, dropping blanks
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
