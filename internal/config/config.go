// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"price_notifier/internal/storage"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken  string
	TelegramChatID    int64
	TelegramMessageID int
	TargetPrice       float64
	FetchDelay        time.Duration
	ErrorLogPath      string
	LogLevel          string
	Storage           storage.Options
}

// Load reads the notifier configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	chatID, err := requiredInt("TELEGRAM_CHAT_ID", 64)
	if err != nil {
		return nil, err
	}

	messageID, err := requiredInt("TELEGRAM_MESSAGE_ID", 0)
	if err != nil {
		return nil, err
	}

	raw := os.Getenv("TARGET_PRICE")
	if raw == "" {
		return nil, fmt.Errorf("TARGET_PRICE is required")
	}
	target, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TARGET_PRICE %q: %w", raw, err)
	}
	if target <= 0 {
		return nil, fmt.Errorf("TARGET_PRICE must be positive, got %v", target)
	}

	delay := time.Second
	if raw := os.Getenv("FETCH_DELAY"); raw != "" {
		delay, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid FETCH_DELAY %q: %w", raw, err)
		}
		if delay <= 0 {
			return nil, fmt.Errorf("FETCH_DELAY must be positive, got %s", delay)
		}
	}

	store, err := LoadStorage()
	if err != nil {
		return nil, err
	}

	return &Config{
		TelegramBotToken:  token,
		TelegramChatID:    chatID,
		TelegramMessageID: int(messageID),
		TargetPrice:       target,
		FetchDelay:        delay,
		ErrorLogPath:      envOrDefault("ERROR_LOG_PATH", "price_drop_notifier_logs.txt"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		Storage:           store,
	}, nil
}

// LoadStorage reads only the price history settings. Tools that never talk
// to Telegram use it directly.
func LoadStorage() (storage.Options, error) {
	opts := storage.Options{
		Backend:      envOrDefault("STORAGE_BACKEND", storage.BackendFile),
		PriceDir:     envOrDefault("PRICE_DIR", "."),
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/prices.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
	}

	switch opts.Backend {
	case storage.BackendFile, storage.BackendSQLite:
	case storage.BackendPostgres:
		if opts.DatabaseURL == "" {
			return storage.Options{}, fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return storage.Options{}, fmt.Errorf("unknown STORAGE_BACKEND %q", opts.Backend)
	}
	return opts, nil
}

func requiredInt(key string, bitSize int) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseInt(raw, 10, bitSize)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
