package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"price_notifier/internal/bot"
	"price_notifier/internal/config"
	"price_notifier/internal/errlog"
	"price_notifier/internal/fetcher"
	"price_notifier/internal/runner"
	"price_notifier/internal/seller"
	"price_notifier/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	os.Exit(run(ctx, cfg, log))
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) int {
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		log.Error("open price history", "backend", cfg.Storage.Backend, "error", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	errs, err := errlog.Open(cfg.ErrorLogPath)
	if err != nil {
		log.Error("open error log", "path", cfg.ErrorLogPath, "error", err)
		return 1
	}
	defer func() { _ = errs.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramMessageID, log)
	if err != nil {
		log.Error("create bot", "error", err)
		return 1
	}

	r := runner.New(runner.Options{
		Sellers:     seller.Default(),
		TargetPrice: cfg.TargetPrice,
		FetchDelay:  cfg.FetchDelay,
	}, fetcher.NewDefault(), store, b, errs, log)

	log.Info("starting price check", "backend", cfg.Storage.Backend, "target_price", cfg.TargetPrice)
	r.Run(ctx)
	log.Info("price check finished")
	return 0
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
