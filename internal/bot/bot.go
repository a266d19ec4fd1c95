package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Telegram allows roughly 20 messages per second per bot.
const sendInterval = 50 * time.Millisecond

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// DispatchError reports a failed call to the Telegram Bot API.
type DispatchError struct {
	Method string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("telegram %s: %v", e.Method, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Bot posts notifications to one chat and keeps a pinned health-check message current.
type Bot struct {
	api       telegramAPI
	chatID    int64
	messageID int
	limiter   *rate.Limiter
	log       *slog.Logger
}

// New creates a Bot with the given Telegram token, target chat and health-check message.
func New(token string, chatID int64, messageID int, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.Debug("authorized on telegram", "username", api.Self.UserName)
	return newBot(api, chatID, messageID, log), nil
}

func newBot(api telegramAPI, chatID int64, messageID int, log *slog.Logger) *Bot {
	return &Bot{
		api:       api,
		chatID:    chatID,
		messageID: messageID,
		limiter:   rate.NewLimiter(rate.Every(sendInterval), 1),
		log:       log,
	}
}

// SendMessage posts a new text message to the chat.
func (b *Bot) SendMessage(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.DisableWebPagePreview = true
	return b.send(ctx, "sendMessage", msg)
}

// EditHealthCheck replaces the text of the pinned health-check message.
// Telegram rejects edits that do not change the text; those count as success.
func (b *Bot) EditHealthCheck(ctx context.Context, text string) error {
	edit := tgbotapi.NewEditMessageText(b.chatID, b.messageID, text)
	err := b.send(ctx, "editMessageText", edit)
	if isNotModified(err) {
		b.log.Debug("health check unchanged", "message_id", b.messageID)
		return nil
	}
	return err
}

func (b *Bot) send(ctx context.Context, method string, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return &DispatchError{Method: method, Err: err}
	}
	if _, err := b.api.Send(c); err != nil {
		return &DispatchError{Method: method, Err: err}
	}
	return nil
}

func isNotModified(err error) bool {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return strings.Contains(apiErr.Message, "message is not modified")
}
