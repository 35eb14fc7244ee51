package messaging

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramService implements Service on top of the Telegram Bot API.
type TelegramService struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// Compile-time interface check.
var _ Service = (*TelegramService)(nil)

// Opts holds configuration for the Telegram service.
type Opts struct {
	Token  string
	ChatID int64
}

// Option configures Opts.
type Option func(*Opts)

// WithToken sets the bot token.
func WithToken(token string) Option {
	return func(o *Opts) { o.Token = token }
}

// WithChatID sets the destination chat.
func WithChatID(chatID int64) Option {
	return func(o *Opts) { o.ChatID = chatID }
}

// NewTelegramService creates a Telegram-backed delivery service. It
// authenticates against the Bot API immediately so misconfiguration is
// caught at startup rather than on the first digest.
func NewTelegramService(opts ...Option) (*TelegramService, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram service: bot token is required")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram service: chat id is required")
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram service: authenticating bot: %w", err)
	}

	slog.Info("telegram service ready", "bot", bot.Self.UserName, "chat_id", cfg.ChatID)
	return &TelegramService{bot: bot, chatID: cfg.ChatID}, nil
}

// SendMessage sends one markdown message to the configured chat.
func (s *TelegramService) SendMessage(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("telegram service: %w", err)
	}

	msg := tgbotapi.NewMessage(s.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		slog.Error("telegram send failed", "error", err, "chat_id", s.chatID, "length", len(text))
		return fmt.Errorf("telegram service: sending message: %w", err)
	}
	slog.Debug("telegram message sent", "chat_id", s.chatID, "length", len(text))
	return nil
}

// Stop releases resources. The Bot API client is stateless for plain
// sends, so there is nothing to tear down beyond stopping updates.
func (s *TelegramService) Stop() error {
	s.bot.StopReceivingUpdates()
	return nil
}
