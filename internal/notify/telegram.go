package notify

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"stock-alerts/internal/security"
)

// TelegramConfig configures a TelegramNotifier.
type TelegramConfig struct {
	BotToken          string
	ChatID            string // numeric chat id or @channelname
	APIEndpoint       string // format string with bot token and method; default tgbotapi.APIEndpoint
	ParseMode         Markup
	Timeout           time.Duration
	MessagesPerSecond int
}

// TelegramNotifier sends messages through the Telegram Bot API.
type TelegramNotifier struct {
	bot       *tgbotapi.BotAPI
	chatID    string
	parseMode Markup
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// NewTelegramNotifier creates a TelegramNotifier. It makes no network calls;
// missing credentials surface on the first Send.
func NewTelegramNotifier(cfg TelegramConfig, logger zerolog.Logger) *TelegramNotifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	// Built directly rather than with tgbotapi.NewBotAPI, which calls getMe.
	bot := &tgbotapi.BotAPI{
		Token:  cfg.BotToken,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	var limiter *rate.Limiter
	if cfg.MessagesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), 1)
	}

	return &TelegramNotifier{
		bot:       bot,
		chatID:    strings.TrimSpace(cfg.ChatID),
		parseMode: cfg.ParseMode,
		limiter:   limiter,
		logger:    logger.With().Str("component", "telegram").Logger(),
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

// Send delivers message. It returns true only when Telegram acknowledged it.
func (t *TelegramNotifier) Send(ctx context.Context, message string) bool {
	if t.bot.Token == "" || t.chatID == "" {
		t.logger.Error().Msg("Telegram credentials missing; message not sent")
		return false
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			t.logger.Error().Err(err).Msg("Telegram send cancelled")
			return false
		}
	}

	msg := t.newMessage(message)
	msg.ParseMode = string(t.parseMode)

	start := time.Now()
	sent, err := t.bot.Send(msg)
	if err != nil {
		t.logger.Error().
			Str("error", security.RedactError(err)).
			Dur("duration", time.Since(start)).
			Msg("Telegram send failed")
		return false
	}

	t.logger.Info().
		Int("message_id", sent.MessageID).
		Dur("duration", time.Since(start)).
		Msg("Telegram message sent")
	return true
}

func (t *TelegramNotifier) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chatID, text)
}
