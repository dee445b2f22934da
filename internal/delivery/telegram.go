package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"aromabot/internal/domain"
)

// Telegram has a 4096 char limit per message.
const telegramMaxMsgLen = 4096

// Telegram sends text to a Telegram chat id. The bot connects lazily on
// the first send so that startup does not depend on the Bot API.
type Telegram struct {
	token    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

type TelegramConfig struct {
	Token    string
	Endpoint string // Bot API URL pattern, defaults to tgbotapi.APIEndpoint
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	if cfg.Endpoint == "" {
		cfg.Endpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:    cfg.Token,
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) connect() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, t.wrap(err)
	}
	t.logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Send(ctx context.Context, recipient, body string) error {
	chatID, err := strconv.ParseInt(recipient, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", recipient, err)
	}
	bot, err := t.connect()
	if err != nil {
		return err
	}

	for _, chunk := range splitMessage(body, telegramMaxMsgLen) {
		if err := ctx.Err(); err != nil {
			return domain.Upstream("delivery", err)
		}
		if _, err := bot.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return t.wrap(err)
		}
	}
	t.logger.Debug("message sent", "provider", t.Name(), "to", recipient, "chars", len(body))
	return nil
}

func (t *Telegram) wrap(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &domain.DeliveryError{Provider: t.Name(), StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	return domain.Upstream("delivery", err)
}

// splitMessage cuts text into chunks of at most maxLen runes, preferring
// to break before a newline in the second half of the chunk.
func splitMessage(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(runes) > maxLen {
		cutAt := maxLen
		for i := maxLen - 1; i >= maxLen/2; i-- {
			if runes[i] == '\n' {
				cutAt = i
				break
			}
		}
		chunks = append(chunks, string(runes[:cutAt]))
		runes = runes[cutAt:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
