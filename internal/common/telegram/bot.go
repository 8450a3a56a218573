// internal/common/telegram/bot.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

const DefaultAPIBaseURL = "https://api.telegram.org"

// ParseModeHTML is the only parse mode the notifier emits.
const ParseModeHTML = string(tgmodels.ParseModeHTML)

var ErrMissingToken = errors.New("telegram: bot token is not configured")

// Bot posts messages through the Telegram Bot API. It never polls for
// updates and skips the getMe handshake, so construction does no I/O.
type Bot struct {
	token string
	api   *tgbot.Bot
	err   error
}

func NewBot(token, baseURL string, timeout time.Duration) *Bot {
	if token == "" {
		return &Bot{}
	}
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	api, err := tgbot.New(token,
		tgbot.WithSkipGetMe(),
		tgbot.WithServerURL(strings.TrimRight(baseURL, "/")),
		tgbot.WithHTTPClient(timeout, &http.Client{Timeout: timeout}),
	)
	return &Bot{token: token, api: api, err: err}
}

// SendMessage delivers text to chatID. An answer carrying ok=false is a
// failure.
func (b *Bot) SendMessage(ctx context.Context, chatID, text, parseMode string) error {
	if b.token == "" {
		return ErrMissingToken
	}
	if b.err != nil {
		return b.redact(fmt.Errorf("telegram: init bot: %w", b.err))
	}
	if chatID == "" {
		return errors.New("telegram: chat id is empty")
	}

	_, err := b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: tgmodels.ParseMode(parseMode),
	})
	if err != nil {
		return b.redact(fmt.Errorf("telegram: sendMessage: %w", err))
	}
	return nil
}

// redact keeps the token, which is part of every request URL, out of error
// strings.
func (b *Bot) redact(err error) error {
	return errors.New(strings.ReplaceAll(err.Error(), b.token, "<redacted>"))
}
