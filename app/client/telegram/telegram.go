package telegram

import (
	"fmt"
	"log/slog"

	"lawline/app/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/do"
)

const maxMessageLength = 4096

// Client relays conversation snapshots to the operator chat. Delivery is
// best-effort: the chat flow never depends on it.
type Client struct {
	cfg *config.Config
	bot *tgbotapi.BotAPI
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	if cfg.Telegram.Disabled {
		return &Client{cfg: cfg}, nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &Client{
		cfg: cfg,
		bot: bot,
	}, nil
}

// Send delivers text as HTML, truncated to the telegram payload limit. If
// the HTML send is rejected (usually broken markup from quoted user text) it
// retries once as plain text.
func (c *Client) Send(text string) error {
	text = truncate(text, maxMessageLength)

	if c.cfg.Telegram.Disabled {
		slog.Info("Relay suppressed (telegram disabled)", "text", text)
		return nil
	}

	msg := tgbotapi.NewMessage(c.cfg.Telegram.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.bot.Send(msg); err != nil {
		slog.Warn("HTML relay failed, retrying as plain text", "error", err)

		msg.ParseMode = ""
		if _, err = c.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send telegram message: %w", err)
		}
	}

	return nil
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	return string(runes[:limit])
}
