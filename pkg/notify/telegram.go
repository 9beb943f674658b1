// Package notify delivers operator alerts.
package notify

import (
	"context"
	"fmt"
	"time"

	applogger "Jarvis/pkg/logger"

	tb "gopkg.in/tucnak/telebot.v2"
)

// Sender is the part of a telebot bot used for alerts.
type Sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram sends plain text alerts to one chat.
type Telegram struct {
	bot  Sender
	chat *tb.Chat
	log  *applogger.Logger
}

// NewTelegram builds a bot for token. The bot is only used to send, so its
// poller is never started.
func NewTelegram(token string, chatID int64, timeout time.Duration, l *applogger.Logger) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram: token and chat id are required")
	}
	bot, err := tb.NewBot(tb.Settings{
		Token:  token,
		Poller: &tb.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID, l), nil
}

func NewTelegramWithSender(s Sender, chatID int64, l *applogger.Logger) *Telegram {
	if l == nil {
		l = applogger.Nop()
	}
	return &Telegram{bot: s, chat: &tb.Chat{ID: chatID}, log: l}
}

// Notify sends text. telebot has no context support, so ctx only
// short-circuits an already cancelled call.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(t.chat, text); err != nil {
		t.log.Warn("telegram send failed", applogger.Error(err))
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Nop discards alerts. Used when Telegram is disabled.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
