package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/anpruch/clubbot/core/logger"
	"github.com/anpruch/clubbot/core/telegram/sender"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Message is one outbound message.
type Message struct {
	Text      string
	ParseMode tele.ParseMode
	Markup    *tele.ReplyMarkup
	// Quote sends the message as a reply to the inbound message, when there is one.
	Quote bool
}

// Send delivers msg to the current chat through the dispatcher. Messages to the
// same chat keep their order. Without a dispatcher the call is synchronous.
func Send(c tele.Context, msg Message) error {
	recipient := c.Recipient()
	if recipient == nil {
		return errors.New("telegram: no recipient for outbound message")
	}
	opts := &tele.SendOptions{
		ParseMode:   msg.ParseMode,
		ReplyMarkup: msg.Markup,
	}
	if msg.Quote && c.Message() != nil {
		opts.ReplyTo = c.Message()
	}
	bot := c.Bot()
	CountMessage(c, msg.Markup != nil)

	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return sendAsync(c, chatID, "send.text", "sendMessage", func() error {
		_, err := bot.Send(recipient, msg.Text, opts)
		return err
	})
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	return Send(c, Message{Text: text, Markup: first(markup)})
}

func first(markup []*tele.ReplyMarkup) *tele.ReplyMarkup {
	if len(markup) > 0 {
		return markup[0]
	}
	return nil
}

func sendAsync(c tele.Context, key int64, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, key, action, endpoint, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueClosed):
		// shutting down: deliver inline rather than lose the reply
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	default:
		logger.Warn(ctx, "tg.sender", "queue.drop",
			slog.String("status", "fail"),
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return err
	}
}
