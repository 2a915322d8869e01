package app

import (
	"errors"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/core/logger"
	"github.com/anpruch/clubbot/core/telegram/callbacks"
	"github.com/anpruch/clubbot/core/telegram/commands"
	tghelpers "github.com/anpruch/clubbot/core/telegram/helpers"
	"github.com/anpruch/clubbot/core/telegram/keyboard"
	"github.com/anpruch/clubbot/core/telegram/router"
	"github.com/anpruch/clubbot/dialogue"
)

var _ router.Fallbacks = (*Transport)(nil)

// Transport adapts Telegram updates to dialogue events and sends the replies back.
type Transport struct {
	engine *dialogue.Engine
}

// NewTransport returns an adapter over engine.
func NewTransport(engine *dialogue.Engine) *Transport {
	return &Transport{engine: engine}
}

// Handler returns a telebot handler feeding updates of the given kind to the engine.
func (t *Transport) Handler(kind dialogue.Kind) tele.HandlerFunc {
	return func(c tele.Context) error {
		ev := EventFrom(c, kind)
		ctx := tghelpers.BuildContext(c)

		replies, err := t.engine.Handle(ctx, ev)
		if err != nil {
			var lerr *catalog.LookupError
			if !errors.As(err, &lerr) {
				return err
			}
			logger.Dialogue.LogAttrs(ctx, slog.LevelWarn, "lookup failed",
				slog.String("event", "dialogue.lookup"),
				slog.String("status", "fail"),
				slog.String("kind", lerr.Kind),
				slog.String("key", logger.SanitizeLimit(lerr.Key, 64)),
				slog.String("err_code", lerr.Code()),
			)
		}

		return sendReplies(c, replies)
	}
}

// sendReplies sends every reply in order. A reply that fails is dropped and
// the rest are still sent; the failures come back joined.
func sendReplies(c tele.Context, replies []dialogue.Reply) error {
	var errs []error
	for _, r := range replies {
		if err := keyboard.Validate(r.Keyboard); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := tghelpers.Send(c, MessageFrom(r)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Command returns a handler that feeds the update to the engine as the
// command name, whichever alias the user typed. Arguments are kept.
func (t *Transport) Command(name string) tele.HandlerFunc {
	inner := t.Handler(dialogue.KindCommand)
	return func(c tele.Context) error {
		return inner(commandContext{Context: c, text: canonicalCommand(name, c.Text())})
	}
}

// commandContext overrides Text so the engine sees the canonical command.
type commandContext struct {
	tele.Context
	text string
}

func (c commandContext) Text() string { return c.text }

func canonicalCommand(name, text string) string {
	if args := commands.Args(text); args != "" {
		return "/" + name + " " + args
	}
	return "/" + name
}

// UnknownText handles text no command claimed.
func (t *Transport) UnknownText() tele.HandlerFunc { return t.Handler(dialogue.KindText) }

// UnknownCallback handles callback data no route matched.
func (t *Transport) UnknownCallback() tele.HandlerFunc { return t.Handler(dialogue.KindCallback) }

// EventFrom extracts the engine event from an update.
func EventFrom(c tele.Context, kind dialogue.Kind) dialogue.Event {
	ev := dialogue.Event{Kind: kind}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if kind == dialogue.KindCallback {
		ev.Payload = callbacks.Data(c)
	} else {
		ev.Payload = c.Text()
	}
	return ev
}

// MessageFrom converts a reply into an outbound message.
func MessageFrom(r dialogue.Reply) tghelpers.Message {
	msg := tghelpers.Message{
		Text:      r.Text,
		ParseMode: ParseMode(r.Format),
		Quote:     r.Quote,
	}
	if len(r.Keyboard) > 0 {
		msg.Markup = keyboard.InlineButtonsRows(r.Keyboard...)
	}
	return msg
}

// ParseMode maps a reply format to Telegram's parse mode.
func ParseMode(f dialogue.Format) tele.ParseMode {
	switch f {
	case dialogue.FormatHTML:
		return tele.ModeHTML
	case dialogue.FormatMarkdown:
		return tele.ModeMarkdown
	default:
		return tele.ModeDefault
	}
}
