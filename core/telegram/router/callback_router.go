package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/anpruch/clubbot/core/telegram"
	"github.com/anpruch/clubbot/core/telegram/callbacks"
)

// CallbackRoute returns a handler that routes raw callback data through the
// registry's ordered matchers, falling back to reg.CallbackNotFound. The
// query is always acknowledged first.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		data := callbacks.Data(c)
		_ = c.Respond()

		route, ok := reg.MatchCallback(data)
		if !ok {
			fallback := reg.CallbackNotFound()
			extras := []slog.Attr{slog.String("cb_key", "unknown"), slog.String("reason", "not_found")}
			return handleWithSummary(c, "callback.unknown", start, "", "fallback", func() error {
				if fallback != nil {
					return fallback(c)
				}
				return nil
			}, extras...)
		}

		return handleWithSummary(c, "callback."+normalizeHandlerName(route.Name), start, "", "", func() error {
			return route.Handler(c)
		}, slog.String("cb_key", route.Name))
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  handler,
	}
}
