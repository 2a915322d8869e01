package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/anpruch/clubbot/core/telegram"
)

// Fallbacks answers updates nothing else claimed.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}

// FallbackRoutes installs fb as the registry's text and callback fallbacks and
// returns TextRoutes plus CallbackRoute, so every text and callback update
// gets an answer.
func FallbackRoutes(reg *tg.Registry, fb Fallbacks) []tg.Route {
	reg.SetTextFallback(fb.UnknownText())
	reg.SetCallbackNotFound(fb.UnknownCallback())
	return append(TextRoutes(reg), CallbackRoute(reg))
}
