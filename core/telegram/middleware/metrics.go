package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/anpruch/clubbot/core/telegram/helpers"
)

// UpdateStats is a process-wide tally of handled updates.
type UpdateStats struct {
	Updates   uint64
	Messages  uint64
	Callbacks uint64
	Failures  uint64
}

var (
	updatesTotal   atomic.Uint64
	messagesTotal  atomic.Uint64
	callbacksTotal atomic.Uint64
	failuresTotal  atomic.Uint64
)

// Stats returns the counters accumulated by MessageMetricsMiddleware.
func Stats() UpdateStats {
	return UpdateStats{
		Updates:   updatesTotal.Load(),
		Messages:  messagesTotal.Load(),
		Callbacks: callbacksTotal.Load(),
		Failures:  failuresTotal.Load(),
	}
}

// metricsContext wraps tele.Context so direct sends are counted like helper sends.
type metricsContext struct{ tele.Context }

func hasKeyboard(opts []interface{}) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

// Send proxies tele.Context.Send while updating message counters.
func (m metricsContext) Send(what interface{}, opts ...interface{}) error {
	err := m.Context.Send(what, opts...)
	if err == nil {
		tghelpers.CountMessage(m.Context, hasKeyboard(opts))
	}
	return err
}

// Reply proxies tele.Context.Reply while updating message counters.
func (m metricsContext) Reply(what interface{}, opts ...interface{}) error {
	err := m.Context.Reply(what, opts...)
	if err == nil {
		tghelpers.CountMessage(m.Context, hasKeyboard(opts))
	}
	return err
}

// MessageMetricsMiddleware resets per-update counters and tallies update kinds.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.ResetCounters(c)
		updatesTotal.Add(1)
		upd := c.Update()
		switch {
		case upd.Callback != nil:
			callbacksTotal.Add(1)
		case upd.Message != nil:
			messagesTotal.Add(1)
		}
		err := next(metricsContext{Context: c})
		if err != nil {
			failuresTotal.Add(1)
		}
		return err
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	return tghelpers.Counters(c)
}
