package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// maxDataBytes is Telegram's limit for callback_data.
const maxDataBytes = 64

// Split parses Telebot's "\f<unique>|<payload>" encoding. Raw data produced
// by buttons without a unique key is returned as the payload with an empty unique.
func Split(data string) (unique, payload string) {
	raw, ok := strings.CutPrefix(data, "\f")
	if !ok {
		return "", data
	}
	unique, payload, _ = strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// Data returns the payload of the current callback, or "" for other updates.
func Data(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Data
	}
	_, payload := Split(cb.Data)
	return payload
}

// Key returns the unique key of the current callback when Telebot encoding was used.
func Key(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	if cb.Unique != "" {
		return cb.Unique
	}
	unique, _ := Split(cb.Data)
	return unique
}

// Fits reports whether data can be carried by an inline button.
func Fits(data string) bool {
	return len(data) > 0 && len(data) <= maxDataBytes
}
