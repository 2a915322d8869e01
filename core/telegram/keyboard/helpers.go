package keyboard

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/anpruch/clubbot/core/telegram/callbacks"
)

// InlineBtn describes an inline button whose callback_data is Data verbatim.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Buttons carry no Telebot unique key, so Telegram echoes Data back unchanged.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}

// Chunk splits buttons into rows of n; the last row holds the remainder.
func Chunk[T any](buttons []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	rows := make([][]T, 0, (len(buttons)+n-1)/n)
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end:end])
	}
	return rows
}

// Validate reports the first button whose data Telegram would reject.
func Validate(rows [][]InlineBtn) error {
	for _, row := range rows {
		for _, btn := range row {
			if btn.Text == "" {
				return fmt.Errorf("keyboard: empty button text for data %q", btn.Data)
			}
			if !callbacks.Fits(btn.Data) {
				return fmt.Errorf("keyboard: callback data %q must be 1-64 bytes", btn.Data)
			}
		}
	}
	return nil
}
