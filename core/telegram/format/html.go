// Package format escapes text for Telegram's HTML parse mode.
package format

import "html"

// EscapeHTML escapes the characters Telegram's HTML parse mode treats as markup.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps already escaped text in an HTML bold tag.
func Bold(escaped string) string {
	return "<b>" + escaped + "</b>"
}
