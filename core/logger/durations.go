package logger

import (
	"log/slog"
	"strings"
	"time"
)

// Took is the millisecond-rounded time elapsed since start.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS rounds d to whole milliseconds; negative durations become zero.
func RoundMS(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d.Round(time.Millisecond)
}

// ListAttrs describes a list of names as <prefix>_total, <prefix>_preview
// with at most limit entries, and <prefix>_truncated when entries were cut.
func ListAttrs(prefix string, names []string, limit int) []any {
	attrs := []any{slog.Int(prefix+"_total", len(names))}
	shown := names
	if limit >= 0 && len(names) > limit {
		shown = names[:limit]
		attrs = append(attrs, slog.Bool(prefix+"_truncated", true))
	}
	if len(shown) > 0 {
		attrs = append(attrs, slog.String(prefix+"_preview", strings.Join(shown, ", ")))
	}
	return attrs
}
