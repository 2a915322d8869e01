// Package faq loads the ordered question and answer list shown on request.
package faq

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/core/logger"
	"github.com/anpruch/clubbot/core/orderedjson"
	"github.com/anpruch/clubbot/core/telegram/format"
)

// Entry is one question with its answer.
type Entry struct {
	Question string
	Answer   string
}

// FAQ keeps entries in document order.
type FAQ struct {
	entries []Entry
}

// New returns an FAQ holding a copy of entries.
func New(entries []Entry) *FAQ {
	return &FAQ{entries: append([]Entry(nil), entries...)}
}

// Load reads a flat JSON object of question to answer.
func Load(path string) (*FAQ, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &catalog.DataSourceError{Source: "faq", Err: errors.New("path is empty")}
	}
	source := "faq:" + path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &catalog.DataSourceError{Source: source, Err: err}
	}
	pairs, err := orderedjson.DecodeStrings(data)
	if err != nil {
		return nil, &catalog.DataSourceError{Source: source, Err: fmt.Errorf("parse: %w", err)}
	}
	entries := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, Entry{Question: p.Key, Answer: p.Value})
	}
	logger.Catalog.Info("faq loaded",
		slog.String("event", "faq.load"),
		slog.String("status", "ok"),
		slog.String("source", source),
		slog.Int("entries", len(entries)),
	)
	return New(entries), nil
}

// Entries returns a copy of the entries.
func (f *FAQ) Entries() []Entry { return append([]Entry(nil), f.entries...) }

// Len returns the number of entries.
func (f *FAQ) Len() int { return len(f.entries) }

// Render formats the FAQ as one HTML block. Questions are escaped and bolded;
// answers are Telegram HTML as written, so they may carry links. An empty FAQ
// renders "".
func (f *FAQ) Render() string {
	if f == nil || len(f.entries) == 0 {
		return ""
	}
	parts := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		parts = append(parts, format.Bold(format.EscapeHTML(e.Question))+"\n    — "+e.Answer)
	}
	return strings.Join(parts, "\n\n")
}
