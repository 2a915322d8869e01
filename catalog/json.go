package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/anpruch/clubbot/core/logger"
	"github.com/anpruch/clubbot/core/orderedjson"
)

// FileLoader reads a catalog document of the form
// {"category": {"club": ["link", "description"]}}.
type FileLoader struct {
	path string
}

// NewFileLoader returns a loader for the JSON document at path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load parses the whole document. Any invalid record fails the load.
func (l *FileLoader) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	source := "file:" + l.path
	if strings.TrimSpace(l.path) == "" {
		return nil, &DataSourceError{Source: "file", Err: errors.New("path is empty")}
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &DataSourceError{Source: source, Err: err}
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, &DataSourceError{Source: source, Err: err}
	}
	logger.Catalog.LogAttrs(ctx, slog.LevelInfo, "catalog loaded",
		slog.String("event", "catalog.load"),
		slog.String("status", "ok"),
		slog.String("source", source),
		slog.Int("categories", cat.Len()),
		slog.Int("clubs", cat.ClubCount()),
		slog.Duration("duration", logger.Took(start)),
	)
	return cat, nil
}

// Parse builds a catalog from a JSON document, keeping key order.
func Parse(data []byte) (*Catalog, error) {
	members, err := orderedjson.DecodeObject(data)
	if err != nil {
		return nil, mapDecodeError("category", err)
	}
	categories := make([]Category, 0, len(members))
	for _, m := range members {
		clubs, err := parseClubs(m.Key, m.Value)
		if err != nil {
			return nil, err
		}
		cat, err := NewCategory(m.Key, clubs)
		if err != nil {
			return nil, err
		}
		categories = append(categories, cat)
	}
	return New(categories)
}

func parseClubs(category string, raw json.RawMessage) ([]Club, error) {
	members, err := orderedjson.DecodeObject(raw)
	if err != nil {
		if errors.Is(err, orderedjson.ErrNotObject) {
			return nil, &ValidationError{Field: "category", Value: category, Reason: "clubs must be an object"}
		}
		return nil, mapDecodeError("club.name", err)
	}
	clubs := make([]Club, 0, len(members))
	for _, m := range members {
		var info []json.RawMessage
		if err := json.Unmarshal(m.Value, &info); err != nil || len(info) != 2 {
			return nil, &ValidationError{Field: "club", Value: m.Key, Reason: "expected [link, description]"}
		}
		var fields [2]string
		for i, v := range info {
			if !orderedjson.IsString(v) {
				return nil, &ValidationError{Field: "club", Value: m.Key, Reason: "link and description must be strings"}
			}
			if err := json.Unmarshal(v, &fields[i]); err != nil {
				return nil, fmt.Errorf("club %q: %w", m.Key, err)
			}
		}
		club, err := NewClub(m.Key, fields[0], fields[1])
		if err != nil {
			return nil, err
		}
		clubs = append(clubs, club)
	}
	return clubs, nil
}

func mapDecodeError(field string, err error) error {
	var dup *orderedjson.DuplicateKeyError
	if errors.As(err, &dup) {
		return &ValidationError{Field: field, Value: dup.Key, Reason: "duplicate"}
	}
	return err
}
