package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anpruch/clubbot/core/logger"
)

const (
	queryCategories = `SELECT id, name FROM category ORDER BY id`
	queryClubs      = `SELECT name, link, description FROM clubs WHERE category_id = ? ORDER BY id`
)

type categoryRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type clubRow struct {
	Name        string `db:"name"`
	Link        string `db:"link"`
	Description string `db:"description"`
}

// SQLLoader reads the catalog from the category and clubs tables.
type SQLLoader struct {
	db *sqlx.DB
}

// NewSQLLoader returns a loader backed by db.
func NewSQLLoader(db *sqlx.DB) *SQLLoader {
	return &SQLLoader{db: db}
}

// Load reads every category and its clubs ordered by id.
func (l *SQLLoader) Load(ctx context.Context) (*Catalog, error) {
	start := time.Now()
	source := "database:" + l.db.DriverName()

	var rows []categoryRow
	if err := l.db.SelectContext(ctx, &rows, queryCategories); err != nil {
		return nil, &DataSourceError{Source: source, Err: err}
	}

	clubsQuery := l.db.Rebind(queryClubs)
	categories := make([]Category, 0, len(rows))
	for _, row := range rows {
		var clubRows []clubRow
		if err := l.db.SelectContext(ctx, &clubRows, clubsQuery, row.ID); err != nil {
			return nil, &DataSourceError{Source: source, Err: err}
		}
		clubs := make([]Club, 0, len(clubRows))
		for _, cr := range clubRows {
			club, err := NewClub(cr.Name, cr.Link, cr.Description)
			if err != nil {
				return nil, &DataSourceError{Source: source, Err: err}
			}
			clubs = append(clubs, club)
		}
		cat, err := NewCategory(row.Name, clubs)
		if err != nil {
			return nil, &DataSourceError{Source: source, Err: err}
		}
		categories = append(categories, cat)
	}

	cat, err := New(categories)
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
