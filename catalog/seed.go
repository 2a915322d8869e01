package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/anpruch/clubbot/core/logger"
)

// Seeder imports a JSON catalog into an empty relational store.
type Seeder struct {
	path string
}

// NewSeeder returns a seeder reading the JSON document at path.
func NewSeeder(path string) *Seeder {
	return &Seeder{path: path}
}

// Seed inserts the document in one transaction. It does nothing when the
// category table already has rows.
func (s *Seeder) Seed(ctx context.Context, db *sqlx.DB) (err error) {
	start := time.Now()

	var existing int
	if err := db.GetContext(ctx, &existing, `SELECT COUNT(*) FROM category`); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if existing > 0 {
		logger.SEED.Info("catalog already seeded",
			slog.String("event", "seed.skip"),
			slog.Int("categories", existing),
		)
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return &DataSourceError{Source: "file:" + s.path, Err: err}
	}
	cat, err := Parse(data)
	if err != nil {
		return &DataSourceError{Source: "file:" + s.path, Err: err}
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertCategory := tx.Rebind(`INSERT INTO category (name) VALUES (?) RETURNING id`)
	insertClub := tx.Rebind(`INSERT INTO clubs (name, link, description, category_id) VALUES (?, ?, ?, ?)`)
	for _, c := range cat.categories {
		var id int64
		if err = tx.QueryRowxContext(ctx, insertCategory, c.name).Scan(&id); err != nil {
			return fmt.Errorf("insert category %q: %w", c.name, err)
		}
		for _, club := range c.clubs {
			if _, err = tx.ExecContext(ctx, insertClub, club.name, club.link, club.description, id); err != nil {
				return fmt.Errorf("insert club %q: %w", club.name, err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	logger.SEED.Info("catalog seeded",
		slog.String("event", "seed.apply"),
		slog.String("status", "ok"),
		slog.String("path", s.path),
		slog.Int("categories", cat.Len()),
		slog.Int("clubs", cat.ClubCount()),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
