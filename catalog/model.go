// Package catalog holds the read-only club catalog and its loaders.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/anpruch/clubbot/core/telegram/callbacks"
)

// ClubPayloadPrefix prefixes club names in callback payloads.
const ClubPayloadPrefix = "club_"

// Loader produces a catalog snapshot.
type Loader interface {
	Load(ctx context.Context) (*Catalog, error)
}

// Club is a single extracurricular club.
type Club struct {
	name        string
	link        string
	description string
}

// NewClub validates and builds a club.
func NewClub(name, link, description string) (Club, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Club{}, &ValidationError{Field: "club.name", Reason: "must not be empty"}
	}
	if strings.TrimSpace(link) == "" {
		return Club{}, &ValidationError{Field: "club.link", Value: name, Reason: "must not be empty"}
	}
	if strings.TrimSpace(description) == "" {
		return Club{}, &ValidationError{Field: "club.description", Value: name, Reason: "must not be empty"}
	}
	if !callbacks.Fits(ClubPayloadPrefix + name) {
		return Club{}, &ValidationError{Field: "club.name", Value: name, Reason: "too long for a button payload"}
	}
	return Club{name: name, link: strings.TrimSpace(link), description: description}, nil
}

func (c Club) Name() string        { return c.name }
func (c Club) Link() string        { return c.link }
func (c Club) Description() string { return c.description }

// Payload returns the callback data that selects this club.
func (c Club) Payload() string { return ClubPayloadPrefix + c.name }

// Category is a named, ordered group of clubs.
type Category struct {
	name  string
	clubs []Club
}

// NewCategory validates and builds a category. Club names must be unique within it.
func NewCategory(name string, clubs []Club) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, &ValidationError{Field: "category.name", Reason: "must not be empty"}
	}
	seen := make(map[string]struct{}, len(clubs))
	for _, club := range clubs {
		if club.name == "" {
			return Category{}, &ValidationError{Field: "club", Value: name, Reason: "not built with NewClub"}
		}
		if _, dup := seen[club.name]; dup {
			return Category{}, &ValidationError{Field: "club.name", Value: club.name, Reason: "duplicate in category " + name}
		}
		seen[club.name] = struct{}{}
	}
	return Category{name: name, clubs: append([]Club(nil), clubs...)}, nil
}

func (c Category) Name() string { return c.name }

// Clubs returns a copy of the clubs in presentation order.
func (c Category) Clubs() []Club { return append([]Club(nil), c.clubs...) }

// Len returns the number of clubs.
func (c Category) Len() int { return len(c.clubs) }

// Catalog is the immutable snapshot served to the dialogue engine.
type Catalog struct {
	categories []Category
	clubs      map[string]Club
}

// New builds a catalog. Category names and club names must be unique across the catalog.
func New(categories []Category) (*Catalog, error) {
	seenCategory := make(map[string]struct{}, len(categories))
	clubs := make(map[string]Club)
	for _, cat := range categories {
		if cat.name == "" {
			return nil, &ValidationError{Field: "category", Reason: "not built with NewCategory"}
		}
		if _, dup := seenCategory[cat.name]; dup {
			return nil, &ValidationError{Field: "category.name", Value: cat.name, Reason: "duplicate"}
		}
		seenCategory[cat.name] = struct{}{}
		for _, club := range cat.clubs {
			if _, dup := clubs[club.name]; dup {
				return nil, &ValidationError{Field: "club.name", Value: club.name, Reason: "duplicate across categories"}
			}
			clubs[club.name] = club
		}
	}
	return &Catalog{categories: append([]Category(nil), categories...), clubs: clubs}, nil
}

// Categories returns a copy of the categories in presentation order.
func (c *Catalog) Categories() []Category { return append([]Category(nil), c.categories...) }

// Len returns the number of categories.
func (c *Catalog) Len() int { return len(c.categories) }

// ClubCount returns the number of clubs across all categories.
func (c *Catalog) ClubCount() int { return len(c.clubs) }

// Category returns the category at index i.
func (c *Catalog) Category(i int) (Category, error) {
	if i < 0 || i >= len(c.categories) {
		return Category{}, &LookupError{Kind: "category", Key: strconv.Itoa(i)}
	}
	return c.categories[i], nil
}

// Club returns the club with the exact name.
func (c *Catalog) Club(name string) (Club, error) {
	club, ok := c.clubs[name]
	if !ok {
		return Club{}, &LookupError{Kind: "club", Key: name}
	}
	return club, nil
}
