package app

import (
	"fmt"
	"strings"

	coreconfig "github.com/anpruch/clubbot/core/config"
	coredatabase "github.com/anpruch/clubbot/core/database"
)

const (
	// SourceFile loads the catalog from a JSON document.
	SourceFile = "file"
	// SourceDatabase loads the catalog from the relational store.
	SourceDatabase = "database"

	defaultCatalogPath = "dataset/catalog.json"
	defaultFAQPath     = "dataset/faq.json"
)

// CatalogConfig selects where the catalog and FAQ come from.
type CatalogConfig struct {
	Source  string `yaml:"source" envconfig:"CATALOG_SOURCE"`
	Path    string `yaml:"path" envconfig:"CATALOG_PATH"`
	FAQPath string `yaml:"faq_path" envconfig:"FAQ_PATH"`
	// SeedPath imports a JSON catalog into an empty database on startup.
	SeedPath string `yaml:"seed_path" envconfig:"CATALOG_SEED_PATH"`
}

// DialogueConfig overrides the built-in dialogue texts.
type DialogueConfig struct {
	MessagesPath string `yaml:"messages_path" envconfig:"DIALOGUE_MESSAGES_PATH"`
}

// HealthConfig enables the HTTP health endpoint when Listen is set.
type HealthConfig struct {
	Listen string `yaml:"listen" envconfig:"HEALTH_LISTEN"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Catalog  CatalogConfig       `yaml:"catalog"`
	Dialogue DialogueConfig      `yaml:"dialogue"`
	Health   HealthConfig        `yaml:"health"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// UsesDatabase reports whether the catalog is read from the database.
func (c *Config) UsesDatabase() bool {
	return c.Catalog.Source == SourceDatabase
}

// LoadConfig reads the YAML file at path, applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the configuration and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	source := strings.ToLower(strings.TrimSpace(c.Catalog.Source))
	if source == "" {
		source = SourceFile
	}
	switch source {
	case SourceFile:
		if strings.TrimSpace(c.Catalog.Path) == "" {
			c.Catalog.Path = defaultCatalogPath
		}
	case SourceDatabase:
		if err := c.Database.Normalize(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	default:
		return fmt.Errorf("invalid catalog.source %q; allowed: %s, %s", c.Catalog.Source, SourceFile, SourceDatabase)
	}
	c.Catalog.Source = source

	if strings.TrimSpace(c.Catalog.FAQPath) == "" {
		c.Catalog.FAQPath = defaultFAQPath
	}
	return nil
}
