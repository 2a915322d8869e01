// Package app wires the catalog, FAQ and dialogue engine into the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/core/bootstrap"
	"github.com/anpruch/clubbot/core/logger"
	coretelegram "github.com/anpruch/clubbot/core/telegram"
	"github.com/anpruch/clubbot/core/telegram/middleware"
	"github.com/anpruch/clubbot/core/telegram/router"
	tgsender "github.com/anpruch/clubbot/core/telegram/sender"
	"github.com/anpruch/clubbot/dialogue"
	"github.com/anpruch/clubbot/faq"
	"github.com/anpruch/clubbot/health"
)

// App holds the loaded snapshot and the infrastructure built around it.
type App struct {
	cfg       *Config
	infra     *bootstrap.Result
	catalog   *catalog.Catalog
	faq       *faq.FAQ
	engine    *dialogue.Engine
	msgs      dialogue.Messages
	health    *health.Server
	sender    *tgsender.Dispatcher
	startedAt time.Time
}

// bootstrapRun is replaced in tests.
var bootstrapRun = bootstrap.Run

// New initializes logging and storage, then loads the catalog, FAQ and dialogue texts.
// Any data source failure aborts startup.
func New(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.UsesDatabase() {
		opts.Database = &cfg.Database
		if cfg.Catalog.SeedPath != "" {
			opts.Seeders = append(opts.Seeders, catalog.NewSeeder(cfg.Catalog.SeedPath))
		}
	}
	infra, err := bootstrapRun(ctx, opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, infra: infra, startedAt: time.Now()}
	if err := a.load(ctx); err != nil {
		_ = infra.Close()
		return nil, err
	}
	if cfg.Health.Listen != "" {
		a.health = health.NewServer(health.Options{
			Listen:  cfg.Health.Listen,
			DB:      a.pinger(),
			Details: a.details,
		})
	}
	return a, nil
}

func (a *App) load(ctx context.Context) error {
	var loader catalog.Loader
	if a.cfg.UsesDatabase() {
		loader = catalog.NewSQLLoader(a.infra.DB)
	} else {
		loader = catalog.NewFileLoader(a.cfg.Catalog.Path)
	}
	cat, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	f, err := faq.Load(a.cfg.Catalog.FAQPath)
	if err != nil {
		return fmt.Errorf("load faq: %w", err)
	}
	msgs, err := dialogue.LoadMessages(a.cfg.Dialogue.MessagesPath)
	if err != nil {
		return fmt.Errorf("load dialogue messages: %w", err)
	}
	a.catalog = cat
	a.faq = f
	a.msgs = msgs
	a.engine = dialogue.New(cat, f, msgs)
	return nil
}

func (a *App) pinger() health.Pinger {
	if a.infra == nil || a.infra.DB == nil {
		return nil
	}
	return a.infra.DB
}

// TelegramRunOptions builds the registry, routes and middlewares for the bot runtime.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := coretelegram.NewRegistry()
	transport := NewTransport(a.engine)

	a.registerCommands(reg, transport)
	for _, r := range a.engine.Routes() {
		if err := reg.RegisterCallback(r.Name, r.Match, transport.Handler(dialogue.KindCallback)); err != nil {
			return coretelegram.RunOptions{}, fmt.Errorf("register callback %s: %w", r.Name, err)
		}
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: a.rejectNonAdmin,
	})
	routes = append(routes, router.FallbackRoutes(reg, transport)...)

	a.sender = tgsender.NewDispatcher(coretelegram.SenderOptions(core.Sender))

	return coretelegram.RunOptions{
		Config:         core,
		Registry:       reg,
		Dispatcher:     a.sender,
		Middlewares:    coretelegram.DefaultMiddlewares(core, nil),
		Routes:         routes,
		AllowedUpdates: []string{"message", "callback_query"},
		OnStart:        a.onStart,
		OnStop:         a.onStop,
	}, nil
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	logger.L.LogAttrs(ctx, slog.LevelInfo, "catalog ready",
		slog.String("component", "app"),
		slog.String("event", "catalog.ready"),
		slog.String("source", a.cfg.Catalog.Source),
		slog.Int("categories", a.catalog.Len()),
		slog.Int("clubs", a.catalog.ClubCount()),
		slog.Int("faq", a.faq.Len()),
	)
	if a.health == nil {
		return nil
	}
	return a.health.Start()
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	if a.health == nil {
		return nil
	}
	return a.health.Shutdown(ctx)
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.infra.Close()
}

// Stats is a snapshot of runtime counters.
type Stats struct {
	Categories int
	Clubs      int
	FAQ        int
	Updates    middleware.UpdateStats
	Sent       uint64
	SendErrors uint64
	Uptime     time.Duration
}

// Stats collects the current counters.
func (a *App) Stats() Stats {
	s := Stats{
		Categories: a.catalog.Len(),
		Clubs:      a.catalog.ClubCount(),
		FAQ:        a.faq.Len(),
		Updates:    middleware.Stats(),
		Uptime:     time.Since(a.startedAt).Truncate(time.Second),
	}
	if a.sender != nil {
		s.Sent = a.sender.SentCount()
		s.SendErrors = a.sender.ErrorCount()
	}
	return s
}

func (a *App) details() map[string]any {
	s := a.Stats()
	return map[string]any{
		"source":      a.cfg.Catalog.Source,
		"categories":  s.Categories,
		"clubs":       s.Clubs,
		"faq":         s.FAQ,
		"updates":     s.Updates.Updates,
		"failures":    s.Updates.Failures,
		"sent":        s.Sent,
		"send_errors": s.SendErrors,
		"uptime_s":    int64(s.Uptime / time.Second),
	}
}
