package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/core/bootstrap"
	coreconfig "github.com/anpruch/clubbot/core/config"
	coredatabase "github.com/anpruch/clubbot/core/database"
	coretelegram "github.com/anpruch/clubbot/core/telegram"
	tghelpers "github.com/anpruch/clubbot/core/telegram/helpers"
	"github.com/anpruch/clubbot/dialogue"
)

const testCatalog = `{
	"Science": {
		"Chess Club": ["https://t.me/chess", "Weekly games"],
		"Astro": ["https://t.me/astro", "Stars"],
		"Robotics": ["https://t.me/robots", "Build robots"]
	},
	"Art": {}
}`

type apiCall struct {
	Method string
	Params map[string]any
}

type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
	// failSends makes the next n sendMessage calls answer 400.
	failSends int
}

func (f *fakeAPI) shouldFail(method string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if method != "sendMessage" || f.failSends == 0 {
		return false
	}
	f.failSends--
	return true
}

func (f *fakeAPI) record(method string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, apiCall{Method: method, Params: params})
}

func (f *fakeAPI) sent() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == "sendMessage" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func newFakeBot(t *testing.T) (*tele.Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		params := map[string]any{}
		_ = json.Unmarshal(body, &params)
		method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		api.record(method, params)
		w.Header().Set("Content-Type", "application/json")
		if api.shouldFail(method) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: boom"}`)
			return
		}
		if method == "answerCallbackQuery" {
			_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":100,"date":0,"chat":{"id":42,"type":"private"},"text":"ok"}}`)
	}))
	t.Cleanup(srv.Close)
	bot, err := tele.NewBot(tele.Settings{Token: "123:test", URL: srv.URL, Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return bot, api
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:test", AdminID: 99}},
		Catalog: CatalogConfig{
			Path:    writeFile(t, dir, "catalog.json", testCatalog),
			FAQPath: writeFile(t, dir, "faq.json", `{"Q1":"A1"}`),
		},
	}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	return cfg
}

func stubBootstrap(t *testing.T) *[]bootstrap.Options {
	t.Helper()
	var seen []bootstrap.Options
	prev := bootstrapRun
	bootstrapRun = func(_ context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
		seen = append(seen, opts)
		return &bootstrap.Result{}, nil
	}
	t.Cleanup(func() { bootstrapRun = prev })
	return &seen
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	stubBootstrap(t)
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func messageContext(bot *tele.Bot, userID int64, text string) tele.Context {
	return bot.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			ID:     10,
			Chat:   &tele.Chat{ID: 42, Type: tele.ChatPrivate},
			Sender: &tele.User{ID: userID},
			Text:   text,
		},
	})
}

func callbackContext(bot *tele.Bot, data string) tele.Context {
	return bot.NewContext(tele.Update{
		ID: 2,
		Callback: &tele.Callback{
			ID:     "cb-1",
			Data:   data,
			Sender: &tele.User{ID: 7},
			Message: &tele.Message{
				ID:   11,
				Chat: &tele.Chat{ID: 42, Type: tele.ChatPrivate},
			},
		},
	})
}

func findRoute(t *testing.T, opts coretelegram.RunOptions, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range opts.Routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func texts(calls []apiCall) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i], _ = c.Params["text"].(string)
	}
	return out
}

func TestNewSkipsDatabaseForFileSource(t *testing.T) {
	seen := stubBootstrap(t)
	a, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if len(*seen) != 1 || (*seen)[0].Database != nil {
		t.Fatalf("bootstrap options = %+v", *seen)
	}
	if a.catalog.Len() != 2 || a.faq.Len() != 1 {
		t.Fatalf("loaded %d categories, %d faq", a.catalog.Len(), a.faq.Len())
	}
}

func TestNewDatabaseSourceSeedsAndLoads(t *testing.T) {
	schema, err := os.ReadFile(filepath.Join("..", "migrations", "sqlite3", "000001_catalog.up.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var seen []bootstrap.Options
	prev := bootstrapRun
	bootstrapRun = func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error) {
		seen = append(seen, opts)
		db, err := sqlx.Open(coredatabase.DriverSQLite, ":memory:")
		if err != nil {
			return nil, err
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(string(schema)); err != nil {
			return nil, err
		}
		for _, s := range opts.Seeders {
			if err := s.Seed(ctx, db); err != nil {
				return nil, err
			}
		}
		return &bootstrap.Result{DB: db}, nil
	}
	defer func() { bootstrapRun = prev }()

	cfg := testConfig(t)
	cfg.Catalog.Source = SourceDatabase
	cfg.Catalog.SeedPath = cfg.Catalog.Path
	cfg.Database.Driver = coredatabase.DriverSQLite
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()
	if len(seen) != 1 || seen[0].Database == nil || len(seen[0].Seeders) != 1 {
		t.Fatalf("bootstrap options = %+v", seen)
	}
	if a.catalog.Len() != 2 || a.catalog.ClubCount() != 3 {
		t.Fatalf("loaded %d categories, %d clubs", a.catalog.Len(), a.catalog.ClubCount())
	}
	if a.pinger() == nil {
		t.Fatal("database should be exposed to health checks")
	}
}

func TestNewFailsOnBrokenCatalog(t *testing.T) {
	stubBootstrap(t)
	cfg := testConfig(t)
	cfg.Catalog.Path = writeFile(t, t.TempDir(), "bad.json", `{"S": {"A": ["only link"]}}`)
	_, err := New(context.Background(), cfg)
	var dserr *catalog.DataSourceError
	if !errors.As(err, &dserr) {
		t.Fatalf("expected DataSourceError, got %v", err)
	}

	cfg = testConfig(t)
	cfg.Catalog.FAQPath = filepath.Join(t.TempDir(), "missing.json")
	if _, err := New(context.Background(), cfg); !errors.As(err, &dserr) {
		t.Fatalf("expected DataSourceError for FAQ, got %v", err)
	}
}

func TestStartSendsGreetingThenInterest(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	if err := findRoute(t, opts, "/start")(messageContext(bot, 7, "/start")); err != nil {
		t.Fatalf("start: %v", err)
	}
	sent := api.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(sent))
	}
	if sent[0].Params["text"] != dialogue.DefaultMessages().Greeting {
		t.Fatalf("first message = %v", sent[0].Params["text"])
	}
	markup, _ := sent[1].Params["reply_markup"].(string)
	if !strings.Contains(markup, `"callback_data":"yes"`) || !strings.Contains(markup, `"callback_data":"no"`) {
		t.Fatalf("interest markup = %s", markup)
	}
}

func TestYesFlowKeepsOrderThroughDispatcher(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	tghelpers.SetDispatcher(opts.Dispatcher)
	defer tghelpers.SetDispatcher(nil)

	if err := findRoute(t, opts, tele.OnCallback)(callbackContext(bot, "yes")); err != nil {
		t.Fatalf("yes: %v", err)
	}
	opts.Dispatcher.Close()

	msgs := dialogue.DefaultMessages()
	got := texts(api.sent())
	want := []string{msgs.CategoryIntro, msgs.Filler, msgs.MorePrompt}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("sent = %q, want %q", got, want)
	}
	if api.count("answerCallbackQuery") != 1 {
		t.Fatalf("callback not acknowledged")
	}
}

func TestChessClubDetailIsPlainText(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	handler := findRoute(t, opts, tele.OnCallback)
	if err := handler(callbackContext(bot, "0")); err != nil {
		t.Fatalf("category: %v", err)
	}
	if err := handler(callbackContext(bot, "club_Chess Club")); err != nil {
		t.Fatalf("club: %v", err)
	}
	sent := api.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages", len(sent))
	}
	markup, _ := sent[0].Params["reply_markup"].(string)
	if !strings.Contains(markup, `"callback_data":"club_Chess Club"`) {
		t.Fatalf("club buttons = %s", markup)
	}
	detail := sent[1]
	if _, ok := detail.Params["parse_mode"]; ok {
		t.Fatalf("detail must be sent without parse mode: %v", detail.Params)
	}
	text, _ := detail.Params["text"].(string)
	if !strings.HasPrefix(text, "Chess Club") || !strings.Contains(text, "Weekly games") || !strings.HasSuffix(text, "https://t.me/chess") {
		t.Fatalf("detail = %q", text)
	}
}

func TestFAQAndClosingUseHTML(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	handler := findRoute(t, opts, tele.OnCallback)
	for _, data := range []string{"additional_info", "none"} {
		if err := handler(callbackContext(bot, data)); err != nil {
			t.Fatalf("%s: %v", data, err)
		}
	}
	sent := api.sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages", len(sent))
	}
	if sent[0].Params["text"] != "<b>Q1</b>\n    — A1" {
		t.Fatalf("faq = %v", sent[0].Params["text"])
	}
	for _, s := range sent {
		if s.Params["parse_mode"] != "HTML" {
			t.Fatalf("parse_mode = %v", s.Params["parse_mode"])
		}
	}
}

func TestUnknownCallbackSendsFallback(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	handler := findRoute(t, opts, tele.OnCallback)
	for _, data := range []string{"bogus", "9", "club_Go Club"} {
		if err := handler(callbackContext(bot, data)); err != nil {
			t.Fatalf("%s: handler must not fail: %v", data, err)
		}
	}
	for _, text := range texts(api.sent()) {
		if text != dialogue.DefaultMessages().LookupFailed {
			t.Fatalf("unexpected reply %q", text)
		}
	}
	if len(api.sent()) != 3 || api.count("answerCallbackQuery") != 3 {
		t.Fatalf("sent %d, answered %d", len(api.sent()), api.count("answerCallbackQuery"))
	}
}

func TestFreeTextApology(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	if err := findRoute(t, opts, tele.OnText)(messageContext(bot, 7, "привет")); err != nil {
		t.Fatalf("text: %v", err)
	}
	sent := api.sent()
	if len(sent) != 1 || sent[0].Params["text"] != dialogue.DefaultMessages().Apology {
		t.Fatalf("sent = %+v", sent)
	}
}

func TestStatsIsAdminOnly(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	handler := findRoute(t, opts, "/stats")
	_ = handler(messageContext(bot, 7, "/stats"))
	rejected := texts(api.sent())
	if len(rejected) != 1 || rejected[0] != dialogue.DefaultMessages().AdminOnly {
		t.Fatalf("non-admin reply = %q", rejected)
	}
	if err := handler(messageContext(bot, 99, "/stats")); err != nil {
		t.Fatalf("stats: %v", err)
	}
	sent := texts(api.sent())[1:]
	if len(sent) != 1 || !strings.Contains(sent[0], "Категорий: 2") || !strings.Contains(sent[0], "Клубов: 3") {
		t.Fatalf("stats = %q", sent)
	}
}

func TestRegistryExposesPublicCommands(t *testing.T) {
	a := newTestApp(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()
	var names []string
	for _, c := range opts.Registry.ListCommands(true) {
		names = append(names, c.Text)
	}
	if strings.Join(names, ",") != "find,help,start" {
		t.Fatalf("menu commands = %v", names)
	}
	if got := strings.Join(opts.Registry.ListCallbacks(), ","); got != "yes,no,category,club,additional_info,none" {
		t.Fatalf("callbacks = %s", got)
	}
}

func TestFailedSendDoesNotDropLaterReplies(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	api.failSends = 1
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	err = findRoute(t, opts, tele.OnCallback)(callbackContext(bot, "yes"))
	if err == nil {
		t.Fatal("expected the failed send to be reported")
	}
	msgs := dialogue.DefaultMessages()
	got := texts(api.sent())
	want := []string{msgs.CategoryIntro, msgs.Filler, msgs.MorePrompt}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("attempted = %q, want every reply attempted", got)
	}
}

func TestRateLimitedCallbackIsAcknowledged(t *testing.T) {
	stubBootstrap(t)
	cfg := testConfig(t)
	cfg.RateLimit.IntervalMS = 300
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	h := findRoute(t, opts, tele.OnCallback)
	for i := len(opts.Middlewares) - 1; i >= 0; i-- {
		h = opts.Middlewares[i].Use(h)
	}
	for _, data := range []string{"0", "1"} {
		_ = h(callbackContext(bot, data))
	}
	if n := api.count("answerCallbackQuery"); n != 2 {
		t.Fatalf("answered %d of 2 callbacks", n)
	}
	if n := len(api.sent()); n != 1 {
		t.Fatalf("sent %d messages, want only the first press handled", n)
	}
}

func TestCommandAliasesReachEngine(t *testing.T) {
	a := newTestApp(t)
	bot, api := newFakeBot(t)
	opts, err := a.TelegramRunOptions()
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	defer opts.Dispatcher.Close()

	if err := findRoute(t, opts, "/search")(messageContext(bot, 7, "/search chess")); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := findRoute(t, opts, "/menu")(messageContext(bot, 7, "/menu")); err != nil {
		t.Fatalf("menu: %v", err)
	}
	got := texts(api.sent())
	if len(got) != 3 {
		t.Fatalf("sent = %q", got)
	}
	if !strings.Contains(got[0], "chess") || got[1] != dialogue.DefaultMessages().Greeting {
		t.Fatalf("sent = %q", got)
	}
}

func TestCanonicalCommand(t *testing.T) {
	cases := map[string]string{
		"/search":            "/find",
		"/search  chess ":    "/find chess",
		"/search@bot robots": "/find robots",
	}
	for in, want := range cases {
		if got := canonicalCommand("find", in); got != want {
			t.Fatalf("canonicalCommand(%q) = %q, want %q", in, got, want)
		}
	}
}
