package router

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	tele "gopkg.in/telebot.v4"

	tg "github.com/anpruch/clubbot/core/telegram"
	"github.com/anpruch/clubbot/core/telegram/commands"
)

func offlineBot(t *testing.T) *tele.Bot {
	t.Helper()
	bot, err := tele.NewBot(tele.Settings{Token: "1:offline", Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}
	return bot
}

func textContext(bot *tele.Bot, userID int64, text string) tele.Context {
	return bot.NewContext(tele.Update{
		ID: 1,
		Message: &tele.Message{
			ID:     1,
			Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
			Sender: &tele.User{ID: userID},
			Text:   text,
		},
	})
}

func TestTextRoutesResolveCommandsAndFallback(t *testing.T) {
	bot := offlineBot(t)
	reg := tg.NewRegistry()
	var hits []string
	reg.RegisterCommand("/start", commands.Command{
		Description: "start",
		Aliases:     []string{"begin"},
		Handler:     func(tele.Context) error { hits = append(hits, "start"); return nil },
	})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "stats",
		AdminOnly:   true,
		Handler:     func(tele.Context) error { hits = append(hits, "stats"); return nil },
	})
	reg.SetTextFallback(func(tele.Context) error { hits = append(hits, "fallback"); return nil })

	routes := TextRoutes(reg)
	if len(routes) != 1 || routes[0].Endpoint != tele.OnText {
		t.Fatalf("routes = %+v", routes)
	}
	h := routes[0].Handler
	for _, text := range []string{"/begin", "start", "hello", "/stats", "/nope"} {
		if err := h(textContext(bot, 7, text)); err != nil {
			t.Fatalf("%s: %v", text, err)
		}
	}
	want := "start,fallback,fallback,fallback,fallback"
	if got := strings.Join(hits, ","); got != want {
		t.Fatalf("hits = %s, want %s", got, want)
	}
}

func TestCommandRoutesWrapAdminOnly(t *testing.T) {
	bot := offlineBot(t)
	reg := tg.NewRegistry()
	ran := 0
	reg.RegisterCommand("/stats", commands.Command{
		Description: "stats",
		AdminOnly:   true,
		Aliases:     []string{"s"},
		Handler:     func(tele.Context) error { ran++; return nil },
	})

	routes := CommandRoutes(reg, CommandRouteOptions{AdminID: 42})
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want command plus alias", len(routes))
	}
	endpoints := map[any]bool{}
	for _, r := range routes {
		endpoints[r.Endpoint] = true
		_ = r.Handler(textContext(bot, 7, "/stats"))
		_ = r.Handler(textContext(bot, 42, "/stats"))
	}
	if !endpoints["/stats"] || !endpoints["/s"] {
		t.Fatalf("endpoints = %v", endpoints)
	}
	if ran != 2 {
		t.Fatalf("ran = %d, want admin calls only", ran)
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "lookup failed" }
func (codedErr) Code() string  { return "lookup failed" }

func TestDeriveErrorCode(t *testing.T) {
	if got := deriveErrorCode(nil); got != "" {
		t.Fatalf("nil = %q", got)
	}
	wrapped := errors.Join(errors.New("ctx"), codedErr{})
	if got := deriveErrorCode(wrapped); got != "LOOKUP_FAILED" {
		t.Fatalf("coded = %q", got)
	}
	if got := deriveErrorCode(&tele.Error{Code: 400, Description: "Bad Request: boom"}); got != "http_4xx" {
		t.Fatalf("api error = %q", got)
	}
	if got := deriveErrorCode(errors.New("weird")); got != "unknown" {
		t.Fatalf("plain error = %q", got)
	}
}

func TestNormalizeHandlerName(t *testing.T) {
	cases := map[string]string{"/Start": "start", "": "unknown", " club detail ": "club_detail"}
	for in, want := range cases {
		if got := normalizeHandlerName(in); got != want {
			t.Fatalf("normalizeHandlerName(%q) = %q", in, got)
		}
	}
}

func TestCallbackRouteMatchesRawData(t *testing.T) {
	var answered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/answerCallbackQuery") {
			answered.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"result":true}`)
	}))
	defer srv.Close()
	bot, err := tele.NewBot(tele.Settings{Token: "1:test", URL: srv.URL, Offline: true})
	if err != nil {
		t.Fatalf("bot: %v", err)
	}

	reg := tg.NewRegistry()
	var got []string
	_ = reg.RegisterCallback("club", func(s string) bool { return strings.HasPrefix(s, "club_") }, func(c tele.Context) error {
		got = append(got, "club:"+c.Callback().Data)
		return nil
	})
	reg.SetCallbackNotFound(func(c tele.Context) error {
		got = append(got, "missing:"+c.Callback().Data)
		return nil
	})
	route := CallbackRoute(reg)
	if route.Endpoint != tele.OnCallback {
		t.Fatalf("endpoint = %v", route.Endpoint)
	}

	for _, data := range []string{"club_Chess Club", "bogus"} {
		c := bot.NewContext(tele.Update{ID: 2, Callback: &tele.Callback{
			ID:      "cb1",
			Sender:  &tele.User{ID: 7},
			Data:    data,
			Message: &tele.Message{ID: 5, Chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate}},
		}})
		if err := route.Handler(c); err != nil {
			t.Fatalf("%s: %v", data, err)
		}
	}
	if strings.Join(got, ",") != "club:club_Chess Club,missing:bogus" {
		t.Fatalf("got = %v", got)
	}
	if n := answered.Load(); n != 2 {
		t.Fatalf("answered = %d, want every callback acknowledged", n)
	}
}

type fallbackStub struct{ text, callback int }

func (f *fallbackStub) UnknownText() tele.HandlerFunc {
	return func(tele.Context) error { f.text++; return nil }
}

func (f *fallbackStub) UnknownCallback() tele.HandlerFunc {
	return func(tele.Context) error { f.callback++; return nil }
}

func TestFallbackRoutesCoverTextAndCallbacks(t *testing.T) {
	bot := offlineBot(t)
	fb := &fallbackStub{}
	reg := tg.NewRegistry()
	routes := FallbackRoutes(reg, fb)
	if len(routes) != 2 || routes[0].Endpoint != tele.OnText || routes[1].Endpoint != tele.OnCallback {
		t.Fatalf("routes = %+v", routes)
	}
	if err := routes[0].Handler(textContext(bot, 7, "hello")); err != nil {
		t.Fatalf("text: %v", err)
	}
	if fb.text != 1 || fb.callback != 0 {
		t.Fatalf("fallback hits = %+v", fb)
	}
	if err := reg.CallbackNotFound()(nil); err != nil || fb.callback != 1 {
		t.Fatalf("callback fallback not installed: %+v", fb)
	}
}
