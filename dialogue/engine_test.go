package dialogue

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/faq"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Parse([]byte(`{
		"Science": {
			"Chess Club": ["https://t.me/chess", "Weekly games"],
			"Astro": ["https://t.me/astro", "Stars"],
			"Robotics": ["https://t.me/robots", "Build robots"]
		},
		"Art": {}
	}`))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func testEngine(t *testing.T, entries ...faq.Entry) *Engine {
	t.Helper()
	return New(testCatalog(t), faq.New(entries), DefaultMessages())
}

func handle(t *testing.T, e *Engine, kind Kind, payload string) []Reply {
	t.Helper()
	replies, err := e.Handle(context.Background(), Event{ChatID: 42, Kind: kind, Payload: payload})
	if err != nil {
		t.Fatalf("Handle(%v, %q): %v", kind, payload, err)
	}
	return replies
}

func TestStartAndHelpGreetThenAskInterest(t *testing.T) {
	e := testEngine(t)
	msgs := DefaultMessages()
	for _, tc := range []struct{ cmd, body string }{
		{"/start", msgs.Greeting},
		{"/help", msgs.Help},
		{"/start@clubbot", msgs.Greeting},
	} {
		replies := handle(t, e, KindCommand, tc.cmd)
		if len(replies) != 2 {
			t.Fatalf("%s: got %d replies", tc.cmd, len(replies))
		}
		if replies[0].Text != tc.body || !replies[0].Quote || replies[0].Format != FormatPlain {
			t.Fatalf("%s: unexpected greeting %+v", tc.cmd, replies[0])
		}
		kb := replies[1].Keyboard
		if len(kb) != 1 || len(kb[0]) != 2 || kb[0][0].Data != "yes" || kb[0][1].Data != "no" {
			t.Fatalf("%s: unexpected interest keyboard %+v", tc.cmd, kb)
		}
		if kb[0][0].Text != "Да!" || kb[0][1].Text != "Нет(" {
			t.Fatalf("%s: unexpected labels %+v", tc.cmd, kb)
		}
	}
}

func TestYesListsCategoriesThenFillerThenMore(t *testing.T) {
	replies := handle(t, testEngine(t), KindCallback, "yes")
	if len(replies) != 3 {
		t.Fatalf("got %d replies, want 3", len(replies))
	}
	cats := replies[0].Keyboard
	if len(cats) != 2 || cats[0][0].Data != "0" || cats[1][0].Data != "1" || cats[1][0].Text != "Art" {
		t.Fatalf("unexpected category keyboard %+v", cats)
	}
	if replies[1].Keyboard != nil || replies[1].Text == "" {
		t.Fatalf("filler should be text only: %+v", replies[1])
	}
	more := replies[2].Keyboard
	if len(more) != 1 || more[0][0].Data != "additional_info" || more[0][1].Data != "none" {
		t.Fatalf("unexpected more keyboard %+v", more)
	}
}

func TestNoDeclines(t *testing.T) {
	replies := handle(t, testEngine(t), KindCallback, "no")
	if len(replies) != 1 || replies[0].Keyboard != nil || replies[0].Text != DefaultMessages().Decline {
		t.Fatalf("unexpected decline %+v", replies)
	}
}

func TestCategoryShowsClubsTwoPerRow(t *testing.T) {
	replies := handle(t, testEngine(t), KindCallback, "0")
	if len(replies) != 1 {
		t.Fatalf("got %d replies", len(replies))
	}
	if !strings.HasPrefix(replies[0].Text, "Science - отличный выбор!") {
		t.Fatalf("unexpected header %q", replies[0].Text)
	}
	kb := replies[0].Keyboard
	if len(kb) != 2 || len(kb[0]) != 2 || len(kb[1]) != 1 {
		t.Fatalf("unexpected layout %+v", kb)
	}
	if kb[0][0].Data != "club_Chess Club" || kb[1][0].Data != "club_Robotics" {
		t.Fatalf("unexpected payloads %+v", kb)
	}

	empty := handle(t, testEngine(t), KindCallback, "1")
	if len(empty[0].Keyboard) != 0 {
		t.Fatalf("empty category should have no buttons: %+v", empty[0].Keyboard)
	}
}

func TestChessClubDetail(t *testing.T) {
	replies := handle(t, testEngine(t), KindCallback, "club_Chess Club")
	if len(replies) != 1 || replies[0].Format != FormatPlain {
		t.Fatalf("unexpected replies %+v", replies)
	}
	want := "Chess Club \n\nWeekly games\n \n \n Подробнее о клубе можешь узнать здесь: \nhttps://t.me/chess"
	if replies[0].Text != want {
		t.Fatalf("detail = %q, want %q", replies[0].Text, want)
	}
}

func TestAdditionalInfoRendersFAQ(t *testing.T) {
	e := testEngine(t, faq.Entry{Question: "Q1", Answer: "A1"})
	replies := handle(t, e, KindCallback, "additional_info")
	if len(replies) != 1 || replies[0].Format != FormatHTML || replies[0].Text != "<b>Q1</b>\n    — A1" {
		t.Fatalf("unexpected FAQ reply %+v", replies)
	}
	if got := handle(t, testEngine(t), KindCallback, "additional_info"); len(got) != 0 {
		t.Fatalf("empty FAQ should be elided, got %+v", got)
	}
}

func TestNoneSendsHTMLClosing(t *testing.T) {
	replies := handle(t, testEngine(t), KindCallback, "none")
	if len(replies) != 1 || replies[0].Format != FormatHTML || !strings.Contains(replies[0].Text, "<b>") {
		t.Fatalf("unexpected closing %+v", replies)
	}
	if strings.Contains(replies[0].Text, "**") {
		t.Fatal("closing must not carry markdown markers under HTML")
	}
}

func TestFreeTextApologises(t *testing.T) {
	for _, kind := range []Kind{KindText, KindCommand} {
		replies := handle(t, testEngine(t), kind, "hello there")
		if len(replies) != 1 {
			t.Fatalf("got %d replies", len(replies))
		}
		kb := replies[0].Keyboard
		if len(kb) != 1 || len(kb[0]) != 1 || kb[0][0].Data != "additional_info" {
			t.Fatalf("unexpected apology keyboard %+v", kb)
		}
	}
}

func TestLookupFailures(t *testing.T) {
	e := testEngine(t)
	for _, payload := range []string{"7", "99999999999999999999999", "club_Go Club", "None", "bogus"} {
		replies, err := e.Handle(context.Background(), Event{ChatID: 1, Kind: KindCallback, Payload: payload})
		var lerr *catalog.LookupError
		if !errors.As(err, &lerr) {
			t.Fatalf("%q: expected LookupError, got %v", payload, err)
		}
		if len(replies) != 1 || replies[0].Text != DefaultMessages().LookupFailed {
			t.Fatalf("%q: expected fallback reply, got %+v", payload, replies)
		}
	}
}

func TestRoutePrecedence(t *testing.T) {
	var names []string
	for _, r := range testEngine(t).Routes() {
		names = append(names, r.Name)
	}
	got := strings.Join(names, ",")
	if got != "yes,no,category,club,additional_info,none" {
		t.Fatalf("routes = %s", got)
	}
}

func TestFindCommand(t *testing.T) {
	e := testEngine(t)
	usage := handle(t, e, KindCommand, "/find")
	if len(usage) != 1 || usage[0].Text != DefaultMessages().FindUsage {
		t.Fatalf("unexpected usage %+v", usage)
	}
	hits := handle(t, e, KindCommand, "/find chess")
	if len(hits) != 1 || len(hits[0].Keyboard) != 1 || hits[0].Keyboard[0][0].Data != "club_Chess Club" {
		t.Fatalf("unexpected hits %+v", hits)
	}
	miss := handle(t, e, KindCommand, "/find zzz")
	if len(miss) != 1 || miss[0].Keyboard != nil || !strings.Contains(miss[0].Text, "zzz") {
		t.Fatalf("unexpected miss %+v", miss)
	}
}

func TestIsDigits(t *testing.T) {
	cases := map[string]bool{"0": true, "12": true, "": false, "-1": false, "1a": false, "١": false}
	for in, want := range cases {
		if got := isDigits(in); got != want {
			t.Fatalf("isDigits(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRepeatedStartIsIdentical(t *testing.T) {
	e := testEngine(t)
	first := handle(t, e, KindCommand, "/start")
	second := handle(t, e, KindCommand, "/start")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("second /start differs:\n%+v\n%+v", first, second)
	}
}

func TestSingleClubWalkthrough(t *testing.T) {
	cat, err := catalog.Parse([]byte(`{"Sport": {"Chess Club": ["http://x","desc"]}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	e := New(cat, faq.New(nil), DefaultMessages())

	if got := handle(t, e, KindCommand, "/start"); len(got) != 2 {
		t.Fatalf("start replies = %d", len(got))
	}
	cats := handle(t, e, KindCallback, "yes")[0].Keyboard
	if len(cats) != 1 || cats[0][0] != (Button{Text: "Sport", Data: "0"}) {
		t.Fatalf("categories = %+v", cats)
	}
	clubs := handle(t, e, KindCallback, "0")
	if len(clubs) != 1 || !strings.HasPrefix(clubs[0].Text, "Sport - отличный выбор!") {
		t.Fatalf("category reply = %+v", clubs)
	}
	if kb := clubs[0].Keyboard; len(kb) != 1 || kb[0][0] != (Button{Text: "Chess Club", Data: "club_Chess Club"}) {
		t.Fatalf("club keyboard = %+v", kb)
	}
	detail := handle(t, e, KindCallback, "club_Chess Club")
	want := "Chess Club \n\ndesc\n \n \n Подробнее о клубе можешь узнать здесь: \nhttp://x"
	if len(detail) != 1 || detail[0].Text != want {
		t.Fatalf("detail = %+v", detail)
	}
}

func TestLookupFailureDoesNotAffectNextEvent(t *testing.T) {
	e := testEngine(t)
	replies, err := e.Handle(context.Background(), Event{ChatID: 42, Kind: KindCallback, Payload: "club_Nope"})
	var lerr *catalog.LookupError
	if !errors.As(err, &lerr) || len(replies) != 1 || replies[0].Text != DefaultMessages().LookupFailed {
		t.Fatalf("unknown club: replies=%+v err=%v", replies, err)
	}
	if got := handle(t, e, KindCallback, "yes"); len(got) != 3 {
		t.Fatalf("yes after failure: %d replies", len(got))
	}
}
