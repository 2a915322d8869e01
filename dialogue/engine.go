// Package dialogue maps inbound chat events to outbound replies.
//
// The engine keeps no per-chat state: every decision is made from the event
// payload and the immutable catalog and FAQ snapshot.
package dialogue

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/anpruch/clubbot/catalog"
	"github.com/anpruch/clubbot/core/logger"
	"github.com/anpruch/clubbot/core/telegram/commands"
	"github.com/anpruch/clubbot/core/telegram/keyboard"
	"github.com/anpruch/clubbot/faq"
)

// Kind classifies an inbound event.
type Kind int

const (
	KindCommand Kind = iota
	KindText
	KindCallback
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindText:
		return "text"
	case KindCallback:
		return "callback"
	}
	return "unknown"
}

// Format selects how the transport renders a reply.
type Format int

const (
	FormatPlain Format = iota
	FormatHTML
	FormatMarkdown
)

// Callback payloads.
const (
	PayloadYes            = "yes"
	PayloadNo             = "no"
	PayloadAdditionalInfo = "additional_info"
	PayloadNone           = "none"
)

const (
	clubsPerRow     = 2
	findResultLimit = 10
)

// Button is an inline button whose Data is sent back verbatim on press.
type Button = keyboard.InlineBtn

// Event is one inbound update reduced to what the engine needs.
type Event struct {
	ChatID  int64
	Kind    Kind
	Payload string
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Format   Format
	Keyboard [][]Button
	// Quote sends the reply as a response to the triggering message.
	Quote bool
}

// Route handles callback payloads accepted by Match.
type Route struct {
	Name   string
	Match  func(payload string) bool
	Handle func(payload string) ([]Reply, error)
}

// Engine is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	faqText string
	msgs    Messages
	routes  []Route
}

// New builds an engine over a loaded catalog. A nil FAQ behaves as empty.
func New(cat *catalog.Catalog, f *faq.FAQ, msgs Messages) *Engine {
	e := &Engine{catalog: cat, faqText: f.Render(), msgs: msgs}
	e.routes = []Route{
		{Name: "yes", Match: equals(PayloadYes), Handle: e.categoryList},
		{Name: "no", Match: equals(PayloadNo), Handle: e.declined},
		{Name: "category", Match: isDigits, Handle: e.clubList},
		{Name: "club", Match: hasPrefix(catalog.ClubPayloadPrefix), Handle: e.clubDetail},
		{Name: "additional_info", Match: equals(PayloadAdditionalInfo), Handle: e.faq},
		{Name: "none", Match: equals(PayloadNone), Handle: e.closing},
	}
	return e
}

// Routes returns the callback routes in match order.
func (e *Engine) Routes() []Route {
	return append([]Route(nil), e.routes...)
}

// Handle returns the replies for ev in send order. On a *catalog.LookupError
// the replies hold the fallback message and the error is returned alongside.
func (e *Engine) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	var (
		route   string
		replies []Reply
		err     error
	)
	switch ev.Kind {
	case KindCommand:
		route, replies = e.command(ev.Payload)
	case KindCallback:
		route, replies, err = e.callback(ev.Payload)
	default:
		route, replies = "free_text", e.freeText()
	}
	if logger.ShouldSampleDebug() {
		logger.Dialogue.LogAttrs(ctx, slog.LevelDebug, "dialogue route",
			slog.String("event", "dialogue.route"),
			slog.String("kind", ev.Kind.String()),
			slog.String("route", route),
			slog.Int("replies", len(replies)),
		)
	}
	return replies, err
}

func (e *Engine) command(text string) (string, []Reply) {
	name := commandName(text)
	switch name {
	case "start":
		return name, e.welcome(e.msgs.Greeting)
	case "help":
		return name, e.welcome(e.msgs.Help)
	case "find":
		return name, e.find(commands.Args(text))
	}
	return "free_text", e.freeText()
}

func (e *Engine) callback(payload string) (string, []Reply, error) {
	for _, r := range e.routes {
		if !r.Match(payload) {
			continue
		}
		replies, err := r.Handle(payload)
		if err != nil {
			return r.Name, e.fallback(), err
		}
		return r.Name, replies, nil
	}
	return "unknown", e.fallback(), &catalog.LookupError{Kind: "callback", Key: payload}
}

func (e *Engine) welcome(body string) []Reply {
	return []Reply{
		{Text: body, Format: FormatPlain, Quote: true},
		e.askInterest(),
	}
}

func (e *Engine) askInterest() Reply {
	return Reply{
		Text: e.msgs.InterestQuestion,
		Keyboard: [][]Button{{
			{Text: e.msgs.ButtonYes, Data: PayloadYes},
			{Text: e.msgs.ButtonNo, Data: PayloadNo},
		}},
	}
}

func (e *Engine) askMore() Reply {
	return Reply{
		Text: e.msgs.MorePrompt,
		Keyboard: [][]Button{{
			{Text: e.msgs.ButtonMoreInfo, Data: PayloadAdditionalInfo},
			{Text: e.msgs.ButtonNothing, Data: PayloadNone},
		}},
	}
}

func (e *Engine) categoryList(string) ([]Reply, error) {
	categories := e.catalog.Categories()
	buttons := make([]Button, len(categories))
	for i, c := range categories {
		buttons[i] = Button{Text: c.Name(), Data: strconv.Itoa(i)}
	}
	return []Reply{
		{Text: e.msgs.CategoryIntro, Keyboard: keyboard.Chunk(buttons, 1)},
		{Text: e.msgs.Filler},
		e.askMore(),
	}, nil
}

func (e *Engine) declined(string) ([]Reply, error) {
	return []Reply{{Text: e.msgs.Decline}}, nil
}

func (e *Engine) clubList(payload string) ([]Reply, error) {
	idx, err := strconv.Atoi(payload)
	if err != nil {
		return nil, &catalog.LookupError{Kind: "category", Key: payload}
	}
	category, err := e.catalog.Category(idx)
	if err != nil {
		return nil, err
	}
	return []Reply{{
		Text:     fill(e.msgs.CategoryChosen, "category", category.Name()),
		Keyboard: clubButtons(category.Clubs()),
	}}, nil
}

func (e *Engine) clubDetail(payload string) ([]Reply, error) {
	club, err := e.catalog.Club(strings.TrimPrefix(payload, catalog.ClubPayloadPrefix))
	if err != nil {
		return nil, err
	}
	return []Reply{{
		Text: fill(e.msgs.ClubDetail,
			"name", club.Name(),
			"description", club.Description(),
			"link", club.Link(),
		),
	}}, nil
}

func (e *Engine) faq(string) ([]Reply, error) {
	if e.faqText == "" {
		return nil, nil
	}
	return []Reply{{Text: e.faqText, Format: FormatHTML}}, nil
}

func (e *Engine) closing(string) ([]Reply, error) {
	return []Reply{{Text: e.msgs.Closing, Format: FormatHTML}}, nil
}

func (e *Engine) freeText() []Reply {
	return []Reply{{
		Text:     e.msgs.Apology,
		Keyboard: [][]Button{{{Text: e.msgs.ButtonMoreInfo, Data: PayloadAdditionalInfo}}},
	}}
}

func (e *Engine) find(query string) []Reply {
	if query == "" {
		return []Reply{{Text: e.msgs.FindUsage}}
	}
	clubs := e.catalog.Search(query, findResultLimit)
	if len(clubs) == 0 {
		return []Reply{{Text: fill(e.msgs.FindEmpty, "query", query)}}
	}
	return []Reply{{
		Text:     fill(e.msgs.FindResults, "query", query),
		Keyboard: clubButtons(clubs),
	}}
}

func (e *Engine) fallback() []Reply {
	return []Reply{{Text: e.msgs.LookupFailed}}
}

func clubButtons(clubs []catalog.Club) [][]Button {
	buttons := make([]Button, len(clubs))
	for i, c := range clubs {
		buttons[i] = Button{Text: c.Name(), Data: c.Payload()}
	}
	return keyboard.Chunk(buttons, clubsPerRow)
}

// commandName extracts "start" from "/start@clubbot args".
func commandName(text string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	word = strings.TrimPrefix(word, "/")
	word, _, _ = strings.Cut(word, "@")
	return strings.ToLower(word)
}

func equals(want string) func(string) bool {
	return func(payload string) bool { return payload == want }
}

func hasPrefix(prefix string) func(string) bool {
	return func(payload string) bool { return strings.HasPrefix(payload, prefix) }
}

func isDigits(payload string) bool {
	if payload == "" {
		return false
	}
	for i := 0; i < len(payload); i++ {
		if payload[i] < '0' || payload[i] > '9' {
			return false
		}
	}
	return true
}
