package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/chartbot/core/telegram"
	"github.com/m3rciful/chartbot/core/telegram/state"
	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/chart"
	"github.com/m3rciful/chartbot/internal/menu"
	"github.com/m3rciful/chartbot/internal/navigation"

	tele "gopkg.in/telebot.v4"
)

type outgoing struct {
	what   any
	markup *tele.ReplyMarkup
}

// fakeContext records what handlers send. Helpers run synchronously because
// no sender dispatcher is installed in tests.
type fakeContext struct {
	tele.Context
	chat      *tele.Chat
	cb        *tele.Callback
	msg       *tele.Message
	store     map[string]any
	sent      []outgoing
	edits     []outgoing
	responses []*tele.CallbackResponse
	respond   error
	deleted   int
}

func newFakeContext() *fakeContext {
	return &fakeContext{chat: &tele.Chat{ID: 42}, store: map[string]any{}}
}

func (f *fakeContext) tap(token string) *fakeContext {
	f.cb = &tele.Callback{Unique: NavUnique, Data: token}
	f.msg = &tele.Message{ID: 1, Chat: f.chat}
	return f
}

func markupOf(opts []any) *tele.ReplyMarkup {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so.ReplyMarkup
		}
	}
	return nil
}

func (f *fakeContext) Update() tele.Update      { return tele.Update{ID: 1, Callback: f.cb} }
func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Sender() *tele.User       { return &tele.User{ID: 7} }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }
func (f *fakeContext) Message() *tele.Message   { return f.msg }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, v any)    { f.store[key] = v }
func (f *fakeContext) Delete() error            { f.deleted++; return nil }
func (f *fakeContext) Respond(r ...*tele.CallbackResponse) error {
	f.responses = append(f.responses, r...)
	return f.respond
}
func (f *fakeContext) Send(what any, opts ...any) error {
	f.sent = append(f.sent, outgoing{what, markupOf(opts)})
	return nil
}
func (f *fakeContext) EditOrSend(what any, opts ...any) error {
	f.edits = append(f.edits, outgoing{what, markupOf(opts)})
	return nil
}

type stubCharts struct {
	png   []byte
	err   error
	calls []string
}

func (s *stubCharts) Chart(_ context.Context, name string, c catalog.Category) ([]byte, error) {
	s.calls = append(s.calls, name+"/"+c.String())
	return s.png, s.err
}

var syncedAt = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

type stubSync struct {
	holder *catalog.Holder
	next   []string
	err    error
}

func (s *stubSync) LastSync() time.Time { return syncedAt }

func (s *stubSync) Refresh(context.Context) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.holder.Swap(catalog.New(s.next))
	return true, nil
}

type fixture struct {
	bot      *Bot
	holder   *catalog.Holder
	sessions state.Manager[navigation.State]
	charts   *stubCharts
	reported []map[string]string
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := &fixture{
		holder:   catalog.NewHolder(catalog.New(names)),
		sessions: state.NewMemoryManager(navigation.Root),
		charts:   &stubCharts{png: []byte("png")},
	}
	b, err := New(Options{
		Navigator: navigation.NewDispatcher(f.holder, f.sessions),
		Charts:    f.charts,
		Sync:      &stubSync{holder: f.holder, next: []string{"Acme", "Globex", "Initech"}},
		Report: func(_ context.Context, _ error, tags map[string]string) {
			f.reported = append(f.reported, tags)
		},
	})
	require.NoError(t, err)
	f.bot = b
	return f
}

func token(t navigation.Token) string { return navigation.Encode(t) }

func buttonTexts(m *tele.ReplyMarkup) []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, row := range m.InlineKeyboard {
		for _, b := range row {
			out = append(out, b.Text)
		}
	}
	return out
}

func TestCompaniesSendsRootMenu(t *testing.T) {
	f := newFixture(t, "Acme", "Globex")
	c := newFakeContext()

	require.NoError(t, f.bot.handleCompanies(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "Choose a company:", c.sent[0].what)
	assert.Equal(t, []string{"Acme", "Globex"}, buttonTexts(c.sent[0].markup))
}

func TestNavigationToChart(t *testing.T) {
	f := newFixture(t, "Acme", "Globex")
	acme := catalog.IDFor("Acme")

	c := newFakeContext().tap(token(navigation.SelectSource(acme)))
	require.NoError(t, f.bot.handleNav(c))
	require.Len(t, c.edits, 1)
	assert.Contains(t, c.edits[0].what, `"Acme"`)
	assert.Equal(t, []string{"Revenue", "Expenses", "Profit", "Tax", "All data", menu.BackLabel}, buttonTexts(c.edits[0].markup))

	c = newFakeContext().tap(token(navigation.SelectCategory(acme, catalog.Revenue)))
	require.NoError(t, f.bot.handleNav(c))
	assert.Equal(t, []string{"Acme/Revenue"}, f.charts.calls)
	require.Len(t, c.edits, 1)
	assert.Equal(t, menu.WaitText("Acme", catalog.Revenue), c.edits[0].what)
	require.Len(t, c.sent, 1)
	photo, ok := c.sent[0].what.(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, menu.ChartCaption("Acme", catalog.Revenue), photo.Caption)
	assert.Equal(t, []string{menu.BackLabel}, buttonTexts(c.sent[0].markup))
	assert.Equal(t, 1, c.deleted)

	back := c.sent[0].markup.InlineKeyboard[0][0].Data
	c = newFakeContext().tap(back)
	require.NoError(t, f.bot.handleNav(c))
	assert.Equal(t, navigation.AtSource(acme), f.sessions.Get(42))
}

func TestChartFailureKeepsBackButton(t *testing.T) {
	f := newFixture(t, "Acme")
	f.charts.err = &chart.MalformedDataError{Row: 1, Column: 1, Value: "n/a", Reason: "not a number"}
	acme := catalog.IDFor("Acme")
	f.bot.nav.Dispatch(context.Background(), 42, token(navigation.SelectSource(acme)))

	c := newFakeContext().tap(token(navigation.SelectCategory(acme, catalog.Tax)))
	require.NoError(t, f.bot.handleNav(c))

	require.Len(t, c.edits, 2)
	last := c.edits[1]
	assert.Equal(t, failureText, last.what)
	assert.Equal(t, []string{menu.BackLabel}, buttonTexts(last.markup))
	assert.Empty(t, c.sent)
	require.Len(t, f.reported, 1)
	assert.Equal(t, "chart", f.reported[0]["op"])
	assert.Equal(t, "malformed_data", f.reported[0]["err_code"])
	assert.Equal(t, navigation.AtCategory(acme, catalog.Tax), f.sessions.Get(42))
}

func TestStaleSelectionShowsRoot(t *testing.T) {
	f := newFixture(t, "Globex", "Initech")
	c := newFakeContext().tap(token(navigation.SelectSource(catalog.IDFor("Acme"))))

	require.NoError(t, f.bot.handleNav(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, staleToast, c.responses[0].Text)
	require.Len(t, c.edits, 1)
	assert.Equal(t, "Choose a company:", c.edits[0].what)
	assert.Equal(t, []string{"Globex", "Initech"}, buttonTexts(c.edits[0].markup))
}

func TestGarbageTokenRedisplays(t *testing.T) {
	f := newFixture(t, "Acme")
	c := newFakeContext().tap("not-a-token")

	require.NoError(t, f.bot.handleNav(c))
	require.Len(t, c.responses, 1)
	assert.Equal(t, inactiveToast, c.responses[0].Text)
	assert.Equal(t, navigation.Root(), f.sessions.Get(42))
}

func TestExpiredCallbackStillRendersMenu(t *testing.T) {
	f := newFixture(t, "Acme", "Globex")
	c := newFakeContext().tap(token(navigation.SelectSource(catalog.IDFor("Acme"))))
	c.respond = errors.New("telegram: query is too old (400)")

	require.NoError(t, f.bot.handleNav(c))
	require.Len(t, c.edits, 1)
	assert.Equal(t, navigation.AtSource(catalog.IDFor("Acme")), f.sessions.Get(42))
}

func TestSyncReportsCount(t *testing.T) {
	f := newFixture(t, "Acme")
	tap := newFakeContext()
	tap.tap(token(navigation.SelectSource(catalog.IDFor("Acme"))))
	require.NoError(t, f.bot.handleNav(tap))

	c := newFakeContext()
	require.NoError(t, f.bot.handleSync(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, "Catalog updated: 3 companies.\nLast sync: 15:04:05 UTC. Chats in a menu: 1.", c.sent[0].what)
}

func TestStartSendsReplyKeyboard(t *testing.T) {
	f := newFixture(t, "Acme")
	c := newFakeContext()
	require.NoError(t, f.bot.handleStart(c))
	require.Len(t, c.sent, 1)
	require.NotNil(t, c.sent[0].markup)
	assert.Equal(t, ShowCompaniesLabel, c.sent[0].markup.ReplyKeyboard[0][0].Text)
}

func TestRegister(t *testing.T) {
	f := newFixture(t, "Acme")
	reg := tg.NewRegistry()
	require.NoError(t, f.bot.Register(reg))

	_, ok := reg.GetCallback(NavUnique)
	assert.True(t, ok)
	key, _, ok := reg.LookupCommand(ShowCompaniesLabel)
	assert.True(t, ok)
	assert.Equal(t, "/companies", key)
	assert.Len(t, reg.ListCommands(true), 2)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "timeout", errorCode(context.DeadlineExceeded))
	assert.Equal(t, "fetch_error", errorCode(&catalog.FetchError{Op: "rows", Err: errors.New("x")}))
	assert.Equal(t, "unknown", errorCode(errors.New("x")))
}
