// Package bot adapts the navigation state machine to Telegram: it turns
// updates into dispatcher calls and outcomes into messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/chartbot/core/logger"
	tg "github.com/m3rciful/chartbot/core/telegram"
	"github.com/m3rciful/chartbot/core/telegram/callbacks"
	"github.com/m3rciful/chartbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/chartbot/core/telegram/helpers"
	"github.com/m3rciful/chartbot/core/telegram/keyboard"
	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/menu"
	"github.com/m3rciful/chartbot/internal/navigation"

	tele "gopkg.in/telebot.v4"
)

const (
	component = "bot"

	// NavUnique is the callback key of every navigation button.
	NavUnique = "nav"

	// ShowCompaniesLabel is the reply keyboard button that opens the catalog.
	ShowCompaniesLabel = "Show companies"

	defaultChartTimeout = 30 * time.Second
)

// ChartSource renders category c of the named source as a PNG.
type ChartSource interface {
	Chart(ctx context.Context, sourceName string, c catalog.Category) ([]byte, error)
}

// Refresher forces a catalog sync.
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
	LastSync() time.Time
}

// Options wires a Bot.
type Options struct {
	Navigator    *navigation.Dispatcher
	Charts       ChartSource
	Sync         Refresher
	ChartTimeout time.Duration
	// Report receives collaborator failures, e.g. for error tracking.
	Report func(ctx context.Context, err error, tags map[string]string)
}

// Bot holds the Telegram handlers.
type Bot struct {
	nav          *navigation.Dispatcher
	charts       ChartSource
	sync         Refresher
	chartTimeout time.Duration
	report       func(ctx context.Context, err error, tags map[string]string)
}

// New returns a Bot. Navigator and Charts are required.
func New(opts Options) (*Bot, error) {
	if opts.Navigator == nil || opts.Charts == nil {
		return nil, errors.New("bot: navigator and chart source are required")
	}
	timeout := opts.ChartTimeout
	if timeout <= 0 {
		timeout = defaultChartTimeout
	}
	report := opts.Report
	if report == nil {
		report = func(context.Context, error, map[string]string) {}
	}
	return &Bot{
		nav:          opts.Navigator,
		charts:       opts.Charts,
		sync:         opts.Sync,
		chartTimeout: timeout,
		report:       report,
	}, nil
}

// Register adds the bot's commands and the navigation callback to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.handleStart,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/companies", commands.Command{
		Handler:     b.handleCompanies,
		Description: "Show companies",
		Aliases:     []string{ShowCompaniesLabel},
	})
	if b.sync != nil {
		reg.RegisterCommand("/sync", commands.Command{
			Handler:     b.handleSync,
			Description: "Refresh the company list",
			AdminOnly:   true,
		})
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	if err := reg.RegisterCallback(NavUnique, b.handleNav); err != nil {
		return fmt.Errorf("bot: register navigation: %w", err)
	}
	return nil
}

func (b *Bot) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.nav.Start(ctx, chatID(c))
	return tghelpers.SendText(c, greetingText, keyboard.ReplyButtons([]string{ShowCompaniesLabel}))
}

func (b *Bot) handleCompanies(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	out := b.nav.Start(ctx, chatID(c))
	m := menu.Render(out.State, b.nav.Catalog())
	return tghelpers.SendText(c, m.Title, b.markup(ctx, m))
}

func (b *Bot) handleSync(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	changed, err := b.sync.Refresh(ctx)
	if err != nil {
		b.report(ctx, err, map[string]string{"op": "sync"})
		return tghelpers.SendText(c, fmt.Sprintf("Sync failed: %s", logger.SanitizeLimit(err.Error(), 200)))
	}
	state := "unchanged"
	if changed {
		state = "updated"
	}
	return tghelpers.SendText(c, fmt.Sprintf("Catalog %s: %d companies.\nLast sync: %s. Chats in a menu: %d.",
		state, b.nav.Catalog().Len(), b.sync.LastSync().UTC().Format("15:04:05 MST"), b.nav.Sessions()))
}

func (b *Bot) handleNav(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	out, err := b.nav.Dispatch(ctx, chatID(c), callbacks.CallbackPayload(c))
	if rerr := c.Respond(&tele.CallbackResponse{Text: toastFor(err)}); rerr != nil {
		logger.Debug(ctx, component, "callback.answer",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(rerr.Error(), 256)),
		)
	}
	return b.render(ctx, c, out)
}

// render shows the outcome of a dispatch in place of the tapped message.
func (b *Bot) render(ctx context.Context, c tele.Context, out navigation.Outcome) error {
	cat := b.nav.Catalog()
	if out.Action == navigation.ActionRequestChart {
		if src, ok := cat.Lookup(out.State.Source); ok {
			return b.sendChart(ctx, c, src, out.State)
		}
	}
	m := menu.Render(out.State, cat)
	return tghelpers.EditOrSend(c, m.Title, b.markup(ctx, m))
}

// sendChart replaces the menu with a wait notice, renders the chart and sends
// it with a Back button. On failure the notice becomes an error message that
// keeps the Back button.
func (b *Bot) sendChart(ctx context.Context, c tele.Context, src catalog.Source, s navigation.State) error {
	start := time.Now()
	if err := tghelpers.EditOrSend(c, menu.WaitText(src.Name, s.Category)); err != nil {
		return err
	}

	m := menu.Render(s, b.nav.Catalog())
	back := b.markup(ctx, m)

	renderCtx, cancel := context.WithTimeout(ctx, b.chartTimeout)
	defer cancel()
	png, err := b.charts.Chart(renderCtx, src.Name, s.Category)
	if err != nil {
		logger.Warn(ctx, component, "chart.reply",
			slog.String("status", "fail"),
			slog.String("source", logger.SanitizeLimit(src.Name, 64)),
			slog.String("category", s.Category.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		b.report(ctx, err, map[string]string{
			"op":       "chart",
			"category": s.Category.String(),
			"err_code": errorCode(err),
		})
		return tghelpers.EditOrSend(c, failureText, back)
	}

	logger.Info(ctx, component, "chart.reply",
		slog.String("status", "ok"),
		slog.String("source", logger.SanitizeLimit(src.Name, 64)),
		slog.String("category", s.Category.String()),
		slog.Int("bytes", len(png)),
		slog.Duration("duration", logger.Took(start)),
	)
	if err := tghelpers.SendPhoto(c, png, m.Title, back); err != nil {
		return err
	}
	return tghelpers.Delete(c)
}

// markup turns a menu into an inline keyboard, one button per row with Back
// last. Buttons whose callback data would not fit are left out.
func (b *Bot) markup(ctx context.Context, m menu.Menu) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(m.Options)+1)
	add := func(o menu.Option) {
		btn := keyboard.InlineBtn{Text: o.Label, Unique: NavUnique, Data: o.Token}
		if err := keyboard.Validate(btn); err != nil {
			logger.Warn(ctx, component, "menu.button",
				slog.String("status", "skip"),
				slog.String("state", m.State.String()),
				slog.String("err", err.Error()),
			)
			return
		}
		rows = append(rows, []keyboard.InlineBtn{btn})
	}
	for _, o := range m.Options {
		add(o)
	}
	if m.Back != nil {
		add(*m.Back)
	}
	if len(rows) == 0 {
		return nil
	}
	return keyboard.InlineButtonsRows(rows...)
}

func chatID(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

func toastFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, navigation.ErrStaleSelection):
		return staleToast
	default:
		return inactiveToast
	}
}

func errorCode(err error) string {
	var coder interface{ Code() string }
	if errors.As(err, &coder) {
		return coder.Code()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "unknown"
}
