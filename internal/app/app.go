package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/chartbot/core/bootstrap"
	corecmd "github.com/m3rciful/chartbot/core/cmd"
	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/core/netutil"
	"github.com/m3rciful/chartbot/core/sentryutil"
	tg "github.com/m3rciful/chartbot/core/telegram"
	"github.com/m3rciful/chartbot/core/telegram/middleware"
	"github.com/m3rciful/chartbot/core/telegram/router"
	"github.com/m3rciful/chartbot/core/telegram/sender"
	"github.com/m3rciful/chartbot/internal/bot"
	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/chart"
	"github.com/m3rciful/chartbot/internal/navigation"
	"github.com/m3rciful/chartbot/internal/sheets"
	"github.com/m3rciful/chartbot/internal/storage"
)

// Spreadsheet is the data side of the bot: sheet titles and sheet rows.
type Spreadsheet interface {
	catalog.NameSource
	chart.RowSource
}

// App owns the long-lived components of a running bot.
type App struct {
	cfg    *Config
	infra  *bootstrap.Result
	holder *catalog.Holder
	syncer *catalog.Syncer
	bot    *bot.Bot
}

var (
	_ corecmd.TelegramApp   = (*App)(nil)
	_ corecmd.BackgroundApp = (*App)(nil)
)

// Bootstrap brings up logging, error reporting and the optional database,
// then wires the spreadsheet client, catalog sync, chart pipeline and bot.
func Bootstrap(ctx context.Context, cfg *Config) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
		Sentry:   cfg.Sentry,
	})
	if err != nil {
		return nil, err
	}

	sheet, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		ClientEmail:   cfg.Sheets.ClientEmail,
		PrivateKey:    cfg.Sheets.PrivateKey,
		Range:         cfg.Sheets.RowsRange,
		HTTPClient:    netutil.NewClient(netutil.ClientOptions{}),
	})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	a, err := newApp(ctx, cfg, infra, sheet)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}

func newApp(ctx context.Context, cfg *Config, infra *bootstrap.Result, sheet Spreadsheet) (*App, error) {
	if infra == nil {
		infra = &bootstrap.Result{}
	}

	var store catalog.SnapshotStore
	if infra.DB != nil {
		store = storage.NewSnapshotStore(infra.DB, cfg.Catalog.SnapshotRetain)
	}

	holder := catalog.NewHolder(catalog.Empty())
	syncer := catalog.NewSyncer(sheet, holder, catalog.SyncOptions{
		Interval: cfg.SyncInterval(),
		Store:    store,
		OnError: func(ctx context.Context, err error) {
			sentryutil.CaptureError(ctx, err, map[string]string{"op": "catalog.sync"})
		},
	})
	syncer.Subscribe(reportEmptied)
	if err := syncer.Warm(ctx); err != nil {
		logger.Warn(ctx, "app", "catalog.warm",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}

	renderer := chart.NewQuickChart(chart.QuickChartOptions{
		Endpoint: cfg.Chart.Endpoint,
		Width:    cfg.Chart.Width,
		Height:   cfg.Chart.Height,
		Client:   netutil.NewClient(netutil.ClientOptions{Timeout: cfg.ChartTimeout()}),
	})

	b, err := bot.New(bot.Options{
		Navigator:    navigation.NewDispatcher(holder, nil),
		Charts:       chart.NewService(sheet, renderer),
		Sync:         syncer,
		ChartTimeout: cfg.ChartTimeout(),
		Report:       sentryutil.CaptureError,
	})
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &App{cfg: cfg, infra: infra, holder: holder, syncer: syncer, bot: b}, nil
}

// reportEmptied flags a spreadsheet that lost all of its sheets, which leaves
// every user on an empty root menu.
func reportEmptied(ctx context.Context, prev, next *catalog.Catalog) {
	if prev.Len() > 0 && next.Len() == 0 {
		sentryutil.CaptureMessage(ctx, "catalog became empty", map[string]string{"op": "catalog.sync"})
	}
}

// TelegramRunOptions builds the registry, routes and middleware of the bot.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, err
	}

	core := a.cfg.CoreConfig()
	admin := router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: a.bot.AdminRejected(),
	}
	routes := router.CommandRoutes(reg, admin)
	routes = append(routes,
		router.TextRoute(reg, router.TextOptions{Admin: admin, UnknownText: a.bot.UnknownText()}),
		router.CallbackRoute(reg, router.CallbackOptions{}),
	)

	middleware.SetPanicHook(sentryutil.Recovered)

	return tg.RunOptions{
		Config:   core,
		Registry: reg,
		DispatcherOptions: sender.Options{
			Workers:    a.cfg.Sender.Workers,
			QueueSize:  a.cfg.Sender.QueueSize,
			MaxRetries: a.cfg.Sender.MaxRetries,
		},
		Middlewares: tg.DefaultMiddlewares(core, a.bot.RateLimited()),
		Routes:      routes,
		OnError: func(ctx context.Context, err error) {
			sentryutil.CaptureError(ctx, err, map[string]string{"op": "handler"})
		},
	}, nil
}

// BackgroundTasks returns the catalog poller.
func (a *App) BackgroundTasks() []corecmd.Task {
	return []corecmd.Task{{
		Name: "catalog.sync",
		Run: func(ctx context.Context) error {
			a.syncer.Run(ctx)
			return ctx.Err()
		},
	}}
}

// Catalog returns the live catalog snapshot.
func (a *App) Catalog() *catalog.Catalog {
	return a.holder.Load()
}

// Close releases the database and flushes pending error reports.
func (a *App) Close() error {
	err := a.infra.Close()
	sentryutil.Flush()
	return err
}
