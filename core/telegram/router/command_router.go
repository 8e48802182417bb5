package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/chartbot/core/logger"
	tg "github.com/m3rciful/chartbot/core/telegram"
	"github.com/m3rciful/chartbot/core/telegram/commands"
	"github.com/m3rciful/chartbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures how commands are wrapped and exposed.
type CommandRouteOptions struct {
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

func (o CommandRouteOptions) admin() middleware.AdminOptions {
	return middleware.AdminOptions{AdminID: o.AdminID, OnReject: o.OnAdminReject}
}

// CommandRoutes prepares command handlers wrapped with shared middleware.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := commandHandler(cmd, def, opts.admin())
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}

	logger.Info(context.Background(), "tg.wire", "complete",
		slog.Int("commands", len(reg.Commands())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return routes
}

// commandHandler applies the admin check and the handler summary log line.
// Text aliases reuse it so both entry points behave the same.
func commandHandler(key string, def commands.Command, admin middleware.AdminOptions) tele.HandlerFunc {
	h := def.Handler
	if def.AdminOnly {
		h = middleware.AdminOnlyMiddleware(admin)(h)
	}
	name := normalizeHandlerName(key)
	return func(c tele.Context) error {
		return handleWithSummary(c, name, time.Now(), "", "", func() error {
			return h(c)
		})
	}
}
