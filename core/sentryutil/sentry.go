// Package sentryutil wraps sentry-go for error reporting. Every function is a
// no-op until Init runs with a non-empty DSN.
package sentryutil

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/m3rciful/chartbot/core/buildinfo"
	"github.com/m3rciful/chartbot/core/logger"
)

// Config controls error reporting.
type Config struct {
	DSN         string  `yaml:"dsn" envconfig:"SENTRY_DSN"`
	Environment string  `yaml:"environment" envconfig:"SENTRY_ENVIRONMENT"`
	Release     string  `yaml:"release" envconfig:"SENTRY_RELEASE"`
	SampleRate  float64 `yaml:"sample_rate" envconfig:"SENTRY_SAMPLE_RATE"`
}

var enabled atomic.Bool

// Init configures the global sentry client. An empty DSN disables reporting.
func Init(ctx context.Context, cfg Config) error {
	if cfg.DSN == "" {
		logger.Info(ctx, "app", "sentry.init", slog.String("status", "skip"))
		return nil
	}
	release := cfg.Release
	if release == "" {
		release = buildinfo.Version
	}
	rate := cfg.SampleRate
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  rate,
		BeforeSend:  scrubUser,
	})
	if err != nil {
		logger.Warn(ctx, "app", "sentry.init", slog.String("status", "fail"), slog.String("err", err.Error()))
		return err
	}
	enabled.Store(true)
	logger.Info(ctx, "app", "sentry.init",
		slog.String("status", "ok"),
		slog.String("mode", cfg.Environment),
	)
	return nil
}

// Enabled reports whether events are being sent.
func Enabled() bool { return enabled.Load() }

// Flush waits up to two seconds for queued events.
func Flush() {
	if enabled.Load() {
		sentry.Flush(2 * time.Second)
	}
}

// CaptureError reports err with the given tags plus the update metadata
// stored in ctx.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		applyScope(ctx, scope, tags)
		sentry.CaptureException(err)
	})
}

// CaptureMessage reports msg at a warning level.
func CaptureMessage(ctx context.Context, msg string, tags map[string]string) {
	if !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		applyScope(ctx, scope, tags)
		sentry.CaptureMessage(msg)
	})
}

// Recovered reports a panic value caught by a recover middleware.
func Recovered(ctx context.Context, v any) {
	if !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelFatal)
		applyScope(ctx, scope, nil)
		sentry.CurrentHub().Recover(v)
	})
}

func applyScope(ctx context.Context, scope *sentry.Scope, tags map[string]string) {
	for k, v := range contextTags(ctx) {
		scope.SetTag(k, v)
	}
	for k, v := range tags {
		scope.SetTag(k, v)
	}
}

func contextTags(ctx context.Context) map[string]string {
	tags := map[string]string{}
	if ctx == nil {
		return tags
	}
	if rid := logger.RIDFrom(ctx); rid != "" {
		tags["rid"] = logger.CompactRID(rid)
	}
	if h := logger.HandlerFrom(ctx); h != "" {
		tags["handler"] = h
	}
	return tags
}

// scrubUser drops user identity before an event leaves the process.
func scrubUser(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	return event
}
