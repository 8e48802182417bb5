package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/chartbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdate holds recently logged update IDs.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware builds the per-update context and writes one sampled
// receipt line per update. Nested chains reuse the stored context, and
// update ids seen recently are not logged twice.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if _, ok := tghelpers.ContextFrom(c); ok {
			return next(c)
		}
		ctx := tghelpers.BuildContext(c)
		updateID, chatID, userID := tghelpers.UpdateIDs(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(updateID) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received",
				receiptAttrs(c, chatID, userID)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context, chatID, userID int64) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chatID != 0 {
		attrs = append(attrs,
			slog.Int64("chat_id", chatID),
			slog.String("chat_type", string(c.Chat().Type)),
		)
	}
	if user := c.Sender(); userID != 0 && user != nil {
		attrs = append(attrs, slog.Int64("user_id", userID))
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}

	upd := c.Update()
	switch {
	case upd.Callback != nil:
		key, payload := callbacks.ParseCallbackData(upd.Callback)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
		if payload != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
		}
	case upd.Message != nil:
		if t := c.Text(); t != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
		}
	}
	return attrs
}
