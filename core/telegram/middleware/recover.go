package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/m3rciful/chartbot/core/logger"
	tghelpers "github.com/m3rciful/chartbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// PanicHook receives every recovered panic value.
type PanicHook func(ctx context.Context, v any)

var panicHook atomic.Pointer[PanicHook]

// SetPanicHook installs fn as the receiver of recovered panics. nil removes it.
func SetPanicHook(fn PanicHook) {
	if fn == nil {
		panicHook.Store(nil)
		return
	}
	panicHook.Store(&fn)
}

// RecoverMiddleware catches panics in handlers and turns them into errors so
// the bot keeps serving other updates.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			ctx := tghelpers.BuildContext(c)
			logger.Error(ctx, "tg", "tg.panic",
				slog.String("status", "fail"),
				slog.String("err", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			if hook := panicHook.Load(); hook != nil {
				(*hook)(ctx, r)
			}
			err = fmt.Errorf("telegram: handler panic: %v", r)
		}()
		return next(c)
	}
}
