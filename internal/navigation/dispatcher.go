package navigation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/core/telegram/state"
	"github.com/m3rciful/chartbot/internal/catalog"
)

const component = "nav"

// Dispatcher is the only writer of session state. It decodes selection
// tokens, applies them against the live catalog and records the result.
type Dispatcher struct {
	catalog  *catalog.Holder
	sessions state.Manager[State]
}

// NewDispatcher returns a dispatcher over the given catalog holder. A nil
// sessions manager gets an in-memory one.
func NewDispatcher(holder *catalog.Holder, sessions state.Manager[State]) *Dispatcher {
	if sessions == nil {
		sessions = state.NewMemoryManager(Root)
	}
	return &Dispatcher{catalog: holder, sessions: sessions}
}

// Catalog returns the current catalog snapshot.
func (d *Dispatcher) Catalog() *catalog.Catalog {
	return d.catalog.Load()
}

// Sessions reports how many chats are away from the root menu.
func (d *Dispatcher) Sessions() int {
	return d.sessions.Len()
}

// Start handles a start event: the session returns to the root menu. A chat
// at the root needs no stored session, so it is dropped.
func (d *Dispatcher) Start(ctx context.Context, chatID int64) Outcome {
	d.sessions.Clear(chatID)
	logger.Debug(ctx, component, "nav.start",
		slog.String("status", "ok"),
		slog.Int64("chat_id", chatID),
		slog.Int("count", d.sessions.Len()),
	)
	return rootOutcome()
}

// Dispatch applies a raw token to the chat's session. Errors are recoverable
// (ErrDecode, ErrStaleSelection, ErrInvalidTransition) and the returned
// outcome is always safe to render.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, raw string) (Outcome, error) {
	snap := d.catalog.Load()

	var (
		out     Outcome
		err     error
		prev    State
		decoded Token
	)
	d.sessions.Update(chatID, func(current State) State {
		prev = current
		tok, decErr := Decode(raw)
		if decErr != nil {
			out, err = Redisplay(current, snap)
			if err == nil {
				err = decErr
			}
			return out.State
		}
		decoded = tok
		out, err = Transition(current, tok, snap)
		return out.State
	})

	attrs := []slog.Attr{
		slog.Int64("chat_id", chatID),
		slog.String("from", prev.String()),
		slog.String("to", out.State.String()),
		slog.String("action", out.Action.String()),
	}
	if decoded.Kind != 0 {
		attrs = append(attrs, slog.String("kind", decoded.Kind.String()))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
			slog.String("err_code", ErrorCode(err)),
		)
		logger.Info(ctx, component, "nav.dispatch", attrs...)
		return out, err
	}
	attrs = append(attrs, slog.String("status", "ok"))
	logger.Debug(ctx, component, "nav.dispatch", attrs...)
	return out, nil
}

// ErrorCode maps navigation errors to stable log codes.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrStaleSelection):
		return "STALE_SELECTION"
	case errors.Is(err, ErrDecode):
		return "DECODE_ERROR"
	case errors.Is(err, ErrInvalidTransition):
		return "INVALID_TRANSITION"
	default:
		return "UNKNOWN_ERROR"
	}
}
