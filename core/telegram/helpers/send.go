package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/chartbot/core/logger"
	"github.com/m3rciful/chartbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// EditOrSend replaces the message behind a callback with text and markup, or
// sends a new message when there is nothing to edit. Photo messages have no
// text to edit, so they are deleted and replaced.
func EditOrSend(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	if msg := c.Message(); msg != nil && msg.Photo != nil {
		return sendAsync(c, "replace.photo", "deleteMessage", func() error {
			if err := c.Delete(); err != nil && !errors.Is(err, tele.ErrNotFoundToDelete) {
				return err
			}
			return c.Send(text, opts)
		})
	}
	return sendAsync(c, "edit.text", "editMessageText", func() error {
		err := c.EditOrSend(text, opts)
		if errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		return err
	})
}

// Delete removes the message behind a callback. A message that is already
// gone counts as deleted.
func Delete(c tele.Context) error {
	return sendAsync(c, "delete.message", "deleteMessage", func() error {
		err := c.Delete()
		if errors.Is(err, tele.ErrNotFoundToDelete) {
			return nil
		}
		return err
	})
}

// SendPhoto sends a PNG held in memory. The reader is rebuilt for every
// attempt so retries upload the full image.
func SendPhoto(c tele.Context, png []byte, caption string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	return sendAsync(c, "send.photo", "sendPhoto", func() error {
		photo := &tele.Photo{
			File:    tele.FromReader(bytes.NewReader(png)),
			Caption: caption,
		}
		return c.Send(photo, opts)
	})
}

func sendOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}
