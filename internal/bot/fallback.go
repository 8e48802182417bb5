package bot

import (
	tghelpers "github.com/m3rciful/chartbot/core/telegram/helpers"
	"github.com/m3rciful/chartbot/core/telegram/keyboard"
	"github.com/m3rciful/chartbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

var _ ui.FallbackProvider = (*Bot)(nil)

// UnknownText points the user at the reply keyboard.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, unknownText, keyboard.ReplyButtons([]string{ShowCompaniesLabel}))
	}
}

// UnknownCallback answers buttons with an unknown key.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: inactiveToast})
	}
}

// RateLimited answers callbacks so the client stops its spinner; messages are dropped silently.
func (b *Bot) RateLimited() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: limitedToast})
		}
		return nil
	}
}

// AdminRejected replies to admin-only commands sent by others.
func (b *Bot) AdminRejected() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, adminOnlyText)
	}
}
