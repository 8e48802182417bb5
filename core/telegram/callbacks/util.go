// Package callbacks decodes Telebot's inline button data.
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// MaxDataLen is Telegram's limit for callback_data in bytes.
const MaxDataLen = 64

// Data encodes unique and payload the way Telebot does for markup.Data buttons.
func Data(unique, payload string) string {
	if payload == "" {
		return "\f" + unique
	}
	return "\f" + unique + "|" + payload
}

// Fits reports whether a button with unique and payload stays within MaxDataLen.
func Fits(unique, payload string) bool {
	return len(Data(unique, payload)) <= MaxDataLen
}

// ParseCallbackData splits Telebot's "\f<unique>|<payload>" encoding.
// Telebot already does this for callbacks it recognizes; this handles the
// raw form seen by generic OnCallback handlers.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	unique, payload, _ := strings.Cut(raw, "|")
	return strings.TrimSpace(unique), payload
}

// CallbackKey returns the unique part of the callback in c.
func CallbackKey(c tele.Context) string {
	key, _ := ParseCallbackData(c.Callback())
	return key
}

// CallbackPayload returns the payload part of the callback in c.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
