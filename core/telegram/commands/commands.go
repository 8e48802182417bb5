// Package commands describes slash commands and the reply keyboard texts
// that trigger them.
package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command is a registered bot command. Aliases are plain texts, usually reply
// keyboard labels, that run the same handler.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Normalize reduces user input to the form commands are registered under:
// surrounding space and a "@botname" suffix of a slash command are removed.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if cmd, _, ok := strings.Cut(text, " "); ok {
		text = cmd
	}
	if cmd, _, ok := strings.Cut(text, "@"); ok {
		text = cmd
	}
	return text
}

// Matches reports whether normalized text names c under key, either as the
// command itself or as one of its aliases. Aliases compare case-insensitively.
func (c Command) Matches(key, text string) bool {
	if text == "" {
		return false
	}
	if text == key {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.EqualFold(alias, text) || "/"+alias == text {
			return true
		}
	}
	return false
}
