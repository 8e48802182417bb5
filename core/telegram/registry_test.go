package telegram

import (
	"strings"
	"testing"

	"github.com/m3rciful/chartbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/companies", commands.Command{Handler: noop, Description: "List companies", Aliases: []string{"Show companies"}})
	reg.RegisterCommand("/sync", commands.Command{Handler: noop, Description: "Refresh", AdminOnly: true})
	reg.RegisterCommand("start", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/companies", commands.Command{Handler: noop, Description: "duplicate"})

	if len(reg.Commands()) != 2 {
		t.Fatalf("commands = %d, want 2", len(reg.Commands()))
	}
	visible := reg.ListCommands(true)
	if len(visible) != 1 || visible[0].Text != "/companies" {
		t.Fatalf("visible = %+v", visible)
	}
	key, cmd, ok := reg.LookupCommand("Show companies")
	if !ok || key != "/companies" || cmd.Description != "List companies" {
		t.Fatalf("alias lookup = %q, %+v, %v", key, cmd, ok)
	}
	if _, _, ok := reg.LookupCommand("hello"); ok {
		t.Fatal("unexpected match for unknown text")
	}
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	if err := reg.RegisterCallback("nav", noop); err != nil {
		t.Fatalf("RegisterCallback: %v", err)
	}
	if err := reg.RegisterCallback("nav", noop); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.RegisterCallback("", noop); err == nil {
		t.Fatal("expected error for empty key")
	}
	if _, ok := reg.GetCallback("nav"); !ok {
		t.Fatal("nav not registered")
	}
	if got := reg.ListCallbacks(); len(got) != 1 || got[0] != "nav" {
		t.Fatalf("ListCallbacks = %v", got)
	}
}

func TestBuildPoller(t *testing.T) {
	p, ok := BuildPoller(PollerOptions{}).(*tele.LongPoller)
	if !ok || p.Timeout.Seconds() != 10 || len(p.AllowedUpdates) != 2 {
		t.Fatalf("default poller = %#v", p)
	}
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook", SecretToken: "s3cret"},
	}).(*tele.Webhook)
	if !ok || wh.Listen != "0.0.0.0:8443" || wh.Endpoint.PublicURL != "https://bot.example.com/hook" || wh.SecretToken != "s3cret" {
		t.Fatalf("webhook poller = %#v", wh)
	}
}

func TestRegistryLookupNormalizesInput(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/companies", commands.Command{Handler: noop, Description: "List companies", Aliases: []string{"Show companies"}})

	for _, text := range []string{"/companies@chart_bot", "companies", "  show companies  "} {
		if key, _, ok := reg.LookupCommand(text); !ok || key != "/companies" {
			t.Fatalf("LookupCommand(%q) = %q, %v", text, key, ok)
		}
	}
	if _, _, ok := reg.LookupCommand("   "); ok {
		t.Fatal("blank text must not match")
	}
}

func TestRegistryRejectsUnusableCallbackKeys(t *testing.T) {
	reg := NewRegistry()
	for _, key := range []string{"a|b", "\fnav", strings.Repeat("k", 70)} {
		if err := reg.RegisterCallback(key, noop); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
