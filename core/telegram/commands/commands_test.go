package commands

import "testing"

func TestNormalize(t *testing.T) {
	for in, want := range map[string]string{
		"  Show companies ":     "Show companies",
		"/companies@chart_bot":  "/companies",
		"/start payload":        "/start",
		"/sync@chart_bot extra": "/sync",
		"":                      "",
	} {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatches(t *testing.T) {
	cmd := Command{Aliases: []string{"Show companies"}}
	for _, text := range []string{"/companies", "Show companies", "show COMPANIES", "/Show companies"} {
		if !cmd.Matches("/companies", text) {
			t.Fatalf("expected %q to match", text)
		}
	}
	for _, text := range []string{"", "/sync", "Show"} {
		if cmd.Matches("/companies", text) {
			t.Fatalf("unexpected match for %q", text)
		}
	}
}
