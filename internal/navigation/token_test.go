package navigation

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/chartbot/internal/catalog"
)

func TestTokenRoundTrip(t *testing.T) {
	sources := []catalog.SourceID{
		catalog.IDFor("Acme"),
		"Acme",
		"dataType_1_2",
		"back_to_companies_Acme|x",
		"a|b\fc_d:e,f;g\n\x00h",
		"ТОО \"Лилума\"",
		catalog.SourceID(strings.Repeat("z", maxSourceBytes)),
	}
	for _, src := range sources {
		tokens := []Token{SelectSource(src), Back(AtSource(src))}
		for _, c := range catalog.Categories() {
			tokens = append(tokens, SelectCategory(src, c), Back(AtCategory(src, c)))
		}
		for _, tok := range tokens {
			encoded := Encode(tok)
			got, err := Decode(encoded)
			require.NoError(t, err, "token %+v", tok)
			assert.Equal(t, tok, got)
		}
	}
}

func TestTokenIsCallbackSafe(t *testing.T) {
	tok := Encode(Back(AtCategory(catalog.IDFor("A company with a long name"), catalog.All)))
	assert.LessOrEqual(t, len(tok), 58, "must fit Telegram callback data next to the route key")
	assert.NotContains(t, tok, "|")
	assert.NotContains(t, tok, "=")
}

func TestDecodeRejectsMalformed(t *testing.T) {
	enc := func(b ...byte) string { return base64.RawURLEncoding.EncodeToString(b) }

	cases := map[string]string{
		"empty":               "",
		"not base64":          "***",
		"short":               enc(1, 1, 0),
		"wrong version":       enc(2, 1, 0, 1, 'a'),
		"unknown kind":        enc(1, 9, 0, 1, 'a'),
		"zero kind":           enc(1, 0, 0, 1, 'a'),
		"empty source":        enc(1, 1, 0, 0),
		"truncated source":    enc(1, 1, 0, 3, 'a'),
		"trailing bytes":      enc(1, 1, 0, 1, 'a', 'b'),
		"category on source":  enc(1, 1, 2, 1, 'a'),
		"missing category":    enc(1, 2, 0, 1, 'a'),
		"invalid category":    enc(1, 2, 77, 1, 'a'),
		"invalid back origin": enc(1, 3, 77, 1, 'a'),
		"bad varint":          enc(1, 1, 0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01),
		"oversized source":    Encode(SelectSource(catalog.SourceID(strings.Repeat("z", maxSourceBytes+1)))),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestCatalogIDsFitTokens(t *testing.T) {
	names := []string{"", "Acme", "|\f\x00", strings.Repeat("Ж", 4096)}
	for _, name := range names {
		id := catalog.IDFor(name)
		require.LessOrEqual(t, len(id), maxSourceBytes)
		for _, tok := range []Token{SelectSource(id), SelectCategory(id, catalog.All), Back(AtCategory(id, catalog.Tax))} {
			got, err := Decode(Encode(tok))
			require.NoError(t, err)
			assert.Equal(t, tok, got)
		}
	}
}

func TestBackOrigin(t *testing.T) {
	id := catalog.IDFor("Acme")
	assert.Equal(t, AtSource(id), Back(AtSource(id)).Origin())
	assert.Equal(t, AtCategory(id, catalog.Tax), Back(AtCategory(id, catalog.Tax)).Origin())
}
