package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/chartbot/internal/catalog"
)

var (
	acme   = catalog.IDFor("Acme")
	globex = catalog.IDFor("Globex")
	gone   = catalog.IDFor("Umbrella")
)

func testCatalog() *catalog.Catalog {
	return catalog.New([]string{"Acme", "Globex"})
}

func TestTransitionValidPairs(t *testing.T) {
	cat := testCatalog()
	cases := []struct {
		name   string
		from   State
		tok    Token
		to     State
		action Action
	}{
		{"root select source", Root(), SelectSource(acme), AtSource(acme), ActionRenderSourceMenu},
		{"source select category", AtSource(acme), SelectCategory(acme, catalog.Revenue), AtCategory(acme, catalog.Revenue), ActionRequestChart},
		{"source back", AtSource(acme), Back(AtSource(acme)), Root(), ActionRenderRoot},
		{"category back", AtCategory(acme, catalog.Profit), Back(AtCategory(acme, catalog.Profit)), AtSource(acme), ActionRenderSourceMenu},
		{"category reselect", AtCategory(acme, catalog.Profit), SelectCategory(acme, catalog.All), AtCategory(acme, catalog.All), ActionRequestChart},
		{"category same again", AtCategory(acme, catalog.Tax), SelectCategory(acme, catalog.Tax), AtCategory(acme, catalog.Tax), ActionRequestChart},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.from, tc.tok, cat)
			require.NoError(t, err)
			assert.Equal(t, tc.to, out.State)
			assert.Equal(t, tc.action, out.Action)
		})
	}
}

func TestTransitionInvalidPairsKeepState(t *testing.T) {
	cat := testCatalog()
	cases := []struct {
		name string
		from State
		tok  Token
	}{
		{"root category", Root(), SelectCategory(acme, catalog.Revenue)},
		{"root back", Root(), Back(AtSource(acme))},
		{"source reselect source", AtSource(acme), SelectSource(globex)},
		{"source same source", AtSource(acme), SelectSource(acme)},
		{"source category of other source", AtSource(acme), SelectCategory(globex, catalog.Tax)},
		{"source back from chart", AtSource(acme), Back(AtCategory(acme, catalog.Tax))},
		{"source back of other source", AtSource(acme), Back(AtSource(globex))},
		{"category select source", AtCategory(acme, catalog.Tax), SelectSource(acme)},
		{"category back from menu", AtCategory(acme, catalog.Tax), Back(AtSource(acme))},
		{"category back from other chart", AtCategory(acme, catalog.Tax), Back(AtCategory(acme, catalog.Revenue))},
		{"category of other source", AtCategory(acme, catalog.Tax), SelectCategory(globex, catalog.Tax)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.from, tc.tok, cat)
			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.from, out.State)
			assert.Equal(t, ActionRedisplay, out.Action)
		})
	}
}

func TestTransitionStaleSelection(t *testing.T) {
	cat := testCatalog()
	cases := []struct {
		name string
		from State
		tok  Token
	}{
		{"root select removed", Root(), SelectSource(gone)},
		{"source category of removed", AtSource(gone), SelectCategory(gone, catalog.Revenue)},
		{"session on removed source", AtSource(gone), SelectSource(acme)},
		{"chart back on removed", AtCategory(gone, catalog.Tax), Back(AtCategory(gone, catalog.Tax))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Transition(tc.from, tc.tok, cat)
			require.ErrorIs(t, err, ErrStaleSelection)
			assert.Equal(t, Root(), out.State)
			assert.Equal(t, ActionRenderRoot, out.Action)
		})
	}
}

func TestRedisplay(t *testing.T) {
	cat := testCatalog()

	out, err := Redisplay(AtCategory(acme, catalog.Tax), cat)
	require.NoError(t, err)
	assert.Equal(t, ActionRedisplay, out.Action)
	assert.Equal(t, AtCategory(acme, catalog.Tax), out.State)

	out, err = Redisplay(AtSource(gone), cat)
	require.ErrorIs(t, err, ErrStaleSelection)
	assert.Equal(t, Root(), out.State)
}

func TestStateStringAndParent(t *testing.T) {
	assert.Equal(t, "AtRoot", Root().String())
	assert.Equal(t, Root(), AtSource(acme).Parent())
	assert.Equal(t, AtSource(acme), AtCategory(acme, catalog.Tax).Parent())
	assert.Contains(t, AtCategory(acme, catalog.Tax).String(), "Tax")
}
