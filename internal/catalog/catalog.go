// Package catalog holds the set of selectable data sources and keeps it in sync
// with the spreadsheet that defines them.
package catalog

import (
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
)

// SourceID is the stable identifier of a Source. The same display name always
// yields the same identifier, across refreshes and process restarts.
type SourceID string

// sourceNamespace scopes name-based source identifiers.
var sourceNamespace = uuid.MustParse("6f2b1c3e-8a41-4f0d-9b57-2c1e5d7a9e34")

// IDFor derives the identifier of the source with the given display name.
func IDFor(name string) SourceID {
	return SourceID(uuid.NewSHA1(sourceNamespace, []byte(name)).String())
}

// Source is one selectable data origin, e.g. a company sheet.
type Source struct {
	ID   SourceID
	Name string
}

// Catalog is an immutable, ordered snapshot of the current sources.
type Catalog struct {
	sources []Source
	index   map[SourceID]int
	names   []string
}

// New builds a catalog from names in the given order. Blank names are skipped
// and duplicate names keep their first position.
func New(names []string) *Catalog {
	c := &Catalog{
		sources: make([]Source, 0, len(names)),
		index:   make(map[SourceID]int, len(names)),
		names:   append([]string(nil), names...),
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		id := IDFor(name)
		if _, dup := c.index[id]; dup {
			continue
		}
		c.index[id] = len(c.sources)
		c.sources = append(c.sources, Source{ID: id, Name: name})
	}
	return c
}

// Empty returns a catalog without sources.
func Empty() *Catalog {
	return New(nil)
}

// Len returns the number of sources.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.sources)
}

// Sources returns a copy of the sources in display order.
func (c *Catalog) Sources() []Source {
	if c == nil {
		return nil
	}
	return append([]Source(nil), c.sources...)
}

// Names returns the raw names the catalog was built from.
func (c *Catalog) Names() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.names...)
}

// Lookup finds a source by identifier.
func (c *Catalog) Lookup(id SourceID) (Source, bool) {
	if c == nil {
		return Source{}, false
	}
	i, ok := c.index[id]
	if !ok {
		return Source{}, false
	}
	return c.sources[i], true
}

// Contains reports whether id is part of the catalog.
func (c *Catalog) Contains(id SourceID) bool {
	_, ok := c.Lookup(id)
	return ok
}

// SameNames compares the fetched names element-wise, order included.
func (c *Catalog) SameNames(names []string) bool {
	current := c.Names()
	if len(current) != len(names) {
		return false
	}
	for i := range current {
		if current[i] != names[i] {
			return false
		}
	}
	return true
}

// Holder publishes the current catalog snapshot. Readers always observe a
// complete snapshot; the writer swaps it as a whole.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a holder seeded with initial, or an empty catalog when nil.
func NewHolder(initial *Catalog) *Holder {
	h := &Holder{}
	if initial == nil {
		initial = Empty()
	}
	h.current.Store(initial)
	return h
}

// Load returns the current snapshot. It never returns nil.
func (h *Holder) Load() *Catalog {
	if c := h.current.Load(); c != nil {
		return c
	}
	return Empty()
}

// Swap publishes next and returns the previous snapshot.
func (h *Holder) Swap(next *Catalog) *Catalog {
	if next == nil {
		next = Empty()
	}
	prev := h.current.Swap(next)
	if prev == nil {
		prev = Empty()
	}
	return prev
}
