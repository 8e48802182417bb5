// Package navigation implements the menu state machine: per-chat positions in
// the company/category tree, the selection tokens carried by menu buttons and
// the dispatcher that applies them.
package navigation

import (
	"fmt"

	"github.com/m3rciful/chartbot/internal/catalog"
)

// Level names a position in the menu tree.
type Level uint8

const (
	// LevelRoot is the company list.
	LevelRoot Level = iota
	// LevelSource is the category list of one company.
	LevelSource
	// LevelCategory is a rendered chart of one company and category.
	LevelCategory
)

func (l Level) String() string {
	switch l {
	case LevelRoot:
		return "root"
	case LevelSource:
		return "source"
	case LevelCategory:
		return "category"
	default:
		return "unknown"
	}
}

// State is a chat's position. Source is set for LevelSource and LevelCategory,
// Category only for LevelCategory.
type State struct {
	Level    Level
	Source   catalog.SourceID
	Category catalog.Category
}

// Root is the initial state of every session.
func Root() State {
	return State{Level: LevelRoot}
}

// AtSource is the category menu of a company.
func AtSource(id catalog.SourceID) State {
	return State{Level: LevelSource, Source: id}
}

// AtCategory is a chart view.
func AtCategory(id catalog.SourceID, c catalog.Category) State {
	return State{Level: LevelCategory, Source: id, Category: c}
}

func (s State) String() string {
	switch s.Level {
	case LevelSource:
		return fmt.Sprintf("AtSource(%s)", s.Source)
	case LevelCategory:
		return fmt.Sprintf("AtCategory(%s,%s)", s.Source, s.Category)
	default:
		return "AtRoot"
	}
}

// Parent returns the state a back selection leads to.
func (s State) Parent() State {
	switch s.Level {
	case LevelCategory:
		return AtSource(s.Source)
	default:
		return Root()
	}
}
