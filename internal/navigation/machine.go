package navigation

import (
	"errors"

	"github.com/m3rciful/chartbot/internal/catalog"
)

var (
	// ErrStaleSelection reports a selection or session referencing a source
	// that is no longer in the catalog. The session returns to the root menu.
	ErrStaleSelection = errors.New("navigation: stale selection")
	// ErrInvalidTransition reports a well-formed token that does not apply to
	// the session's current position, e.g. a button of an older menu.
	ErrInvalidTransition = errors.New("navigation: selection does not apply to current menu")
)

// Action tells the transport what to do after a dispatch.
type Action uint8

const (
	// ActionRenderRoot shows the company list.
	ActionRenderRoot Action = iota + 1
	// ActionRenderSourceMenu shows the category list of Outcome.State.Source.
	ActionRenderSourceMenu
	// ActionRequestChart asks the chart collaborator for Outcome.State.
	ActionRequestChart
	// ActionRedisplay re-renders the menu of Outcome.State without changes.
	ActionRedisplay
)

func (a Action) String() string {
	switch a {
	case ActionRenderRoot:
		return "render_root"
	case ActionRenderSourceMenu:
		return "render_source_menu"
	case ActionRequestChart:
		return "request_chart"
	case ActionRedisplay:
		return "redisplay"
	default:
		return "unknown"
	}
}

// Outcome is the result of applying a selection. State is the session state
// after the selection, which is also the state the transport renders.
type Outcome struct {
	Action Action
	State  State
}

func rootOutcome() Outcome {
	return Outcome{Action: ActionRenderRoot, State: Root()}
}

func redisplay(s State) Outcome {
	return Outcome{Action: ActionRedisplay, State: s}
}

func renderOutcome(s State) Outcome {
	switch s.Level {
	case LevelSource:
		return Outcome{Action: ActionRenderSourceMenu, State: s}
	case LevelCategory:
		return Outcome{Action: ActionRequestChart, State: s}
	default:
		return rootOutcome()
	}
}

// Transition applies tok to current against the catalog snapshot cat. It is
// pure: the returned Outcome.State is the next state, and on error the
// outcome still describes what to render.
func Transition(current State, tok Token, cat *catalog.Catalog) (Outcome, error) {
	if current.Level != LevelRoot && !cat.Contains(current.Source) {
		return rootOutcome(), ErrStaleSelection
	}
	if !cat.Contains(tok.Source) {
		return rootOutcome(), ErrStaleSelection
	}

	switch tok.Kind {
	case KindSelectSource:
		if current.Level == LevelRoot {
			return renderOutcome(AtSource(tok.Source)), nil
		}
	case KindSelectCategory:
		if current.Level != LevelRoot && current.Source == tok.Source && tok.Category.Valid() {
			return renderOutcome(AtCategory(tok.Source, tok.Category)), nil
		}
	case KindBack:
		if current == tok.Origin() {
			next := current.Parent()
			if next.Level == LevelRoot {
				return rootOutcome(), nil
			}
			return Outcome{Action: ActionRenderSourceMenu, State: next}, nil
		}
	}
	return redisplay(current), ErrInvalidTransition
}

// Redisplay returns the outcome that shows the current menu again, falling
// back to the root when the current state references a removed source.
func Redisplay(current State, cat *catalog.Catalog) (Outcome, error) {
	if current.Level != LevelRoot && !cat.Contains(current.Source) {
		return rootOutcome(), ErrStaleSelection
	}
	return redisplay(current), nil
}
