// Package menu renders navigation states into button lists.
package menu

import (
	"fmt"

	"github.com/m3rciful/chartbot/internal/catalog"
	"github.com/m3rciful/chartbot/internal/navigation"
)

const (
	// BackLabel is the label of the back button on every level but the root.
	BackLabel = "« Back"

	rootTitle      = "Choose a company:"
	emptyRootTitle = "No companies are available yet. Please try again later."
)

// Option is one selectable button.
type Option struct {
	Label string
	Token string
}

// Menu is the rendered form of a navigation state.
type Menu struct {
	State   navigation.State
	Title   string
	Options []Option
	Back    *Option
}

// Render builds the menu for s from the catalog snapshot cat. It has no side
// effects and returns equal menus for equal inputs. A state referencing a
// source missing from cat renders the root menu.
func Render(s navigation.State, cat *catalog.Catalog) Menu {
	if s.Level == navigation.LevelRoot {
		return renderRoot(cat)
	}
	src, ok := cat.Lookup(s.Source)
	if !ok {
		return renderRoot(cat)
	}

	switch s.Level {
	case navigation.LevelSource:
		cats := catalog.Categories()
		opts := make([]Option, 0, len(cats))
		for _, c := range cats {
			opts = append(opts, Option{
				Label: c.String(),
				Token: navigation.Encode(navigation.SelectCategory(src.ID, c)),
			})
		}
		return Menu{
			State:   s,
			Title:   fmt.Sprintf("You selected %q. Choose a data type:", src.Name),
			Options: opts,
			Back:    backOption(s),
		}
	default:
		return Menu{
			State: s,
			Title: ChartCaption(src.Name, s.Category),
			Back:  backOption(s),
		}
	}
}

// ChartCaption is the text shown with a chart of name and c.
func ChartCaption(name string, c catalog.Category) string {
	return fmt.Sprintf("%s: %s", name, c)
}

// WaitText is shown while a chart is being generated.
func WaitText(name string, c catalog.Category) string {
	return fmt.Sprintf("You selected %q and data type %q. Please wait...", name, c.String())
}

func renderRoot(cat *catalog.Catalog) Menu {
	sources := cat.Sources()
	if len(sources) == 0 {
		return Menu{State: navigation.Root(), Title: emptyRootTitle}
	}
	opts := make([]Option, 0, len(sources))
	for _, src := range sources {
		opts = append(opts, Option{
			Label: src.Name,
			Token: navigation.Encode(navigation.SelectSource(src.ID)),
		})
	}
	return Menu{State: navigation.Root(), Title: rootTitle, Options: opts}
}

func backOption(s navigation.State) *Option {
	return &Option{Label: BackLabel, Token: navigation.Encode(navigation.Back(s))}
}
