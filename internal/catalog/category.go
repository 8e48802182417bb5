package catalog

// Category identifies one of the fixed data dimensions offered for charting.
// The zero value is not a valid category.
type Category uint8

const (
	// Revenue charts the revenue column.
	Revenue Category = iota + 1
	// Expenses charts the expenses column.
	Expenses
	// Profit charts the profit column.
	Profit
	// Tax charts the corporate income tax column.
	Tax
	// All charts every data column at once.
	All
)

var categoryOrder = []Category{Revenue, Expenses, Profit, Tax, All}

var categoryLabels = map[Category]string{
	Revenue:  "Revenue",
	Expenses: "Expenses",
	Profit:   "Profit",
	Tax:      "Tax",
	All:      "All data",
}

var categoryColumns = map[Category]int{
	Revenue:  1,
	Expenses: 2,
	Profit:   3,
	Tax:      4,
}

// Categories returns all categories in display order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// Valid reports whether c is one of the enumerated categories.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// String returns the display label.
func (c Category) String() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return "unknown"
}

// Columns returns the zero-based spreadsheet columns charted for c.
// Column 0 holds the row labels and is never returned.
func (c Category) Columns() []int {
	if c == All {
		cols := make([]int, 0, len(categoryColumns))
		for _, cat := range categoryOrder {
			if col, ok := categoryColumns[cat]; ok {
				cols = append(cols, col)
			}
		}
		return cols
	}
	if col, ok := categoryColumns[c]; ok {
		return []int{col}
	}
	return nil
}
