package chart

import (
	"math"
	"strconv"
	"strings"

	"github.com/m3rciful/chartbot/internal/catalog"
)

// Config is a Chart.js bar chart definition as accepted by QuickChart.
type Config struct {
	Type string `json:"type"`
	Data Data   `json:"data"`
}

// Data holds the labels and datasets of a chart.
type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Dataset is one bar series.
type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor"`
	BorderColor     string    `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
}

type palette struct {
	fill   string
	border string
}

var columnPalette = map[int]palette{
	1: {fill: "rgba(75, 192, 192, 0.2)", border: "rgba(75, 192, 192, 1)"},
	2: {fill: "rgba(255, 99, 132, 0.2)", border: "rgba(255, 99, 132, 1)"},
	3: {fill: "rgba(54, 162, 235, 0.2)", border: "rgba(54, 162, 235, 1)"},
	4: {fill: "rgba(153, 102, 255, 0.2)", border: "rgba(153, 102, 255, 1)"},
}

// thousands separators accepted inside numeric cells
var numberReplacer = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "")

// BuildConfig builds the bar chart of category c from t. Every charted cell
// must be numeric; the first offending cell is reported as *MalformedDataError.
func BuildConfig(t Table, c catalog.Category) (Config, error) {
	cols := c.Columns()
	if len(cols) == 0 {
		return Config{}, &MalformedDataError{Reason: "unknown category " + strconv.Itoa(int(c))}
	}
	if len(t.Header) == 0 {
		return Config{}, &MalformedDataError{Reason: "missing header row"}
	}
	if len(t.Rows) == 0 {
		return Config{}, &MalformedDataError{Row: 1, Reason: "no data rows"}
	}

	cfg := Config{
		Type: "bar",
		Data: Data{Labels: t.Labels()},
	}
	for _, col := range cols {
		if col >= len(t.Header) {
			return Config{}, &MalformedDataError{Column: col, Reason: "missing header column"}
		}
		values := make([]float64, 0, len(t.Rows))
		for i, row := range t.Rows {
			if col >= len(row) {
				return Config{}, &MalformedDataError{Row: i + 1, Column: col, Reason: "missing cell"}
			}
			v, err := ParseNumber(row[col])
			if err != nil {
				return Config{}, &MalformedDataError{Row: i + 1, Column: col, Value: row[col], Reason: "not a number"}
			}
			values = append(values, v)
		}
		p := columnPalette[col]
		cfg.Data.Datasets = append(cfg.Data.Datasets, Dataset{
			Label:           strings.TrimSpace(t.Header[col]),
			Data:            values,
			BackgroundColor: p.fill,
			BorderColor:     p.border,
			BorderWidth:     1,
		})
	}
	return cfg, nil
}

// ParseNumber parses a spreadsheet number such as "1,234,567" or "-12.5".
// Only plain decimal notation with an optional exponent is accepted; NaN,
// infinities and hex floats are rejected.
func ParseNumber(s string) (float64, error) {
	cleaned := numberReplacer.Replace(strings.TrimSpace(s))
	if !isDecimal(cleaned) {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

// isDecimal reports whether s is [+-]digits[.digits][e[+-]digits] with at
// least one mantissa digit.
func isDecimal(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for ; i < len(s) && isDigit(s[i]); i++ {
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for ; i < len(s) && isDigit(s[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		exp := 0
		for ; i < len(s) && isDigit(s[i]); i++ {
			exp++
		}
		if exp == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
