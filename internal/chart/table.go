// Package chart turns spreadsheet rows into bar chart images.
package chart

import (
	"context"
	"fmt"
	"strings"
)

// Table is tabular sheet data: a header row followed by data rows. Column 0
// holds row labels, the following columns hold numbers.
type Table struct {
	Header []string
	Rows   [][]string
}

// RowSource reads the table of one source by its display name.
type RowSource interface {
	FetchRows(ctx context.Context, sourceName string) (Table, error)
}

// NewTable splits raw rows into header and data rows. Trailing blank rows are
// dropped.
func NewTable(values [][]string) Table {
	if len(values) == 0 {
		return Table{}
	}
	rows := values[1:]
	for len(rows) > 0 && blankRow(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	return Table{
		Header: append([]string(nil), values[0]...),
		Rows:   rows,
	}
}

// Labels returns the trimmed row labels.
func (t Table) Labels() []string {
	labels := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) == 0 {
			labels = append(labels, "")
			continue
		}
		labels = append(labels, strings.TrimSpace(row[0]))
	}
	return labels
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// MalformedDataError reports sheet content that cannot be charted. Row and
// Column are zero-based positions in the sheet (row 0 is the header).
type MalformedDataError struct {
	Row    int
	Column int
	Value  string
	Reason string
}

func (e *MalformedDataError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("malformed sheet data at row %d, column %d (%q): %s", e.Row+1, e.Column+1, e.Value, e.Reason)
	}
	return fmt.Sprintf("malformed sheet data at row %d, column %d: %s", e.Row+1, e.Column+1, e.Reason)
}

// Code is used by handler summaries as err_code.
func (e *MalformedDataError) Code() string { return "malformed_data" }

// RenderError reports a failure of the chart rendering service.
type RenderError struct {
	Stage  string
	Status int
	Err    error
}

func (e *RenderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("render chart (%s): status %d: %v", e.Stage, e.Status, e.Err)
	}
	return fmt.Sprintf("render chart (%s): %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Code is used by handler summaries as err_code.
func (e *RenderError) Code() string { return "render_error" }
