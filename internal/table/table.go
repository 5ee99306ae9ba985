// Package table holds the wide historical tables: one row per Report_Date,
// one column per quarter label, cells kept as the exact strings stored.
package table

import (
	"slices"
	"time"

	"github.com/sells-group/estimates-cli/internal/model"
)

// KeyColumn is the name of the date key column.
const KeyColumn = "Report_Date"

// Row is one report date and its non-empty cells keyed by column.
type Row struct {
	Date  string
	Cells map[string]string
}

// Table is a wide table. Columns excludes the key column and is kept in
// accumulation order.
type Table struct {
	Columns []string
	Rows    []Row
}

// New returns an empty table holding only the key column.
func New() *Table {
	return &Table{}
}

// Len is the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Find returns the row for date.
func (t *Table) Find(date string) (Row, bool) {
	key := dateKey(date)
	for _, r := range t.Rows {
		if dateKey(r.Date) == key {
			return r, true
		}
	}
	return Row{}, false
}

// AddColumn appends col unless it is already present.
func (t *Table) AddColumn(col string) {
	if col == KeyColumn || slices.Contains(t.Columns, col) {
		return
	}
	t.Columns = append(t.Columns, col)
}

// Append adds a row, registering any new columns in the row's cell order.
func (t *Table) Append(r Row, order []string) {
	for _, c := range order {
		if _, ok := r.Cells[c]; ok {
			t.AddColumn(c)
		}
	}
	for c := range r.Cells {
		if !slices.Contains(t.Columns, c) {
			t.AddColumn(c)
		}
	}
	t.Rows = append(t.Rows, r)
}

// LastDate returns the greatest Report_Date in the table.
func (t *Table) LastDate() (time.Time, bool) {
	var (
		last  time.Time
		found bool
	)
	if t == nil {
		return last, false
	}
	for _, r := range t.Rows {
		d, err := time.Parse(model.DateKeyLayout, dateKey(r.Date))
		if err != nil {
			continue
		}
		if !found || d.After(last) {
			last, found = d, true
		}
	}
	return last, found
}

// dateKey normalizes stored dates such as "2024-01-05 00:00:00" to the ISO
// day they name; anything else is used as is.
func dateKey(s string) string {
	if len(s) >= len(model.DateKeyLayout) {
		if _, err := time.Parse(model.DateKeyLayout, s[:len(model.DateKeyLayout)]); err == nil {
			return s[:len(model.DateKeyLayout)]
		}
	}
	return s
}
