package table

import (
	"sort"
)

// Merge concatenates batch onto existing, keeps the last row for each
// Report_Date and sorts ascending by date. Columns are the existing columns
// followed by new batch columns in accumulation order. Neither input is
// modified.
func Merge(existing, batch *Table) *Table {
	out := New()
	if existing != nil {
		for _, c := range existing.Columns {
			out.AddColumn(c)
		}
	}
	if batch != nil {
		for _, c := range batch.Columns {
			out.AddColumn(c)
		}
	}

	var all []Row
	if existing != nil {
		all = append(all, existing.Rows...)
	}
	if batch != nil {
		all = append(all, batch.Rows...)
	}

	last := make(map[string]int, len(all))
	for i, r := range all {
		last[dateKey(r.Date)] = i
	}
	for i, r := range all {
		if last[dateKey(r.Date)] == i {
			out.Rows = append(out.Rows, cloneRow(r))
		}
	}

	sort.SliceStable(out.Rows, func(i, j int) bool {
		return dateKey(out.Rows[i].Date) < dateKey(out.Rows[j].Date)
	})
	return out
}

func cloneRow(r Row) Row {
	cells := make(map[string]string, len(r.Cells))
	for k, v := range r.Cells {
		cells[k] = v
	}
	return Row{Date: r.Date, Cells: cells}
}
