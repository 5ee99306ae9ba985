// Package export writes the historical tables to a spreadsheet workbook.
package export

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/estimates-cli/internal/table"
)

// Sheet names.
const (
	SheetEstimates  = "estimates"
	SheetConfidence = "confidence"
)

// Workbook builds a workbook with one sheet per table. Numeric cells are
// written as numbers, everything else as text; missing cells stay blank.
func Workbook(estimates, confidence *table.Table) (*xlsx.File, error) {
	f := xlsx.NewFile()
	for _, s := range []struct {
		name string
		tbl  *table.Table
	}{
		{SheetEstimates, estimates},
		{SheetConfidence, confidence},
	} {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return nil, eris.Wrapf(err, "export: add sheet %s", s.name)
		}
		fillSheet(sheet, s.tbl)
	}
	return f, nil
}

func fillSheet(sheet *xlsx.Sheet, tbl *table.Table) {
	if tbl == nil {
		tbl = table.New()
	}
	header := sheet.AddRow()
	header.AddCell().SetString(table.KeyColumn)
	for _, c := range tbl.Columns {
		header.AddCell().SetString(c)
	}

	for _, r := range tbl.Rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.Date)
		for _, c := range tbl.Columns {
			cell := row.AddCell()
			v, ok := r.Cells[c]
			if !ok {
				continue
			}
			if d, err := decimal.NewFromString(v); err == nil {
				f, _ := d.Float64()
				cell.SetFloat(f)
				continue
			}
			cell.SetString(v)
		}
	}
}

// Write renders the workbook to w.
func Write(w io.Writer, estimates, confidence *table.Table) error {
	f, err := Workbook(estimates, confidence)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

// WriteFile saves the workbook at path, creating parent directories.
func WriteFile(path string, estimates, confidence *table.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "export: create dir")
	}
	f, err := Workbook(estimates, confidence)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
