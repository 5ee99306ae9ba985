package table

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadCSV parses a table whose first column is the key. Short records are
// padded with empty cells.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return New(), nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "table: read header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	if len(header) == 0 || header[0] != KeyColumn {
		return nil, eris.Errorf("table: first column must be %s, got %q", KeyColumn, strings.Join(header, ","))
	}

	t := New()
	for _, c := range header[1:] {
		t.AddColumn(c)
	}
	cols := header[1:]

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "table: read line %d", line)
		}
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		row := Row{Date: rec[0], Cells: make(map[string]string, len(cols))}
		for i, c := range cols {
			if i+1 < len(rec) && rec[i+1] != "" {
				row.Cells[c] = rec[i+1]
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// WriteCSV writes the key column followed by Columns. Missing cells are empty.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{KeyColumn}, t.Columns...)); err != nil {
		return eris.Wrap(err, "table: write header")
	}
	rec := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		rec[0] = r.Date
		for i, c := range t.Columns {
			rec[i+1] = r.Cells[c]
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "table: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "table: flush")
}

// MarshalCSV renders the table as CSV bytes.
func (t *Table) MarshalCSV() ([]byte, error) {
	var sb strings.Builder
	if err := t.WriteCSV(&sb); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

// UnmarshalCSV parses CSV bytes.
func UnmarshalCSV(data []byte) (*Table, error) {
	return ReadCSV(strings.NewReader(string(data)))
}
