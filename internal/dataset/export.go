package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ExportFilename is the fixed name offered for the filtered download.
const ExportFilename = "emendas_filtrado.csv"

// WriteCSV serializes the table as UTF-8 comma-separated text with a
// header row. Null cells are written as empty fields, so re-parsing the
// export yields the same row count and column set.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			cell, ok := t.Cell(rec, col)
			if !ok {
				cell = ""
			}
			row[i] = cell
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing export row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}
