// Package dataset loads the amendment spreadsheet into an in-memory
// table: fetch, header normalization, column selection and type coercion
// of the currency and disbursement-date columns.
package dataset

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row of the dataset. Opaque text columns live in Fields;
// a missing key means the cell is null. The currency and date columns are
// carried in coerced form only, nil when the raw cell did not parse.
type Record struct {
	Fields map[string]string
	Value  *decimal.Decimal
	Date   *time.Time
}

// Field returns the value of an opaque column, with ok=false for null.
func (r *Record) Field(col string) (string, bool) {
	v, ok := r.Fields[col]
	return v, ok
}

// Table is the loaded dataset: the retained columns in canonical order
// and the rows. Filtering produces new Tables sharing Record pointers.
type Table struct {
	Columns []string
	Records []*Record
}

// HasColumn reports whether col survived column selection.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Records) }

// Cell renders the value of col for rec as display text, ok=false when
// the cell is null. Coerced columns are formatted back to text.
func (t *Table) Cell(rec *Record, col string) (string, bool) {
	switch col {
	case ColValor:
		if rec.Value == nil {
			return "", false
		}
		return rec.Value.String(), true
	case ColDataOBMS:
		if rec.Date == nil {
			return "", false
		}
		return rec.Date.Format("2006-01-02 15:04:05"), true
	default:
		return rec.Field(col)
	}
}

// dayFirstFormats are tried in order when coercing DATA OB MS. The sheet
// is maintained in Brazilian day-first notation but exports sometimes
// carry ISO timestamps.
var dayFirstFormats = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseValue(raw string) *decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	return &d
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dayFirstFormats {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}

// buildTable assembles a Table from raw sheet rows: the first row is the
// header, headers are trimmed, and only the profile's desired columns
// that are actually present are retained, in the profile's order.
func buildTable(rows [][]string, profile Profile) *Table {
	if len(rows) == 0 {
		return &Table{}
	}

	header := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		header[strings.TrimSpace(h)] = i
	}

	var columns []string
	for _, want := range profile.DesiredColumns {
		if _, ok := header[want]; ok {
			columns = append(columns, want)
		}
	}

	t := &Table{Columns: columns, Records: make([]*Record, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		rec := &Record{Fields: make(map[string]string, len(columns))}
		for _, col := range columns {
			idx := header[col]
			if idx >= len(row) {
				continue
			}
			raw := row[idx]
			switch col {
			case ColValor:
				rec.Value = parseValue(raw)
			case ColDataOBMS:
				rec.Date = parseDate(raw)
			default:
				if raw != "" {
					rec.Fields[col] = raw
				}
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t
}
