// Package aggregate reduces the filtered dataset into the chart-ready
// tables: group-by with count or currency sum, the monthly time series,
// the year-by-status crosstab and the execution-status breakdown.
package aggregate

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sespe/emendas-bi/internal/dataset"
	"github.com/sespe/emendas-bi/internal/textnorm"
)

// Mode selects the reduction applied to each group.
type Mode string

const (
	// Count reduces a group to its row count.
	Count Mode = "Contagem"
	// SumValue reduces a group to the sum of its VALOR cells. When the
	// table has no VALOR column the engine falls back to Count.
	SumValue Mode = "Soma de VALOR"
)

// NoValueLabel is the bucket for rows whose dimension cell is null.
const NoValueLabel = "(Sem valor)"

// Row is one group of an aggregation result.
type Row struct {
	Dimension string          `json:"dimension"`
	Metric    decimal.Decimal `json:"metric"`
}

// Result is a two-column aggregation table, sorted by metric descending
// with ties broken by dimension label ascending.
type Result struct {
	Dimension string `json:"dimension_column"`
	Mode      Mode   `json:"mode"`
	Rows      []Row  `json:"rows"`
}

// Head returns the result truncated to its first n rows.
func (r Result) Head(n int) Result {
	if n >= 0 && n < len(r.Rows) {
		r.Rows = r.Rows[:n]
	}
	return r
}

// Aggregate groups the table by dim and reduces per mode. A missing
// dimension column yields an empty result; downstream views render an
// insufficient-data notice for those.
func Aggregate(t *dataset.Table, dim string, mode Mode) Result {
	if mode == SumValue && !t.HasColumn(dataset.ColValor) {
		mode = Count
	}
	out := Result{Dimension: dim, Mode: mode}
	if !t.HasColumn(dim) {
		return out
	}

	groups := map[string]decimal.Decimal{}
	for _, rec := range t.Records {
		label, ok := rec.Field(dim)
		if !ok {
			label = NoValueLabel
		}
		metric := groups[label]
		if mode == SumValue {
			if rec.Value != nil {
				metric = metric.Add(*rec.Value)
			}
		} else {
			metric = metric.Add(decimal.NewFromInt(1))
		}
		groups[label] = metric
	}

	out.Rows = make([]Row, 0, len(groups))
	for label, metric := range groups {
		out.Rows = append(out.Rows, Row{Dimension: label, Metric: metric})
	}
	sort.Slice(out.Rows, func(i, j int) bool {
		cmp := out.Rows[i].Metric.Cmp(out.Rows[j].Metric)
		if cmp != 0 {
			return cmp > 0
		}
		return out.Rows[i].Dimension < out.Rows[j].Dimension
	})
	return out
}

// TimePoint is one month bucket of the series.
type TimePoint struct {
	Month  time.Time       `json:"month"`
	Metric decimal.Decimal `json:"metric"`
}

// Series is the monthly disbursement series, chronologically ascending.
type Series struct {
	Mode   Mode        `json:"mode"`
	Points []TimePoint `json:"points"`
}

// TimeSeries buckets rows with a disbursement date by calendar month.
// ok is false when the date column is absent or holds no valid dates.
func TimeSeries(t *dataset.Table) (Series, bool) {
	if !t.HasColumn(dataset.ColDataOBMS) {
		return Series{}, false
	}
	mode := Count
	if t.HasColumn(dataset.ColValor) {
		mode = SumValue
	}

	buckets := map[time.Time]decimal.Decimal{}
	for _, rec := range t.Records {
		if rec.Date == nil {
			continue
		}
		month := time.Date(rec.Date.Year(), rec.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		metric := buckets[month]
		if mode == SumValue {
			if rec.Value != nil {
				metric = metric.Add(*rec.Value)
			}
		} else {
			metric = metric.Add(decimal.NewFromInt(1))
		}
		buckets[month] = metric
	}
	if len(buckets) == 0 {
		return Series{}, false
	}

	s := Series{Mode: mode, Points: make([]TimePoint, 0, len(buckets))}
	for month, metric := range buckets {
		s.Points = append(s.Points, TimePoint{Month: month, Metric: metric})
	}
	sort.Slice(s.Points, func(i, j int) bool { return s.Points[i].Month.Before(s.Points[j].Month) })
	return s, true
}

// CrosstabRow is one (year, status) cell of the crosstab.
type CrosstabRow struct {
	Year   int             `json:"year"`
	Status string          `json:"status"`
	Metric decimal.Decimal `json:"metric"`
}

// Crosstab is the year-by-general-status table restricted to the most
// recent years, ascending by year for charting.
type Crosstab struct {
	Mode Mode          `json:"mode"`
	Rows []CrosstabRow `json:"rows"`
}

// YearStatusCrosstab groups by (amendment year, general status) and
// keeps the topNYears most recent distinct years. Rows whose year cell
// does not parse as a number are dropped. ok is false when either
// required column is missing.
func YearStatusCrosstab(t *dataset.Table, topNYears int) (Crosstab, bool) {
	if !t.HasColumn(dataset.ColAnoEmenda) || !t.HasColumn(dataset.ColStatusGeral) {
		return Crosstab{}, false
	}
	mode := Count
	if t.HasColumn(dataset.ColValor) {
		mode = SumValue
	}

	type key struct {
		year   int
		status string
	}
	groups := map[key]decimal.Decimal{}
	yearSet := map[int]struct{}{}
	for _, rec := range t.Records {
		rawYear, ok := rec.Field(dataset.ColAnoEmenda)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(rawYear), 64)
		if err != nil {
			continue
		}
		year := int(f)
		status, ok := rec.Field(dataset.ColStatusGeral)
		if !ok {
			status = NoValueLabel
		}

		k := key{year: year, status: status}
		metric := groups[k]
		if mode == SumValue {
			if rec.Value != nil {
				metric = metric.Add(*rec.Value)
			}
		} else {
			metric = metric.Add(decimal.NewFromInt(1))
		}
		groups[k] = metric
		yearSet[year] = struct{}{}
	}

	years := make([]int, 0, len(yearSet))
	for y := range yearSet {
		years = append(years, y)
	}
	sort.Ints(years)
	if topNYears > 0 && len(years) > topNYears {
		years = years[len(years)-topNYears:]
	}
	keep := map[int]struct{}{}
	for _, y := range years {
		keep[y] = struct{}{}
	}

	ct := Crosstab{Mode: mode}
	for k, metric := range groups {
		if _, ok := keep[k.year]; !ok {
			continue
		}
		ct.Rows = append(ct.Rows, CrosstabRow{Year: k.year, Status: k.status, Metric: metric})
	}
	sort.Slice(ct.Rows, func(i, j int) bool {
		if ct.Rows[i].Year != ct.Rows[j].Year {
			return ct.Rows[i].Year < ct.Rows[j].Year
		}
		return ct.Rows[i].Status < ct.Rows[j].Status
	})
	return ct, true
}

// Canonical execution-status buckets, in the fixed presentation order.
const (
	ExecInProgress = "Em Execução"
	ExecDone       = "Executada"
	ExecNotStarted = "Não Executada"
	ExecOther      = "Outros/Indef."
)

// executionBuckets is the canonical row order of the breakdown.
var executionBuckets = []string{ExecInProgress, ExecDone, ExecNotStarted, ExecOther}

// executionSynonyms maps folded status text to its canonical bucket.
var executionSynonyms = map[string]string{
	"executada":     ExecDone,
	"em execucao":   ExecInProgress,
	"nao executada": ExecNotStarted,
}

// BreakdownRow is one canonical bucket with its row count.
type BreakdownRow struct {
	Situation string `json:"situation"`
	Count     int64  `json:"count"`
}

// ExecutionBreakdown folds the free-text execution-status column into
// the four canonical buckets. The result always has exactly four rows in
// canonical order, zero-filled, so its shape never depends on the data.
// Null and unmapped cells both land in Outros/Indef.
func ExecutionBreakdown(t *dataset.Table) ([]BreakdownRow, bool) {
	if !t.HasColumn(dataset.ColExecucao) {
		return nil, false
	}

	counts := map[string]int64{}
	for _, rec := range t.Records {
		bucket := ExecOther
		if raw, ok := rec.Field(dataset.ColExecucao); ok {
			if mapped, known := executionSynonyms[textnorm.Fold(raw)]; known {
				bucket = mapped
			}
		}
		counts[bucket]++
	}

	rows := make([]BreakdownRow, 0, len(executionBuckets))
	for _, bucket := range executionBuckets {
		rows = append(rows, BreakdownRow{Situation: bucket, Count: counts[bucket]})
	}
	return rows, true
}
