package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sespe/emendas-bi/internal/dataset"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ts(year int, month time.Month, day int) *time.Time {
	v := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestAggregate_SumValue(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A", dataset.ColValor},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "x"}, Value: dec("10")},
			{Fields: map[string]string{"A": "x"}, Value: dec("5")},
			{Fields: map[string]string{"A": "y"}, Value: dec("1")},
		},
	}

	result := Aggregate(table, "A", SumValue)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "x", result.Rows[0].Dimension)
	assert.True(t, result.Rows[0].Metric.Equal(decimal.RequireFromString("15")))
	assert.Equal(t, "y", result.Rows[1].Dimension)
	assert.True(t, result.Rows[1].Metric.Equal(decimal.RequireFromString("1")))
}

func TestAggregate_CountTotalsMatchRowCount(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A"},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "x"}},
			{Fields: map[string]string{"A": "y"}},
			{Fields: map[string]string{}},
			{Fields: map[string]string{"A": "y"}},
		},
	}

	result := Aggregate(table, "A", Count)
	total := decimal.Zero
	for _, row := range result.Rows {
		total = total.Add(row.Metric)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(int64(table.Len()))))
}

func TestAggregate_NullDimensionBucket(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A"},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "x"}},
			{Fields: map[string]string{}},
		},
	}

	result := Aggregate(table, "A", Count)
	labels := []string{result.Rows[0].Dimension, result.Rows[1].Dimension}
	assert.Contains(t, labels, NoValueLabel)
}

func TestAggregate_TiesBrokenByLabel(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A"},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "b"}},
			{Fields: map[string]string{"A": "a"}},
			{Fields: map[string]string{"A": "c"}},
		},
	}

	result := Aggregate(table, "A", Count)
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "a", result.Rows[0].Dimension)
	assert.Equal(t, "b", result.Rows[1].Dimension)
	assert.Equal(t, "c", result.Rows[2].Dimension)
}

func TestAggregate_SumFallsBackToCount(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A"},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "x"}},
			{Fields: map[string]string{"A": "x"}},
		},
	}

	result := Aggregate(table, "A", SumValue)
	assert.Equal(t, Count, result.Mode)
	assert.True(t, result.Rows[0].Metric.Equal(decimal.NewFromInt(2)))
}

func TestAggregate_MissingDimension(t *testing.T) {
	table := &dataset.Table{Columns: []string{"A"}}
	result := Aggregate(table, "B", Count)
	assert.Empty(t, result.Rows)
}

func TestResult_Head(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"A"},
		Records: []*dataset.Record{
			{Fields: map[string]string{"A": "x"}},
			{Fields: map[string]string{"A": "x"}},
			{Fields: map[string]string{"A": "y"}},
		},
	}

	result := Aggregate(table, "A", Count).Head(1)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "x", result.Rows[0].Dimension)
}

func TestTimeSeries(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{dataset.ColValor, dataset.ColDataOBMS},
		Records: []*dataset.Record{
			{Fields: map[string]string{}, Value: dec("10"), Date: ts(2024, time.February, 20)},
			{Fields: map[string]string{}, Value: dec("5"), Date: ts(2024, time.January, 15)},
			{Fields: map[string]string{}, Value: dec("3"), Date: ts(2024, time.January, 31)},
			{Fields: map[string]string{}, Value: dec("99"), Date: nil},
		},
	}

	series, ok := TimeSeries(table)
	require.True(t, ok)
	assert.Equal(t, SumValue, series.Mode)
	require.Len(t, series.Points, 2)

	// Chronological, month-truncated, rows without a date excluded.
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), series.Points[0].Month)
	assert.True(t, series.Points[0].Metric.Equal(decimal.RequireFromString("8")))
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), series.Points[1].Month)
}

func TestTimeSeries_NoDates(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{dataset.ColDataOBMS},
		Records: []*dataset.Record{{Fields: map[string]string{}}},
	}
	_, ok := TimeSeries(table)
	assert.False(t, ok)

	_, ok = TimeSeries(&dataset.Table{Columns: []string{"A"}})
	assert.False(t, ok)
}

func TestYearStatusCrosstab(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{dataset.ColAnoEmenda, dataset.ColStatusGeral},
		Records: []*dataset.Record{
			{Fields: map[string]string{dataset.ColAnoEmenda: "2022", dataset.ColStatusGeral: "PAGA"}},
			{Fields: map[string]string{dataset.ColAnoEmenda: "2023", dataset.ColStatusGeral: "PAGA"}},
			{Fields: map[string]string{dataset.ColAnoEmenda: "2023", dataset.ColStatusGeral: "PENDENTE"}},
			{Fields: map[string]string{dataset.ColAnoEmenda: "2024", dataset.ColStatusGeral: "PAGA"}},
			{Fields: map[string]string{dataset.ColAnoEmenda: "n/a", dataset.ColStatusGeral: "PAGA"}},
		},
	}

	ct, ok := YearStatusCrosstab(table, 2)
	require.True(t, ok)
	require.Len(t, ct.Rows, 3)

	// Only the two most recent years survive, ascending, status-sorted.
	assert.Equal(t, 2023, ct.Rows[0].Year)
	assert.Equal(t, "PAGA", ct.Rows[0].Status)
	assert.Equal(t, 2023, ct.Rows[1].Year)
	assert.Equal(t, "PENDENTE", ct.Rows[1].Status)
	assert.Equal(t, 2024, ct.Rows[2].Year)
}

func TestYearStatusCrosstab_MissingColumns(t *testing.T) {
	_, ok := YearStatusCrosstab(&dataset.Table{Columns: []string{dataset.ColAnoEmenda}}, 5)
	assert.False(t, ok)
}

func TestExecutionBreakdown(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{dataset.ColExecucao},
		Records: []*dataset.Record{
			{Fields: map[string]string{dataset.ColExecucao: "Executada"}},
			{Fields: map[string]string{dataset.ColExecucao: "EM EXECUÇÃO"}},
			{Fields: map[string]string{}},
		},
	}

	rows, ok := ExecutionBreakdown(table)
	require.True(t, ok)
	require.Len(t, rows, 4)

	want := map[string]int64{
		ExecInProgress: 1,
		ExecDone:       1,
		ExecNotStarted: 0,
		ExecOther:      1,
	}
	total := int64(0)
	for _, row := range rows {
		assert.Equal(t, want[row.Situation], row.Count, row.Situation)
		total += row.Count
	}
	assert.Equal(t, int64(table.Len()), total)

	// Canonical order is fixed regardless of counts.
	assert.Equal(t, ExecInProgress, rows[0].Situation)
	assert.Equal(t, ExecDone, rows[1].Situation)
	assert.Equal(t, ExecNotStarted, rows[2].Situation)
	assert.Equal(t, ExecOther, rows[3].Situation)
}

func TestExecutionBreakdown_Synonyms(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: "executada", want: ExecDone},
		{raw: "EM EXECUCAO", want: ExecInProgress},
		{raw: "não executada", want: ExecNotStarted},
		{raw: "  Em Execução  ", want: ExecInProgress},
		{raw: "cancelada", want: ExecOther},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			table := &dataset.Table{
				Columns: []string{dataset.ColExecucao},
				Records: []*dataset.Record{{Fields: map[string]string{dataset.ColExecucao: tt.raw}}},
			}
			rows, ok := ExecutionBreakdown(table)
			require.True(t, ok)
			for _, row := range rows {
				if row.Situation == tt.want {
					assert.Equal(t, int64(1), row.Count)
				} else {
					assert.Zero(t, row.Count)
				}
			}
		})
	}
}

func TestExecutionBreakdown_MissingColumn(t *testing.T) {
	_, ok := ExecutionBreakdown(&dataset.Table{Columns: []string{"A"}})
	assert.False(t, ok)
}
