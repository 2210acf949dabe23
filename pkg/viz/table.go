// Package viz renders tabular results into persisted charts.
package viz

import (
	"strconv"
	"strings"
)

// Table is the tabular shape every data source produces: named columns and
// string-valued cells. Numeric-ness is judged per column by parsing.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has no rows or no columns.
func (t *Table) Empty() bool {
	return t == nil || len(t.Columns) == 0 || len(t.Rows) == 0
}

// Column returns the values of the column at index i.
func (t *Table) Column(i int) []string {
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i < len(row) {
			out = append(out, row[i])
		} else {
			out = append(out, "")
		}
	}
	return out
}

// NumericColumn parses the column at index i as floats. Unparseable cells
// read as zero; use ClassifyColumns first to pick genuinely numeric columns.
func (t *Table) NumericColumn(i int) []float64 {
	out := make([]float64, 0, len(t.Rows))
	for _, cell := range t.Column(i) {
		v, _ := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		out = append(out, v)
	}
	return out
}

// ClassifyColumns splits column indexes into numeric and categorical sets.
// A column is numeric when every non-empty cell parses as a float and at
// least one cell is non-empty.
func ClassifyColumns(t *Table) (numeric []int, categorical []int) {
	for i := range t.Columns {
		if isNumericColumn(t.Column(i)) {
			numeric = append(numeric, i)
		} else {
			categorical = append(categorical, i)
		}
	}
	return numeric, categorical
}

func isNumericColumn(values []string) bool {
	nonEmpty := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return false
		}
	}
	return nonEmpty > 0
}

// ChartKind is the chart family inferred from a table's column composition.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
	ChartPie  ChartKind = "pie"
)

// Plan describes how a table will be charted. Recomputed per render call,
// never cached.
type Plan struct {
	Kind ChartKind

	// Bar: CategoryCol labels the axis, ValueCols[0] supplies heights.
	// Line: ValueCols are the plotted series.
	// Pie: ValueCols[0] supplies the wedge sizes, CategoryCol the labels
	// when one exists.
	CategoryCol int
	ValueCols   []int
}

// ChoosePlan applies the chart-selection policy in order: bar when the
// table mixes at least one numeric and one categorical column, line when it
// has two or more numeric columns and nothing categorical worth labeling,
// pie otherwise.
func ChoosePlan(t *Table) Plan {
	numeric, categorical := ClassifyColumns(t)

	switch {
	case len(numeric) >= 1 && len(categorical) >= 1:
		return Plan{Kind: ChartBar, CategoryCol: categorical[0], ValueCols: numeric[:1]}
	case len(numeric) >= 2:
		return Plan{Kind: ChartLine, CategoryCol: -1, ValueCols: numeric}
	case len(numeric) == 1:
		return Plan{Kind: ChartPie, CategoryCol: -1, ValueCols: numeric[:1]}
	default:
		// No numeric column at all: pie over the first column regardless of type.
		return Plan{Kind: ChartPie, CategoryCol: -1, ValueCols: []int{0}}
	}
}
