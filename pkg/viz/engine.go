package viz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/apperrors"
	"github.com/coopregistry/coopassist/pkg/metrics"
)

// Engine turns a data source into a chart file on disk.
type Engine struct {
	logger *zap.Logger
}

// NewEngine creates a chart engine.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{logger: logger.Named("viz")}
}

// Render fetches data from the source, selects a chart kind, and writes an
// SVG to outputPath, overwriting any previous file there. Every failure
// surfaces as ErrNoChart so callers degrade to a text-only answer.
func (e *Engine) Render(ctx context.Context, source DataSource, query, title, outputPath string) (string, error) {
	table, err := source.Fetch(ctx, query)
	if err != nil {
		e.logger.Warn("chart data fetch failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrNoChart, err)
	}
	if table.Empty() {
		return "", fmt.Errorf("%w: no data to chart", apperrors.ErrNoChart)
	}

	plan := ChoosePlan(table)
	svg := e.renderPlan(table, plan, title)

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		e.logger.Warn("chart directory creation failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrNoChart, err)
	}
	if err := os.WriteFile(outputPath, []byte(svg), 0o644); err != nil {
		e.logger.Warn("chart write failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrNoChart, err)
	}

	metrics.ChartsRenderedTotal.WithLabelValues(string(plan.Kind)).Inc()
	e.logger.Info("chart rendered",
		zap.String("kind", string(plan.Kind)),
		zap.String("path", outputPath),
		zap.Int("rows", len(table.Rows)))
	return outputPath, nil
}

func (e *Engine) renderPlan(t *Table, plan Plan, title string) string {
	switch plan.Kind {
	case ChartBar:
		return renderBar(t.Column(plan.CategoryCol), t.NumericColumn(plan.ValueCols[0]), title)
	case ChartLine:
		names := make([]string, len(plan.ValueCols))
		series := make([][]float64, len(plan.ValueCols))
		for i, col := range plan.ValueCols {
			names[i] = t.Columns[col]
			series[i] = t.NumericColumn(col)
		}
		return renderLine(names, series, title)
	default:
		return renderPie(pieLabels(t, plan.ValueCols[0]), t.NumericColumn(plan.ValueCols[0]), title)
	}
}

// pieLabels labels wedges with the value column's own cells when they are
// not numeric, and with row positions otherwise.
func pieLabels(t *Table, valueCol int) []string {
	raw := t.Column(valueCol)
	if !isNumericColumn(raw) {
		return raw
	}
	labels := make([]string, len(raw))
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	return labels
}
