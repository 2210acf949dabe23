package viz

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/apperrors"
	"github.com/coopregistry/coopassist/pkg/database"
)

type failingSource struct{}

func (failingSource) Fetch(_ context.Context, _ string) (*Table, error) {
	return nil, errors.New("source unavailable")
}

type emptySource struct{}

func (emptySource) Fetch(_ context.Context, _ string) (*Table, error) {
	return &Table{}, nil
}

func TestEngineRenderWritesChartFile(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "chart.svg")

	path, err := engine.Render(context.Background(), &MockSource{}, "", "Demonstration", out)
	require.NoError(t, err)
	assert.Equal(t, out, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "<svg"))
	assert.Contains(t, string(content), "</svg>")
}

func TestEngineRenderOverwritesExisting(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "chart.svg")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0o644))

	_, err := engine.Render(context.Background(), &MockSource{}, "", "", out)
	require.NoError(t, err)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotEqual(t, "stale", string(content))
}

func TestEngineRenderCreatesOutputDirectory(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "graphs", "nested", "chart.svg")

	_, err := engine.Render(context.Background(), &MockSource{}, "", "", out)
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestEngineRenderSourceFailure(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "chart.svg")

	_, err := engine.Render(context.Background(), failingSource{}, "", "", out)
	require.ErrorIs(t, err, apperrors.ErrNoChart)
	assert.NoFileExists(t, out)
}

func TestEngineRenderEmptyTable(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "chart.svg")

	_, err := engine.Render(context.Background(), emptySource{}, "", "", out)
	require.ErrorIs(t, err, apperrors.ErrNoChart)
	assert.NoFileExists(t, out)
}

func TestEngineRenderAllCategoricalStillProducesChart(t *testing.T) {
	engine := NewEngine(zap.NewNop())
	out := filepath.Join(t.TempDir(), "chart.svg")
	source := &MemorySource{Table: &Table{
		Columns: []string{"name"},
		Rows:    [][]string{{"Unity Coop"}, {"Hope Coop"}},
	}}

	path, err := engine.Render(context.Background(), source, "", "", out)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestFileSourceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("state,members\nJonglei,120\nUnity,85\n"), 0o644))

	table, err := (&FileSource{Path: path}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "members"}, table.Columns)
	assert.Len(t, table.Rows, 2)
}

func TestFileSourceJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"state":"Jonglei","members":120}]`), 0o644))

	table, err := (&FileSource{Path: path}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"members", "state"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"120", "Jonglei"}, table.Rows[0])
}

func TestFileSourceUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := (&FileSource{Path: path}).Fetch(context.Background(), "")
	assert.Error(t, err)
}

func TestFromQueryResult(t *testing.T) {
	result := &database.QueryResult{
		Columns: []string{"state", "total"},
		Rows: []map[string]any{
			{"state": "Jonglei", "total": float64(120)},
			{"state": nil, "total": int64(3)},
		},
	}

	table := FromQueryResult(result)
	assert.Equal(t, []string{"state", "total"}, table.Columns)
	assert.Equal(t, []string{"Jonglei", "120"}, table.Rows[0])
	assert.Equal(t, []string{"", "3"}, table.Rows[1])
}

func TestFromCountsSortedByLabel(t *testing.T) {
	table := FromCounts("state", "members", map[string]float64{
		"Jonglei":           120,
		"Central Equatoria": 300,
	})

	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Central Equatoria", "300"}, table.Rows[0])
	assert.Equal(t, []string{"Jonglei", "120"}, table.Rows[1])
}
