package viz

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coopregistry/coopassist/pkg/database"
)

// DataSource is the capability every chart input implements: produce a
// table given an optional query string. Variants are selected by the caller
// before the engine is invoked.
type DataSource interface {
	Fetch(ctx context.Context, query string) (*Table, error)
}

// FileSource reads a delimited or structured file into a table. The backing
// file lives in a caller-managed temporary location; the caller creates and
// deletes it around the render call.
type FileSource struct {
	Path string
}

// Fetch reads the file. CSV files must carry a header row; JSON files must
// hold an array of flat objects.
func (s *FileSource) Fetch(ctx context.Context, _ string) (*Table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".csv":
		return readCSV(f)
	case ".json":
		return readJSON(f)
	default:
		return nil, fmt.Errorf("unsupported data file format: %s", filepath.Ext(s.Path))
	}
}

func readCSV(f *os.File) (*Table, error) {
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

func readJSON(f *os.File) (*Table, error) {
	var objects []map[string]any
	if err := json.NewDecoder(f).Decode(&objects); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if len(objects) == 0 {
		return &Table{}, nil
	}

	// Column order: sorted keys of the first object, for determinism.
	columns := make([]string, 0, len(objects[0]))
	for k := range objects[0] {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	t := &Table{Columns: columns}
	for _, obj := range objects {
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = cellString(obj[c])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// MockSource fabricates a small fixed demonstration table, used when a
// visualization was requested but no real data applies.
type MockSource struct{}

// Fetch returns the demonstration table.
func (s *MockSource) Fetch(ctx context.Context, _ string) (*Table, error) {
	return &Table{
		Columns: []string{"Category", "Values", "Trend"},
		Rows: [][]string{
			{"A", "10", "5"},
			{"B", "25", "12"},
			{"C", "15", "18"},
			{"D", "30", "24"},
			{"E", "20", "30"},
		},
	}, nil
}

// MemorySource serves a table already held in memory, e.g. a knowledge-base
// breakdown converted to label/count pairs.
type MemorySource struct {
	Table *Table
}

// Fetch returns the held table.
func (s *MemorySource) Fetch(ctx context.Context, _ string) (*Table, error) {
	return s.Table, nil
}

// QuerySource runs the query it is fetched with against the registry store.
type QuerySource struct {
	Executor interface {
		Execute(ctx context.Context, query string) (*database.QueryResult, error)
	}
}

// Fetch executes the query and converts the result set to a table.
func (s *QuerySource) Fetch(ctx context.Context, query string) (*Table, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query source requires a query")
	}
	result, err := s.Executor.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	return FromQueryResult(result), nil
}

// FromQueryResult converts an executed result set into a chartable table.
func FromQueryResult(r *database.QueryResult) *Table {
	if r == nil {
		return &Table{}
	}
	t := &Table{Columns: r.Columns}
	for _, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			cells[i] = cellString(row[c])
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// FromCounts converts label->count pairs into a two-column table sorted by
// label, for stable chart output.
func FromCounts(labelName, valueName string, counts map[string]float64) *Table {
	labels := make([]string, 0, len(counts))
	for k := range counts {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	t := &Table{Columns: []string{labelName, valueName}}
	for _, l := range labels {
		t.Rows = append(t.Rows, []string{l, trimFloat(counts[l])})
	}
	return t
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return trimFloat(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%g", f)
	return s
}
