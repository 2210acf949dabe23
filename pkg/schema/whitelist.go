// Package schema holds the table/column whitelist and the validation
// routines that enforce it on generated SQL.
package schema

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// Whitelist is an immutable mapping from table name to its permitted
// columns, defined once at process start. Any table or qualified column in
// a generated query that is not listed here fails validation.
type Whitelist struct {
	tables  []string            // declaration order, for deterministic prompts
	columns map[string][]string // table -> allowed columns
}

// NewWhitelist builds a whitelist from ordered (table, columns) pairs.
func NewWhitelist(entries []TableColumns) *Whitelist {
	w := &Whitelist{columns: make(map[string][]string, len(entries))}
	for _, e := range entries {
		w.tables = append(w.tables, e.Table)
		w.columns[e.Table] = e.Columns
	}
	return w
}

// TableColumns is one whitelist entry.
type TableColumns struct {
	Table   string
	Columns []string
}

// Default returns the registry whitelist.
func Default() *Whitelist {
	return NewWhitelist([]TableColumns{
		{
			Table: "cooperative",
			Columns: []string{
				"id", "name", "cooperative_type", "cooperative_state",
				"registration_no", "registration_date", "status",
			},
		},
		{
			Table: "member",
			Columns: []string{
				"id", "cooperative_id", "first_name", "last_name",
				"gender", "state", "joined_date",
			},
		},
		{
			Table: "director",
			Columns: []string{
				"id", "cooperative_id", "first_name", "last_name",
				"gender", "appointed_date",
			},
		},
		{
			Table: "cooperative_location",
			Columns: []string{
				"id", "cooperative_id", "state", "county", "payam", "boma",
			},
		},
		{
			Table: "cooperative_stages",
			Columns: []string{
				"id", "cooperative_id", "stage", "stage_date", "notes",
			},
		},
	})
}

// Tables returns the whitelisted table names in declaration order.
func (w *Whitelist) Tables() []string {
	return w.tables
}

// AllowsTable reports whether a table is whitelisted. Matching is
// case-insensitive, as generated SQL freely mixes identifier casing.
func (w *Whitelist) AllowsTable(table string) bool {
	_, ok := w.columns[strings.ToLower(table)]
	return ok
}

// AllowsColumn reports whether a column is permitted on a whitelisted table.
func (w *Whitelist) AllowsColumn(table, column string) bool {
	cols, ok := w.columns[strings.ToLower(table)]
	if !ok {
		return false
	}
	column = strings.ToLower(column)
	for _, c := range cols {
		if c == column {
			return true
		}
	}
	return false
}

// Describe renders the whitelist as the schema section of the generation
// prompt: table per line with its columns, labeled with the pluralized
// entity name so the generator associates "cooperatives" with the singular
// table name.
func (w *Whitelist) Describe() string {
	var b strings.Builder
	b.WriteString("Database schema (only these tables and columns exist):\n")
	for _, t := range w.tables {
		label := inflection.Plural(strings.ReplaceAll(t, "_", " "))
		fmt.Fprintf(&b, "- %s (%s): %s\n", t, label, strings.Join(w.columns[t], ", "))
	}
	return b.String()
}
