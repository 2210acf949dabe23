package schema

import (
	"fmt"
	"regexp"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/coopregistry/coopassist/pkg/apperrors"
)

var (
	// Matches markdown code fences around generated SQL, with or without a
	// language tag.
	fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

	// Matches table references after FROM or JOIN.
	tableRefPattern = regexp.MustCompile(`(?i)\b(?:from|join)\s+([a-zA-Z_][a-zA-Z0-9_]*)`)

	// Matches qualified column references (table.column or alias.column).
	qualifiedColPattern = regexp.MustCompile(`\b([a-zA-Z_][a-zA-Z0-9_]*)\.([a-zA-Z_][a-zA-Z0-9_]*)\b`)
)

// Guard validates generated SQL against the whitelist. This is a lexical
// check over the statement text, not a parser: it catches whitelist
// violations and missing table references, nothing more.
//
// Known limitation: only qualified (table.column) references are checked
// against the per-table column sets; bare column names pass through. A real
// SQL AST would close that gap and is a possible future tightening.
type Guard struct {
	whitelist *Whitelist
}

// NewGuard creates a Guard enforcing the given whitelist.
func NewGuard(w *Whitelist) *Guard {
	return &Guard{whitelist: w}
}

// Whitelist returns the underlying whitelist, for prompt construction.
func (g *Guard) Whitelist() *Whitelist {
	return g.whitelist
}

// Sanitize normalizes raw generator output into a bare SQL statement:
// markdown fences and trailing statement terminators are stripped, with no
// semantic change to the statement itself.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)

	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	// Generators sometimes emit stray fence markers without a closing pair.
	s = strings.ReplaceAll(s, "```sql", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	s = strings.TrimRight(s, " \t\n\r")
	for strings.HasSuffix(s, ";") {
		s = strings.TrimRight(strings.TrimSuffix(s, ";"), " \t\n\r")
	}

	return s
}

// Validate checks sanitized SQL against the whitelist. It fails when the
// statement references zero tables, references a table outside the
// whitelist, contains a second statement, or qualifies a column that is not
// permitted on a referenced whitelisted table. The returned error text is
// fed back into the next generation attempt, so it names the offending
// identifier.
func (g *Guard) Validate(sql string) error {
	if strings.TrimSpace(sql) == "" {
		return fmt.Errorf("empty query")
	}

	if hasSemicolonOutsideStrings(sql) {
		return fmt.Errorf("multiple SQL statements are not allowed; generate a single statement")
	}

	tables := g.referencedTables(sql)
	if len(tables) == 0 {
		return fmt.Errorf("query references no tables; it must select FROM one of: %s",
			strings.Join(g.whitelist.Tables(), ", "))
	}

	for _, t := range tables {
		if !g.whitelist.AllowsTable(t) {
			return fmt.Errorf("table %q is not allowed; only these tables exist: %s",
				t, strings.Join(g.whitelist.Tables(), ", "))
		}
	}

	referenced := make(map[string]bool, len(tables))
	for _, t := range tables {
		referenced[strings.ToLower(t)] = true
	}

	for _, m := range qualifiedColPattern.FindAllStringSubmatch(sql, -1) {
		qualifier, column := strings.ToLower(m[1]), m[2]
		// Qualifiers that are not referenced whitelisted tables are aliases
		// or functions; those columns are not validated here.
		if !referenced[qualifier] || !g.whitelist.AllowsTable(qualifier) {
			continue
		}
		if !g.whitelist.AllowsColumn(qualifier, column) {
			return fmt.Errorf("column %q does not exist on table %q; allowed columns: %s",
				column, qualifier, strings.Join(g.whitelist.columns[qualifier], ", "))
		}
	}

	return nil
}

// CheckQuestion rejects question text that itself carries a SQL injection
// pattern, before it is ever embedded in a generation prompt.
func (g *Guard) CheckQuestion(question string) error {
	if isSQLi, fingerprint := libinjection.IsSQLi(question); isSQLi {
		return fmt.Errorf("%w (fingerprint %s)", apperrors.ErrUnsafeQuestion, fingerprint)
	}
	return nil
}

// referencedTables extracts table names from FROM/JOIN clauses,
// case-insensitively, preserving first-seen order.
func (g *Guard) referencedTables(sql string) []string {
	seen := make(map[string]bool)
	var tables []string
	for _, m := range tableRefPattern.FindAllStringSubmatch(sql, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals or quoted identifiers.
func hasSemicolonOutsideStrings(sql string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sql {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Handles both backslash escape (\') and SQL doubled quote ('').
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}
