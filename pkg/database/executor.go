package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/logging"
)

// MaxQueryRows caps the rows returned for any generated query. This
// protects the engine from unbounded result sets.
const MaxQueryRows = 1000

// QueryResult contains the result set of an executed query.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Empty reports whether the query produced no rows.
func (r *QueryResult) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// FailureCategory classifies an execution failure for retry feedback.
type FailureCategory string

const (
	FailureUnknownColumn FailureCategory = "unknown_column"
	FailureMissingTable  FailureCategory = "missing_table"
	FailureGeneric       FailureCategory = "execution_failed"
)

// CategorizeError maps a database execution error to a feedback category.
// Postgres error codes are authoritative; message matching covers drivers
// that do not surface structured errors.
func CategorizeError(err error) FailureCategory {
	if err == nil {
		return FailureGeneric
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42703": // undefined_column
			return FailureUnknownColumn
		case "42P01": // undefined_table
			return FailureMissingTable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "column") && strings.Contains(msg, "does not exist"):
		return FailureUnknownColumn
	case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "table") && strings.Contains(msg, "does not exist"):
		return FailureMissingTable
	}
	return FailureGeneric
}

// Executor runs validated generated SQL against the registry database.
type Executor struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExecutor creates an Executor over the given database handle.
func NewExecutor(db *sql.DB, logger *zap.Logger) *Executor {
	return &Executor{
		db:     db,
		logger: logger.Named("executor"),
	}
}

// Execute runs a query and materializes up to MaxQueryRows rows. Byte
// column values are converted to strings so results serialize cleanly.
func (e *Executor) Execute(ctx context.Context, query string) (*QueryResult, error) {
	e.logger.Debug("executing query", zap.String("query", logging.TruncateQuery(query)))

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		e.logger.Warn("query execution failed",
			zap.String("category", string(CategorizeError(err))),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	result := &QueryResult{Columns: columns}

	values := make([]any, len(columns))
	scanArgs := make([]any, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}

	for rows.Next() && len(result.Rows) < MaxQueryRows {
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			v := values[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	e.logger.Debug("query executed",
		zap.Int("rows", len(result.Rows)),
		zap.Int("columns", len(columns)))

	return result, nil
}
