package apperrors

import "errors"

var (
	// ErrPlanningFailed is returned by the SQL planner once its attempt
	// budget is exhausted without a query that both validates and executes.
	ErrPlanningFailed = errors.New("sql planning failed")

	// ErrNoChart indicates the visualization engine produced no chart.
	ErrNoChart = errors.New("no chart produced")

	// ErrUnsafeQuestion indicates the question text itself carries a SQL
	// injection pattern and was rejected before planning.
	ErrUnsafeQuestion = errors.New("question rejected by injection check")
)
