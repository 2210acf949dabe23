// Package planner turns a natural-language question into a validated,
// executed SQL query through a bounded retry loop.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/apperrors"
	"github.com/coopregistry/coopassist/pkg/database"
	"github.com/coopregistry/coopassist/pkg/llm"
	"github.com/coopregistry/coopassist/pkg/logging"
	"github.com/coopregistry/coopassist/pkg/metrics"
	"github.com/coopregistry/coopassist/pkg/schema"
)

// DefaultMaxAttempts bounds the generate-validate-execute loop.
const DefaultMaxAttempts = 3

// QueryExecutor executes a validated query against the registry store.
type QueryExecutor interface {
	Execute(ctx context.Context, query string) (*database.QueryResult, error)
}

// PlanResult is a successfully planned query and its result set.
type PlanResult struct {
	SQL    string
	Result *database.QueryResult
}

// Planner generates candidate queries, validates them against the schema
// guard, executes survivors, and retries with structured feedback on
// failure. Each attempt is independent; the only state carried between
// attempts is the previous failure's feedback string.
type Planner struct {
	client      llm.LLMClient
	guard       *schema.Guard
	executor    QueryExecutor
	maxAttempts int
	temperature float64
	logger      *zap.Logger
}

// New creates a Planner. maxAttempts <= 0 selects DefaultMaxAttempts.
func New(client llm.LLMClient, guard *schema.Guard, executor QueryExecutor, maxAttempts int, temperature float64, logger *zap.Logger) *Planner {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Planner{
		client:      client,
		guard:       guard,
		executor:    executor,
		maxAttempts: maxAttempts,
		temperature: temperature,
		logger:      logger.Named("planner"),
	}
}

// Plan runs the bounded retry loop. It returns a query that both validated
// and executed, or ErrPlanningFailed once the attempt budget is exhausted.
// No query that failed either check is ever returned.
func (p *Planner) Plan(ctx context.Context, question string) (*PlanResult, error) {
	if err := p.guard.CheckQuestion(question); err != nil {
		p.logger.Warn("question rejected before planning", zap.Error(err))
		return nil, err
	}

	planID := uuid.New().String()
	feedback := ""

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		log := p.logger.With(
			zap.String("plan_id", planID),
			zap.Int("attempt", attempt))

		start := time.Now()
		raw, err := p.client.GenerateResponse(ctx, p.buildPrompt(question, feedback),
			"You translate questions about a cooperative registry into a single PostgreSQL SELECT statement. Respond with SQL only.",
			p.temperature)
		metrics.GenerationDurationSeconds.WithLabelValues("sql").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PlannerAttemptsTotal.WithLabelValues("generation_failed").Inc()
			log.Warn("generation failed", zap.Error(err))
			feedback = "The previous attempt produced no SQL. Generate one SELECT statement using only the schema above."
			continue
		}

		candidate := schema.Sanitize(raw)

		if err := p.guard.Validate(candidate); err != nil {
			metrics.PlannerAttemptsTotal.WithLabelValues("validation_failed").Inc()
			log.Info("candidate rejected by validation",
				zap.String("query", logging.TruncateQuery(candidate)),
				zap.String("reason", err.Error()))
			feedback = fmt.Sprintf("The previous query was rejected: %s. %s",
				err.Error(), remediationForValidation(err))
			continue
		}

		result, err := p.executor.Execute(ctx, candidate)
		if err != nil {
			category := database.CategorizeError(err)
			metrics.PlannerAttemptsTotal.WithLabelValues(string(category)).Inc()
			log.Info("candidate failed execution",
				zap.String("query", logging.TruncateQuery(candidate)),
				zap.String("category", string(category)),
				zap.String("error", logging.SanitizeError(err)))
			feedback = fmt.Sprintf("The previous query failed to execute: %s. %s",
				logging.SanitizeError(err), remediationForExecution(category))
			continue
		}

		metrics.PlannerAttemptsTotal.WithLabelValues("success").Inc()
		log.Info("query planned",
			zap.String("query", logging.TruncateQuery(candidate)),
			zap.Int("rows", len(result.Rows)))

		return &PlanResult{SQL: candidate, Result: result}, nil
	}

	p.logger.Warn("planning failed permanently",
		zap.String("plan_id", planID),
		zap.Int("attempts", p.maxAttempts))

	return nil, fmt.Errorf("%w after %d attempts", apperrors.ErrPlanningFailed, p.maxAttempts)
}

// buildPrompt assembles the generation prompt: live schema description,
// fixed worked examples, and the question. After a failed attempt the plain
// question is replaced with an augmented version carrying the previous
// failure's feedback.
func (p *Planner) buildPrompt(question, feedback string) string {
	var b strings.Builder

	b.WriteString(p.guard.Whitelist().Describe())
	b.WriteString("\nRules:\n")
	b.WriteString("- Generate exactly one SELECT statement, no explanation.\n")
	b.WriteString("- Qualify every column with its table name or alias.\n")
	b.WriteString("- Compare text values case-insensitively with lower().\n")

	b.WriteString("\nExamples:\n")
	b.WriteString("Question: How many cooperatives are registered?\n")
	b.WriteString("SQL: SELECT COUNT(*) FROM cooperative\n\n")
	b.WriteString("Question: How many female members are there?\n")
	b.WriteString("SQL: SELECT COUNT(*) FROM member WHERE lower(member.gender) = 'female'\n\n")
	b.WriteString("Question: How many cooperatives in Jonglei?\n")
	b.WriteString("SQL: SELECT COUNT(*) FROM cooperative WHERE lower(cooperative.cooperative_state) = lower('Jonglei')\n\n")
	b.WriteString("Question: How many members per state?\n")
	b.WriteString("SQL: SELECT member.state, COUNT(*) FROM member GROUP BY member.state\n")

	if feedback != "" {
		fmt.Fprintf(&b, "\n%s\n\nQuestion: %s\nSQL:", feedback, question)
	} else {
		fmt.Fprintf(&b, "\nQuestion: %s\nSQL:", question)
	}

	return b.String()
}

func remediationForValidation(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "is not allowed"):
		return "Use only the tables listed in the schema."
	case strings.Contains(msg, "does not exist on table"):
		return "Use only the columns listed for each table, and qualify each with its table name."
	case strings.Contains(msg, "references no tables"):
		return "The statement must select FROM one of the schema tables."
	default:
		return "Generate a single SELECT statement against the schema tables."
	}
}

func remediationForExecution(category database.FailureCategory) string {
	switch category {
	case database.FailureUnknownColumn:
		return "Qualify every column with its table alias and use only columns from the schema."
	case database.FailureMissingTable:
		return "Use only the tables listed in the schema."
	default:
		return "Prefer a JOIN over a correlated subquery and keep the statement simple."
	}
}
