package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/coopregistry/coopassist/pkg/apperrors"
	"github.com/coopregistry/coopassist/pkg/database"
	"github.com/coopregistry/coopassist/pkg/llm"
	"github.com/coopregistry/coopassist/pkg/schema"
)

// fakeExecutor scripts per-query behavior for planner tests.
type fakeExecutor struct {
	results map[string]*database.QueryResult
	errs    map[string]error
	queries []string
}

func (f *fakeExecutor) Execute(ctx context.Context, query string) (*database.QueryResult, error) {
	f.queries = append(f.queries, query)
	if err, ok := f.errs[query]; ok {
		return nil, err
	}
	if r, ok := f.results[query]; ok {
		return r, nil
	}
	return &database.QueryResult{Columns: []string{"count"}, Rows: []map[string]any{{"count": int64(4)}}}, nil
}

func newPlanner(mock *llm.MockLLMClient, exec QueryExecutor, attempts int) *Planner {
	return New(mock, schema.NewGuard(schema.Default()), exec, attempts, 0, zap.NewNop())
}

func TestPlan_FirstAttemptSucceeds(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "```sql\nSELECT COUNT(*) FROM cooperative;\n```", nil
	}
	exec := &fakeExecutor{}

	p := newPlanner(mock, exec, 3)
	result, err := p.Plan(context.Background(), "How many cooperatives are registered?")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM cooperative", result.SQL)
	assert.Equal(t, 1, mock.GenerateResponseCalls)
	require.Len(t, exec.queries, 1)
}

func TestPlan_RetriesWithValidationFeedback(t *testing.T) {
	mock := llm.NewMockLLMClient()
	responses := []string{
		"SELECT * FROM users",                // rejected: table not whitelisted
		"SELECT COUNT(*) FROM cooperative ;", // accepted after feedback
	}
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return responses[mock.GenerateResponseCalls-1], nil
	}
	exec := &fakeExecutor{}

	p := newPlanner(mock, exec, 3)
	result, err := p.Plan(context.Background(), "How many cooperatives?")
	require.NoError(t, err)

	assert.Equal(t, "SELECT COUNT(*) FROM cooperative", result.SQL)
	require.Equal(t, 2, mock.GenerateResponseCalls)

	// Second prompt must carry the first failure's reason.
	secondPrompt := mock.Prompts[1]
	assert.Contains(t, secondPrompt, "users")
	assert.Contains(t, secondPrompt, "rejected")
	// First prompt must not carry any feedback.
	assert.NotContains(t, mock.Prompts[0], "rejected")
}

func TestPlan_ExecutionFailureFeedsCategoryHint(t *testing.T) {
	badSQL := "SELECT cooperative.id FROM cooperative"
	goodSQL := "SELECT COUNT(*) FROM cooperative"

	mock := llm.NewMockLLMClient()
	responses := []string{badSQL, goodSQL}
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return responses[mock.GenerateResponseCalls-1], nil
	}
	exec := &fakeExecutor{
		errs: map[string]error{badSQL: errors.New(`ERROR: column "id" does not exist`)},
	}

	p := newPlanner(mock, exec, 3)
	result, err := p.Plan(context.Background(), "count cooperatives")
	require.NoError(t, err)
	assert.Equal(t, goodSQL, result.SQL)

	secondPrompt := mock.Prompts[1]
	assert.Contains(t, secondPrompt, "failed to execute")
	assert.Contains(t, secondPrompt, "Qualify every column")
}

func TestPlan_ExhaustsAttempts(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "SELECT * FROM forbidden_table", nil
	}
	exec := &fakeExecutor{}

	p := newPlanner(mock, exec, 3)
	_, err := p.Plan(context.Background(), "anything")
	require.Error(t, err)

	assert.ErrorIs(t, err, apperrors.ErrPlanningFailed)
	assert.Equal(t, 3, mock.GenerateResponseCalls)
	assert.Empty(t, exec.queries, "invalid queries must never reach execution")
}

func TestPlan_GenerationErrorCountsAsAttempt(t *testing.T) {
	mock := llm.NewMockLLMClient()
	mock.GenerateResponseFunc = func(ctx context.Context, prompt, system string, temp float64) (string, error) {
		return "", errors.New("model not found")
	}

	p := newPlanner(mock, &fakeExecutor{}, 3)
	_, err := p.Plan(context.Background(), "anything")
	require.ErrorIs(t, err, apperrors.ErrPlanningFailed)
	assert.Equal(t, 3, mock.GenerateResponseCalls)
}

func TestPlan_RejectsInjectionQuestionWithoutGenerating(t *testing.T) {
	mock := llm.NewMockLLMClient()
	p := newPlanner(mock, &fakeExecutor{}, 3)

	_, err := p.Plan(context.Background(), "x' OR 1=1; DROP TABLE member--")
	require.ErrorIs(t, err, apperrors.ErrUnsafeQuestion)
	assert.Zero(t, mock.GenerateResponseCalls)
}

func TestBuildPrompt_ContainsSchemaAndExamples(t *testing.T) {
	p := newPlanner(llm.NewMockLLMClient(), &fakeExecutor{}, 3)

	prompt := p.buildPrompt("How many cooperatives in Western Bahr el Ghazal?", "")
	for _, want := range []string{
		"cooperative_state",
		"Examples:",
		"lower(",
		"How many cooperatives in Western Bahr el Ghazal?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt should contain %q", want)
		}
	}
}
